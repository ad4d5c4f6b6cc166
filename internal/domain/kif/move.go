package kif

import "fmt"

// MoveKind различает строки, из которых удалось прочитать номер хода, и все остальные.
type MoveKind int

const (
	MoveUnrecognized MoveKind = iota
	MoveRecorded
)

func (k MoveKind) String() string {
	switch k {
	case MoveRecorded:
		return "recorded"
	case MoveUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MoveKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "recorded":
		*k = MoveRecorded
	case "unrecognized":
		*k = MoveUnrecognized
	default:
		return fmt.Errorf("unknown move kind %q", text)
	}
	return nil
}

// MoveRecord - одна строка хода. Legality of the move is never checked: the text
// is opaque and only the declared move number is read from it.
type MoveRecord struct {
	Kind             MoveKind `json:"kind" bson:"kind" yaml:"kind"`
	SourceMoveNumber int      `json:"source_move_number,omitempty" bson:"source_move_number,omitempty" yaml:"source_move_number,omitempty"`
	RawText          string   `json:"raw_text" bson:"raw_text" yaml:"raw_text"`
	Text             string   `json:"text,omitempty" bson:"text,omitempty" yaml:"text,omitempty"`
	Line             int      `json:"line,omitempty" bson:"line,omitempty" yaml:"line,omitempty"`
}

func Recorded(moveNumber int, rawText string) MoveRecord {
	return MoveRecord{Kind: MoveRecorded, SourceMoveNumber: moveNumber, RawText: rawText}
}

func Unrecognized(rawText string) MoveRecord {
	return MoveRecord{Kind: MoveUnrecognized, RawText: rawText}
}

func (m MoveRecord) IsRecorded() bool {
	return m.Kind == MoveRecorded
}

func (m MoveRecord) String() string {
	if !m.IsRecorded() {
		return "NoMove"
	}
	if m.Text != "" {
		return m.Text
	}
	return m.RawText
}
