package kif

import (
	"fmt"
	"time"

	errs "kifu/internal/errors"
)

// Header - строка заголовка KIF вида "先手：羽生善治".
type Header struct {
	Key   string `json:"key" bson:"key" yaml:"key"`
	Value string `json:"value" bson:"value" yaml:"value"`
}

// Document is the storable form of a Tree.
type Document struct {
	Root      SequenceID `json:"root" bson:"root" yaml:"root"`
	Sequences []Sequence `json:"sequences" bson:"sequences" yaml:"sequences"`
}

// Record is one parsed game record as it is stored and served.
type Record struct {
	Key          string    `json:"key" bson:"key" yaml:"key"`
	Name         string    `json:"name" bson:"name" yaml:"name"`
	Headers      []Header  `json:"headers" bson:"headers" yaml:"headers"`
	Tree         Document  `json:"tree" bson:"tree" yaml:"tree"`
	Unrecognized int       `json:"unrecognized_lines" bson:"unrecognized_lines" yaml:"unrecognized_lines"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" yaml:"created_at"`
}

func (t *Tree) Document() Document {
	sequences := make([]Sequence, len(t.sequences))
	for i := range t.sequences {
		sequences[i] = t.sequences[i].clone()
	}
	return Document{Root: t.root, Sequences: sequences}
}

// FromDocument rebuilds a Tree and checks its invariants.
func FromDocument(d Document) (*Tree, error) {
	if len(d.Sequences) == 0 {
		return nil, fmt.Errorf("%w: no sequences", errs.ErrMalformedTree)
	}
	t := &Tree{root: d.Root, sequences: make([]Sequence, len(d.Sequences))}
	for i := range d.Sequences {
		t.sequences[i] = d.Sequences[i].clone()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r Record) TreeView() (*Tree, error) {
	return FromDocument(r.Tree)
}

// MoveCount counts recorded moves over all sequences.
func (r Record) MoveCount() int {
	n := 0
	for _, s := range r.Tree.Sequences {
		n += len(s.Moves)
	}
	return n
}

// RecordSummary is a record without its tree, for listings.
type RecordSummary struct {
	Key       string    `json:"key" bson:"key" yaml:"key"`
	Name      string    `json:"name" bson:"name" yaml:"name"`
	Headers   []Header  `json:"headers" bson:"headers" yaml:"headers"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" yaml:"created_at"`
}

type RecordPage struct {
	PageNum    int             `json:"page_num"`
	TotalPages int             `json:"total_pages"`
	Records    []RecordSummary `json:"records"`
}
