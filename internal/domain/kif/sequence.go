package kif

import (
	"fmt"

	errs "kifu/internal/errors"
)

// SequenceID is a stable handle into an Arena. Sequences never hold pointers to
// each other, only ids.
type SequenceID int

// NoSequence marks an absent sequence, e.g. a splice that did not need a continuation.
const NoSequence SequenceID = -1

// Sequence - непрерывная серия ходов с общей точкой ветвления.
// The k-th move occupies move number Start+k regardless of the number the move
// itself declares.
type Sequence struct {
	ID        SequenceID   `json:"id" bson:"id" yaml:"id"`
	Start     int          `json:"start_move_number" bson:"start_move_number" yaml:"start_move_number"`
	Moves     []MoveRecord `json:"moves" bson:"moves" yaml:"moves"`
	FollowUps []SequenceID `json:"follow_ups" bson:"follow_ups" yaml:"follow_ups"`
	Parent    SequenceID   `json:"parent" bson:"parent" yaml:"parent"`
}

// End returns the move number right after the last move of the run.
func (s *Sequence) End() int {
	return s.Start + len(s.Moves)
}

// Contains reports whether move number n falls inside the run.
func (s *Sequence) Contains(n int) bool {
	return n >= s.Start && n < s.End()
}

// IsRoot reports whether the sequence is its own parent.
func (s *Sequence) IsRoot() bool {
	return s.Parent == s.ID
}

// MoveAt looks a move up by its positional move number.
func (s *Sequence) MoveAt(n int) (MoveRecord, bool) {
	if !s.Contains(n) {
		return MoveRecord{}, false
	}
	return s.Moves[n-s.Start], true
}

func (s *Sequence) hasFollowUp(id SequenceID) bool {
	for _, f := range s.FollowUps {
		if f == id {
			return true
		}
	}
	return false
}

func (s *Sequence) addFollowUp(id SequenceID) {
	if !s.hasFollowUp(id) {
		s.FollowUps = append(s.FollowUps, id)
	}
}

func (s *Sequence) clone() Sequence {
	c := *s
	c.Moves = append([]MoveRecord(nil), s.Moves...)
	c.FollowUps = append([]SequenceID(nil), s.FollowUps...)
	return c
}

// UnknownSequenceError is returned by lookups with an id the arena never issued.
type UnknownSequenceError struct {
	ID SequenceID
}

func (e *UnknownSequenceError) Error() string {
	return fmt.Sprintf("%v: %d", errs.ErrUnknownSequence, e.ID)
}

func (e *UnknownSequenceError) Unwrap() error {
	return errs.ErrUnknownSequence
}

// OrphanBranchPointError means a variation starts at a move whose predecessor
// is not covered by any ancestor of the current sequence.
type OrphanBranchPointError struct {
	Move int
}

func (e *OrphanBranchPointError) Error() string {
	return fmt.Sprintf("%v: move %d", errs.ErrOrphanBranchPoint, e.Move)
}

func (e *OrphanBranchPointError) Unwrap() error {
	return errs.ErrOrphanBranchPoint
}
