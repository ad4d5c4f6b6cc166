package kif

import (
	"fmt"

	errs "kifu/internal/errors"
)

// Tree is a read-only snapshot of a finished parse.
type Tree struct {
	root      SequenceID
	sequences []Sequence
}

func (t *Tree) RootID() SequenceID {
	return t.root
}

func (t *Tree) Len() int {
	return len(t.sequences)
}

// Get returns a copy of the sequence, so callers cannot mutate the tree.
func (t *Tree) Get(id SequenceID) (Sequence, error) {
	s, err := t.ref(id)
	if err != nil {
		return Sequence{}, err
	}
	return s.clone(), nil
}

func (t *Tree) Children(id SequenceID) ([]SequenceID, error) {
	s, err := t.ref(id)
	if err != nil {
		return nil, err
	}
	return append([]SequenceID(nil), s.FollowUps...), nil
}

func (t *Tree) Moves(id SequenceID) ([]MoveRecord, error) {
	s, err := t.ref(id)
	if err != nil {
		return nil, err
	}
	return append([]MoveRecord(nil), s.Moves...), nil
}

// MoveAt returns the move at positional number n of sequence id.
func (t *Tree) MoveAt(id SequenceID, n int) (MoveRecord, bool) {
	s, err := t.ref(id)
	if err != nil {
		return MoveRecord{}, false
	}
	return s.MoveAt(n)
}

// Line returns every move from move 1 up to the last move of sequence id,
// following parent links.
func (t *Tree) Line(id SequenceID) ([]MoveRecord, error) {
	var chain []*Sequence
	s, err := t.ref(id)
	if err != nil {
		return nil, err
	}
	for steps := 0; ; steps++ {
		if steps > len(t.sequences) {
			return nil, fmt.Errorf("%w: parent cycle at sequence %d", errs.ErrMalformedTree, id)
		}
		chain = append(chain, s)
		if s.IsRoot() {
			break
		}
		if s, err = t.ref(s.Parent); err != nil {
			return nil, err
		}
	}

	var line []MoveRecord
	for i := len(chain) - 1; i >= 0; i-- {
		line = append(line, chain[i].Moves...)
	}
	return line, nil
}

// Walk visits the sequences depth first starting at the root. Returning an
// error from fn stops the walk.
func (t *Tree) Walk(fn func(s Sequence, depth int) error) error {
	return t.walk(t.root, 0, fn, make(map[SequenceID]bool, len(t.sequences)))
}

func (t *Tree) walk(id SequenceID, depth int, fn func(Sequence, int) error, seen map[SequenceID]bool) error {
	if seen[id] {
		return fmt.Errorf("%w: sequence %d reached twice", errs.ErrMalformedTree, id)
	}
	seen[id] = true
	s, err := t.ref(id)
	if err != nil {
		return err
	}
	if err = fn(s.clone(), depth); err != nil {
		return err
	}
	for _, child := range s.FollowUps {
		if err = t.walk(child, depth+1, fn, seen); err != nil {
			return err
		}
	}
	return nil
}

// SequenceOutline describes one sequence without its moves.
type SequenceOutline struct {
	ID        SequenceID   `json:"id" yaml:"id"`
	Parent    SequenceID   `json:"parent" yaml:"parent"`
	Depth     int          `json:"depth" yaml:"depth"`
	Start     int          `json:"start_move_number" yaml:"start_move_number"`
	End       int          `json:"end_move_number" yaml:"end_move_number"`
	Moves     int          `json:"moves" yaml:"moves"`
	FollowUps []SequenceID `json:"follow_ups" yaml:"follow_ups"`
}

// Outline lists the sequences in walk order.
func (t *Tree) Outline() ([]SequenceOutline, error) {
	out := make([]SequenceOutline, 0, len(t.sequences))
	err := t.Walk(func(s Sequence, depth int) error {
		out = append(out, SequenceOutline{
			ID:        s.ID,
			Parent:    s.Parent,
			Depth:     depth,
			Start:     s.Start,
			End:       s.End(),
			Moves:     len(s.Moves),
			FollowUps: s.FollowUps,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the structural invariants: ids resolve, the root is its own
// parent, follow-up sets hold no duplicates, every child starts right after its
// parent's last move and points back at it, and every sequence reaches the root.
func (t *Tree) Validate() error {
	root, err := t.ref(t.root)
	if err != nil {
		return err
	}
	if !root.IsRoot() {
		return fmt.Errorf("%w: root %d has parent %d", errs.ErrMalformedTree, root.ID, root.Parent)
	}

	for i := range t.sequences {
		s := &t.sequences[i]
		if s.ID != SequenceID(i) {
			return fmt.Errorf("%w: sequence at %d has id %d", errs.ErrMalformedTree, i, s.ID)
		}
		if s.IsRoot() && s.ID != t.root {
			return fmt.Errorf("%w: second root %d", errs.ErrMalformedTree, s.ID)
		}
		if _, err = t.ref(s.Parent); err != nil {
			return fmt.Errorf("%w: parent of %d: %v", errs.ErrMalformedTree, s.ID, err)
		}

		seen := make(map[SequenceID]bool, len(s.FollowUps))
		for _, id := range s.FollowUps {
			if seen[id] {
				return fmt.Errorf("%w: duplicate follow-up %d in %d", errs.ErrMalformedTree, id, s.ID)
			}
			seen[id] = true
			child, err := t.ref(id)
			if err != nil {
				return fmt.Errorf("%w: follow-up of %d: %v", errs.ErrMalformedTree, s.ID, err)
			}
			if child.Parent != s.ID {
				return fmt.Errorf("%w: follow-up %d of %d points at parent %d", errs.ErrMalformedTree, id, s.ID, child.Parent)
			}
			if child.Start != s.End() {
				return fmt.Errorf("%w: follow-up %d starts at %d, parent %d ends at %d", errs.ErrMalformedTree, id, child.Start, s.ID, s.End())
			}
		}

		cur := s
		for steps := 0; !cur.IsRoot(); steps++ {
			if steps > len(t.sequences) {
				return fmt.Errorf("%w: sequence %d does not reach the root", errs.ErrMalformedTree, s.ID)
			}
			if cur, err = t.ref(cur.Parent); err != nil {
				return fmt.Errorf("%w: ancestor of %d: %v", errs.ErrMalformedTree, s.ID, err)
			}
		}
	}
	return nil
}

func (t *Tree) ref(id SequenceID) (*Sequence, error) {
	if id < 0 || int(id) >= len(t.sequences) {
		return nil, &UnknownSequenceError{ID: id}
	}
	return &t.sequences[id], nil
}
