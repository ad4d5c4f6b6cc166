package kif

// Splice describes what BeginVariation did to the tree.
type Splice struct {
	// Parent is the sequence the variation branches from. It ends exactly at
	// the move before the branch point after the splice.
	Parent SequenceID
	// Continuation holds the moves Parent lost, or NoSequence if the branch
	// point was at Parent's end.
	Continuation SequenceID
	// Variation is the new empty current sequence.
	Variation SequenceID
}

func (s Splice) Split() bool {
	return s.Continuation != NoSequence
}

// BeginVariation opens a variation whose first move has number branch. The
// ancestor covering move branch-1 is cut right after that move, its tail and
// its former follow-ups move to a continuation sequence, and a new empty
// sequence becomes current. Both hang off the cut ancestor and share the start
// branch.
//
// On error the tree is left untouched.
func (a *Arena) BeginVariation(branch int) (Splice, error) {
	parent, ok := a.findAncestor(branch - 1)
	if !ok {
		return Splice{}, &OrphanBranchPointError{Move: branch}
	}

	splice := Splice{Parent: parent.ID, Continuation: NoSequence}

	splitIndex := branch - parent.Start
	if splitIndex < len(parent.Moves) {
		remainder := make([]MoveRecord, len(parent.Moves)-splitIndex)
		copy(remainder, parent.Moves[splitIndex:])
		parent.Moves = parent.Moves[:splitIndex:splitIndex]

		inherited := parent.FollowUps
		parent.FollowUps = nil

		splice.Continuation = a.newSequence(parent.ID, branch, remainder)
		continuation := a.mustGet(splice.Continuation)
		continuation.FollowUps = inherited
		for _, id := range inherited {
			a.mustGet(id).Parent = splice.Continuation
		}
		parent.addFollowUp(splice.Continuation)
	}

	splice.Variation = a.newSequence(parent.ID, branch, nil)
	parent.addFollowUp(splice.Variation)
	a.current = splice.Variation

	return splice, nil
}

// findAncestor walks parent links from the current sequence up to the root
// looking for the run that holds move n. Move 0, the position before the first
// move, belongs to the root.
func (a *Arena) findAncestor(n int) (*Sequence, bool) {
	s := a.mustGet(a.current)
	for steps := 0; steps <= len(a.sequences); steps++ {
		if s.Contains(n) {
			return s, true
		}
		if s.IsRoot() {
			if n == s.Start-1 {
				return s, true
			}
			return nil, false
		}
		s = a.mustGet(s.Parent)
	}
	return nil, false
}
