package kif

// Arena owns every sequence of one parse and the cursor pointing at the
// sequence new moves go to. It is not safe for concurrent use; each parse gets
// its own arena.
type Arena struct {
	sequences []*Sequence
	current   SequenceID
}

// NewArena creates an arena holding only the root sequence, which starts at
// move 1 and is the current sequence.
func NewArena() *Arena {
	root := &Sequence{ID: 0, Start: 1, Parent: 0}
	return &Arena{sequences: []*Sequence{root}}
}

func (a *Arena) Root() SequenceID {
	return 0
}

func (a *Arena) Current() SequenceID {
	return a.current
}

func (a *Arena) Len() int {
	return len(a.sequences)
}

func (a *Arena) SetCurrent(id SequenceID) error {
	if _, ok := a.get(id); !ok {
		return &UnknownSequenceError{ID: id}
	}
	a.current = id
	return nil
}

// CreateSequence allocates an empty sequence whose parent is the current one and
// makes it current. It is not added to any follow-up set.
func (a *Arena) CreateSequence(start int) SequenceID {
	id := a.newSequence(a.current, start, nil)
	a.current = id
	return id
}

// AppendMove pushes a recorded move onto the current sequence. Unrecognized
// records are dropped so they never shift move numbering.
func (a *Arena) AppendMove(record MoveRecord) {
	if !record.IsRecorded() {
		return
	}
	s := a.mustGet(a.current)
	s.Moves = append(s.Moves, record)
}

// Lookup returns a copy of the sequence.
func (a *Arena) Lookup(id SequenceID) (Sequence, error) {
	s, ok := a.get(id)
	if !ok {
		return Sequence{}, &UnknownSequenceError{ID: id}
	}
	return s.clone(), nil
}

// Snapshot copies the arena into a read-only Tree.
func (a *Arena) Snapshot() *Tree {
	sequences := make([]Sequence, len(a.sequences))
	for i, s := range a.sequences {
		sequences[i] = s.clone()
	}
	return &Tree{root: a.Root(), sequences: sequences}
}

func (a *Arena) newSequence(parent SequenceID, start int, moves []MoveRecord) SequenceID {
	id := SequenceID(len(a.sequences))
	a.sequences = append(a.sequences, &Sequence{
		ID:     id,
		Start:  start,
		Moves:  moves,
		Parent: parent,
	})
	return id
}

func (a *Arena) get(id SequenceID) (*Sequence, bool) {
	if id < 0 || int(id) >= len(a.sequences) {
		return nil, false
	}
	return a.sequences[id], true
}

// mustGet is for ids the arena handed out itself; a miss is a bug.
func (a *Arena) mustGet(id SequenceID) *Sequence {
	s, ok := a.get(id)
	if !ok {
		panic(&UnknownSequenceError{ID: id})
	}
	return s
}
