package hunt

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrBrokenSequence reports a persisted sequence that violates the progression
// invariant: completions must form a contiguous prefix.
var ErrBrokenSequence = errors.New("completed levels do not form a prefix")

// Sequence is a team's assigned level order with an explicit current pointer.
// Entries are kept sorted by index; the current level is always the
// lowest-index pending entry, tracked in O(1) instead of rescanned.
type Sequence struct {
	entries []SequenceEntry
	current int // == len(entries) once every level is completed
}

// NewSequence validates and indexes the persisted entries. Indices must be
// the contiguous range 0..n-1 and completions must form a prefix.
func NewSequence(entries []SequenceEntry) (*Sequence, error) {
	if len(entries) == 0 {
		return nil, errors.New("sequence is empty")
	}

	es := make([]SequenceEntry, len(entries))
	copy(es, entries)
	sort.Slice(es, func(i, j int) bool { return es[i].Index < es[j].Index })

	for i, e := range es {
		if e.Index != i {
			return nil, fmt.Errorf("sequence index %d at position %d", e.Index, i)
		}
	}

	current := len(es)
	for i, e := range es {
		if e.CompletedAt == nil {
			current = i
			break
		}
	}
	for _, e := range es[current:] {
		if e.CompletedAt != nil {
			return nil, ErrBrokenSequence
		}
	}

	return &Sequence{entries: es, current: current}, nil
}

func (s *Sequence) Len() int { return len(s.entries) }

// Done reports how many levels the team has completed.
func (s *Sequence) Done() int { return s.current }

func (s *Sequence) Finished() bool { return s.current == len(s.entries) }

// Current returns the lowest-index pending entry, or false once finished.
func (s *Sequence) Current() (SequenceEntry, bool) {
	if s.Finished() {
		return SequenceEntry{}, false
	}
	return s.entries[s.current], true
}

// Entries returns a copy of the sequence in index order.
func (s *Sequence) Entries() []SequenceEntry {
	es := make([]SequenceEntry, len(s.entries))
	copy(es, s.entries)
	return es
}

// SubmitOutcome describes the state after a level submission.
type SubmitOutcome struct {
	// Advanced is true only for the single mutating transition: the team
	// submitted the level directly after its current one.
	Advanced bool
	// CompletedIndex is the index whose completion marker was set, -1 if none.
	CompletedIndex int
	// CurrentIndex is the team's current position after the submission.
	CurrentIndex int
}

// Submit runs one progression transition for an arriving level identifier.
//
// Submitting the current level, or any already-completed one, is an idempotent
// no-op. Submitting the level at current+1 completes the current level and
// advances, the only transition that mutates. Anything else is rejected with
// ErrWrongLevel; a finished team always gets ErrFinished.
func (s *Sequence) Submit(levelID string, now time.Time) (SubmitOutcome, error) {
	if s.Finished() {
		return SubmitOutcome{}, ErrFinished
	}

	for i := 0; i <= s.current; i++ {
		if s.entries[i].LevelID == levelID {
			return SubmitOutcome{CompletedIndex: -1, CurrentIndex: s.current}, nil
		}
	}

	next := s.current + 1
	if next < len(s.entries) && s.entries[next].LevelID == levelID {
		t := now
		s.entries[s.current].CompletedAt = &t
		s.current = next
		return SubmitOutcome{Advanced: true, CompletedIndex: next - 1, CurrentIndex: next}, nil
	}

	return SubmitOutcome{}, ErrWrongLevel
}

// Finish completes the final level. It requires the caller-verified end
// sequence secret to match the per-game configured value and every level
// except the last to be completed already. A second call reports
// alreadyDone=true without error.
func (s *Sequence) Finish(secret, want string, now time.Time) (alreadyDone bool, err error) {
	if want == "" || secret != want {
		return false, ErrBadSecret
	}
	if s.Finished() {
		return true, nil
	}
	if s.current != len(s.entries)-1 {
		return false, ErrNotFinished
	}

	t := now
	s.entries[s.current].CompletedAt = &t
	s.current = len(s.entries)
	return false, nil
}
