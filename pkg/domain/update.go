package domain

import "github.com/google/uuid"

// Update is the partial result a stage hands back to the executor.
//
// Append and Prune are the two message updates: Append adds messages after the
// existing ones, Prune removes messages by ID. Every other field overwrites the
// state value when non-nil and is ignored when nil.
type Update struct {
	Append        []Message
	Prune         []string
	Workflow      *Workflow
	MemoryContext *string
	Summary       *string
	Artifact      *Artifact
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return len(u.Append) == 0 && len(u.Prune) == 0 &&
		u.Workflow == nil && u.MemoryContext == nil && u.Summary == nil && u.Artifact == nil
}

// Ptr returns a pointer to v. It keeps stage code terse when filling Update fields.
func Ptr[T any](v T) *T {
	return &v
}

// Merge applies u to state and returns the resulting state. The input state is
// not modified.
//
// Scalar fields are applied first, then appends, then prunes, so a stage that
// sets Summary and prunes in the same update never loses history that was not
// already folded into the summary. Merge never fails: pruning an unknown ID is
// a no-op, an appended message whose ID is already present is dropped, and an
// appended message without an ID is given one.
func Merge(state *TurnState, u Update) *TurnState {
	next := state.Clone()
	if next == nil {
		next = &TurnState{}
	}

	if u.Workflow != nil {
		next.Workflow = *u.Workflow
	}
	if u.MemoryContext != nil {
		next.MemoryContext = *u.MemoryContext
	}
	if u.Summary != nil {
		next.Summary = *u.Summary
	}
	if u.Artifact != nil {
		next.Artifact = u.Artifact.clone()
	}

	if len(u.Append) > 0 {
		seen := make(map[string]struct{}, len(next.Messages)+len(u.Append))
		for _, m := range next.Messages {
			seen[m.ID] = struct{}{}
		}
		for _, m := range u.Append {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			next.Messages = append(next.Messages, m)
		}
	}

	if len(u.Prune) > 0 {
		drop := make(map[string]struct{}, len(u.Prune))
		for _, id := range u.Prune {
			drop[id] = struct{}{}
		}
		kept := next.Messages[:0]
		for _, m := range next.Messages {
			if _, ok := drop[m.ID]; !ok {
				kept = append(kept, m)
			}
		}
		next.Messages = kept
	}

	return next
}

// PruneAllBut returns the IDs of every message except the last keep ones.
func PruneAllBut(msgs []Message, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	if len(msgs) <= keep {
		return nil
	}
	ids := make([]string, 0, len(msgs)-keep)
	for _, m := range msgs[:len(msgs)-keep] {
		ids = append(ids, m.ID)
	}
	return ids
}
