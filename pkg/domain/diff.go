package domain

import (
	"reflect"
)

// SnapshotDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentStepIndex *int   `json:"current_step_index,omitempty"`
	Phase            *Phase `json:"phase,omitempty"`
	Completed        *bool  `json:"completed,omitempty"`

	// Responses contains only changed, added or deleted answers.
	// For deletions, the key is present with a nil value.
	Responses map[string]any `json:"responses,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{
		SessionID: newSnap.SessionID,
	}

	if oldSnap == nil || oldSnap.State.CurrentStepIndex != newSnap.State.CurrentStepIndex {
		idx := newSnap.State.CurrentStepIndex
		diff.CurrentStepIndex = &idx
	}
	if oldSnap == nil || oldSnap.State.Phase != newSnap.State.Phase {
		phase := newSnap.State.Phase
		diff.Phase = &phase
	}
	if oldSnap == nil {
		if newSnap.State.Completed {
			completed := true
			diff.Completed = &completed
		}
	} else if oldSnap.State.Completed != newSnap.State.Completed {
		completed := newSnap.State.Completed
		diff.Completed = &completed
	}

	diff.Responses = diffResponses(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffResponses(old *Snapshot, new *Snapshot) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Responses {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Responses {
		oldVal, exists := old.Responses[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Responses {
		if _, exists := new.Responses[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentStepIndex == nil &&
		d.Phase == nil &&
		d.Completed == nil &&
		len(d.Responses) == 0
}
