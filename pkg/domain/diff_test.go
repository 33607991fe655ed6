package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	ready := PhaseReady
	completed := PhaseCompleted

	tests := []struct {
		name     string
		old      *Snapshot
		new      *Snapshot
		wantDiff *SnapshotDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Snapshot{
				SessionID: "sess-1",
				State:     NewNavigationState(),
				Responses: ResponseMap{"q1": "a"},
			},
			wantDiff: &SnapshotDiff{
				SessionID:        "sess-1",
				CurrentStepIndex: intPtr(0),
				Phase:            &ready,
				Responses:        map[string]any{"q1": "a"},
			},
		},
		{
			name: "No Changes",
			old: &Snapshot{
				SessionID: "sess-1",
				State:     NewNavigationState(),
				Responses: ResponseMap{"q1": "a"},
			},
			new: &Snapshot{
				SessionID: "sess-1",
				State:     NewNavigationState(),
				Responses: ResponseMap{"q1": "a"},
			},
			wantDiff: nil,
		},
		{
			name: "Step Advance",
			old: &Snapshot{
				SessionID: "sess-1",
				State:     NavigationState{Phase: PhaseReady, CurrentStepIndex: 0},
			},
			new: &Snapshot{
				SessionID: "sess-1",
				State:     NavigationState{Phase: PhaseReady, CurrentStepIndex: 1},
				Responses: ResponseMap{"q1": "hello"},
			},
			wantDiff: &SnapshotDiff{
				SessionID:        "sess-1",
				CurrentStepIndex: intPtr(1),
				Responses:        map[string]any{"q1": "hello"},
			},
		},
		{
			name: "Completion",
			old: &Snapshot{
				SessionID: "sess-1",
				State:     NavigationState{Phase: PhaseReady, CurrentStepIndex: 1},
			},
			new: &Snapshot{
				SessionID: "sess-1",
				State:     NavigationState{Phase: PhaseCompleted, CurrentStepIndex: 1, Completed: true},
			},
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
				Phase:     &completed,
				Completed: boolPtr(true),
			},
		},
		{
			name: "Response Deletion",
			old: &Snapshot{
				Responses: ResponseMap{"a": 1, "b": 2},
			},
			new: &Snapshot{
				Responses: ResponseMap{"a": 1},
			},
			wantDiff: &SnapshotDiff{
				Responses: map[string]any{"b": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}
			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Responses, tt.wantDiff.Responses) {
				t.Errorf("Diff().Responses = %v, want %v", got.Responses, tt.wantDiff.Responses)
			}
			if !equalPtr(got.CurrentStepIndex, tt.wantDiff.CurrentStepIndex) {
				t.Errorf("Diff().CurrentStepIndex = %v, want %v", got.CurrentStepIndex, tt.wantDiff.CurrentStepIndex)
			}
			if !equalPtr(got.Phase, tt.wantDiff.Phase) {
				t.Errorf("Diff().Phase = %v, want %v", got.Phase, tt.wantDiff.Phase)
			}
			if !equalPtr(got.Completed, tt.wantDiff.Completed) {
				t.Errorf("Diff().Completed = %v, want %v", got.Completed, tt.wantDiff.Completed)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &Snapshot{Responses: ResponseMap{"a": 1, "b": 2}}
		s2 := &Snapshot{Responses: ResponseMap{"a": 1}}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
		if strings.Contains(string(bytes), `"phase"`) {
			t.Errorf("JSON should omit unchanged phase, got: %s", string(bytes))
		}
	})
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
