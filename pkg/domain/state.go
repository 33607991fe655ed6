package domain

import (
	"strings"
	"time"
)

// Phase is the lifecycle stage of a navigation session.
type Phase string

const (
	PhaseNotInitialized Phase = "not_initialized"
	PhaseReady          Phase = "ready"
	PhaseCompleted      Phase = "completed"
)

// NavigationState is the position of a session inside the survey.
type NavigationState struct {
	Phase            Phase `json:"phase"`
	CurrentStepIndex int   `json:"current_step_index"`
	Completed        bool  `json:"completed"`

	// History is the stack of shown step indexes, current step last.
	History []int `json:"history,omitempty"`
}

// NewNavigationState creates a Ready state positioned on the first step.
func NewNavigationState() NavigationState {
	return NavigationState{
		Phase:            PhaseReady,
		CurrentStepIndex: 0,
		History:          []int{0},
	}
}

// Clone returns a copy that does not share the History slice.
func (s NavigationState) Clone() NavigationState {
	next := s
	if s.History != nil {
		next.History = append([]int(nil), s.History...)
	}
	return next
}

// ResponseMap maps question IDs to answer values.
type ResponseMap map[string]any

// Clone deep-copies the map, including list and matrix answers.
func (m ResponseMap) Clone() ResponseMap {
	if m == nil {
		return ResponseMap{}
	}
	out := make(ResponseMap, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, item := range t {
			out[k] = item
		}
		return out
	}
	return v
}

// IsEmptyAnswer reports whether a value counts as "absent" for validation:
// nil, a blank string, an empty list or an empty map.
func IsEmptyAnswer(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	}
	return false
}

// Snapshot is the serializable session pair used for resume-after-reload.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	SurveyID  string          `json:"survey_id,omitempty"`
	State     NavigationState `json:"state"`
	Responses ResponseMap     `json:"responses"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	next := *s
	next.State = s.State.Clone()
	next.Responses = s.Responses.Clone()
	return &next
}
