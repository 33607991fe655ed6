package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// EndNode is the terminal node every flow converges on.
const EndNode = "submit"

// Overlay contains session data to visualize on the graph.
type Overlay struct {
	VisitedSteps []string
	CurrentStep  string
	Completed    bool
}

// OverlayFor builds an Overlay from a navigation state.
func OverlayFor(s *domain.Survey, state domain.NavigationState) *Overlay {
	o := &Overlay{Completed: state.Completed}
	for _, idx := range state.History {
		if idx >= 0 && idx < len(s.Steps) {
			o.VisitedSteps = append(o.VisitedSteps, s.Steps[idx].ID)
		}
	}
	if !state.Completed && state.CurrentStepIndex >= 0 && state.CurrentStepIndex < len(s.Steps) {
		o.CurrentStep = s.Steps[state.CurrentStepIndex].ID
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the survey steps.
// It applies semantic styling:
// - First step: ((Circle))
// - Conditional step: {{Hexagon}}
// - Default: [Rectangle]
//
// Each step links to every step that may follow it: conditional steps get a
// labelled edge and a dotted edge skips past them when the condition fails.
func GenerateMermaid(s *domain.Survey, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range s.Steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case step.When != nil:
			opener, closer = "{{", "}}"
		}

		label := step.ID
		if step.Title != "" {
			label = step.Title
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %d question(s)\"%s\n", safeID, opener, escapeLabel(label), len(step.Questions), closer)

		skipping := false
		for j := i + 1; ; j++ {
			if j == len(s.Steps) {
				writeEdge(&sb, safeID, EndNode, "", skipping)
				break
			}
			next := s.Steps[j]
			writeEdge(&sb, safeID, sanitizeMermaidID(next.ID), next.When.String(), skipping)
			if next.When == nil {
				break
			}
			skipping = true
		}
	}
	fmt.Fprintf(&sb, "    %s[(\"%s\")]\n", EndNode, EndNode)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		switch {
		case overlay.Completed:
			fmt.Fprintf(&sb, "    class %s current;\n", EndNode)
		case overlay.CurrentStep != "":
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

// writeEdge writes a transition. Edges that jump over a conditional step are dotted.
func writeEdge(sb *strings.Builder, from, to, condition string, skip bool) {
	arrow := "-->"
	if skip {
		arrow = "-.->"
	}
	if condition != "" {
		arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(condition))
		if skip {
			arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(condition))
		}
	}
	fmt.Fprintf(sb, "    %s %s %s\n", from, arrow, to)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
