// internal/diff/render.go
package diff

import (
	"strconv"

	"coachdesk/coaching-app/internal/domain"
)

// FieldDelta is one before/after field change in a preview. Values are
// rendered as strings so the preview is directly displayable.
type FieldDelta struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// SessionPreview is the reviewable effect of one patch operation.
// Missing is set when the referenced session no longer exists; the
// caller decides whether to proceed partially.
type SessionPreview struct {
	SessionID string       `json:"sessionId"`
	Missing   bool         `json:"missing"`
	Week      int          `json:"week,omitempty"`
	DayOfWeek int          `json:"dayOfWeek,omitempty"`
	Changes   []FieldDelta `json:"changes,omitempty"`
}

// Preview is the rendered, human-reviewable form of a diff against the
// current draft state.
type Preview struct {
	PlanTitle string           `json:"planTitle,omitempty"`
	Sessions  []SessionPreview `json:"sessions"`
}

// Render turns a diff plus the current session list into a preview.
// It is a pure function: it performs no mutation and identical inputs
// always produce identical output. Unknown session references are
// reported in the preview rather than raising an error.
func Render(patches []domain.SessionPatch, sessions []domain.DraftSession, planTitle string) Preview {
	byID := make(map[string]*domain.DraftSession, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID.Hex()] = &sessions[i]
	}

	preview := Preview{
		PlanTitle: planTitle,
		Sessions:  make([]SessionPreview, 0, len(patches)),
	}
	for _, patch := range patches {
		sp := SessionPreview{SessionID: patch.SessionID.Hex()}
		target, ok := byID[sp.SessionID]
		if !ok {
			sp.Missing = true
			preview.Sessions = append(preview.Sessions, sp)
			continue
		}
		sp.Week = target.Week
		sp.DayOfWeek = target.DayOfWeek

		// Fixed field order keeps the rendering deterministic.
		if patch.SessionType != nil && *patch.SessionType != target.SessionType {
			sp.Changes = append(sp.Changes, FieldDelta{
				Field:  "sessionType",
				Before: target.SessionType,
				After:  *patch.SessionType,
			})
		}
		if patch.DurationMinutes != nil && *patch.DurationMinutes != target.DurationMinutes {
			sp.Changes = append(sp.Changes, FieldDelta{
				Field:  "durationMinutes",
				Before: strconv.Itoa(target.DurationMinutes),
				After:  strconv.Itoa(*patch.DurationMinutes),
			})
		}
		if patch.Notes != nil && *patch.Notes != target.Notes {
			sp.Changes = append(sp.Changes, FieldDelta{
				Field:  "notes",
				Before: target.Notes,
				After:  *patch.Notes,
			})
		}
		preview.Sessions = append(preview.Sessions, sp)
	}
	return preview
}
