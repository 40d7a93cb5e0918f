// internal/diff/locks.go
package diff

import (
	"coachdesk/coaching-app/internal/domain"
)

// LockReasonKind distinguishes why the lock evaluator blocked a patch.
type LockReasonKind string

const (
	ReasonSessionLocked LockReasonKind = "session-locked"
	ReasonWeekLocked    LockReasonKind = "week-locked"
)

// LockReason names one offending session or week.
type LockReason struct {
	Kind      LockReasonKind `json:"kind"`
	SessionID string         `json:"sessionId"`
	Week      int            `json:"week"`
}

// LockReport is the result of evaluating a diff against lock state.
type LockReport struct {
	Blocked bool         `json:"blocked"`
	Reasons []LockReason `json:"reasons,omitempty"`
}

// EvaluateLocks determines whether applying the diff would touch a
// locked session or a locked week. Pure. It is called twice in the
// lifecycle: at preview time (informational) and again at approval
// time (enforced), because lock state may change in between. Patches
// targeting unknown sessions are ignored here; staleness detection
// owns that case.
func EvaluateLocks(patches []domain.SessionPatch, sessions []domain.DraftSession, lockedWeeks []int) LockReport {
	byID := make(map[string]*domain.DraftSession, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID.Hex()] = &sessions[i]
	}
	weekLocked := make(map[int]bool, len(lockedWeeks))
	for _, w := range lockedWeeks {
		weekLocked[w] = true
	}

	var report LockReport
	for _, patch := range patches {
		target, ok := byID[patch.SessionID.Hex()]
		if !ok {
			continue
		}
		if target.Locked {
			report.Blocked = true
			report.Reasons = append(report.Reasons, LockReason{
				Kind:      ReasonSessionLocked,
				SessionID: target.ID.Hex(),
				Week:      target.Week,
			})
			continue
		}
		if weekLocked[target.Week] {
			report.Blocked = true
			report.Reasons = append(report.Reasons, LockReason{
				Kind:      ReasonWeekLocked,
				SessionID: target.ID.Hex(),
				Week:      target.Week,
			})
		}
	}
	return report
}
