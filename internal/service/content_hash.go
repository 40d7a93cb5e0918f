package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"coachdesk/coaching-app/internal/domain"
)

// publishedSessions freezes a draft's session list into the canonical
// publishable form. The input must already be in canonical order
// (week, ordinal, id); the repository listing guarantees that.
func publishedSessions(sessions []domain.DraftSession) []domain.PublishedSession {
	out := make([]domain.PublishedSession, len(sessions))
	for i, s := range sessions {
		out[i] = domain.PublishedSession{
			SessionID:       s.ID,
			Week:            s.Week,
			Ordinal:         s.Ordinal,
			DayOfWeek:       s.DayOfWeek,
			Discipline:      s.Discipline,
			SessionType:     s.SessionType,
			DurationMinutes: s.DurationMinutes,
			Notes:           s.Notes,
			Detail:          s.Detail,
		}
	}
	return out
}

// ContentHash computes the deterministic hash of a plan's publishable
// state. Publish idempotency is keyed on this value: identical content
// always yields an identical hash, so republishing unchanged content
// is a safe no-op. JSON struct encoding emits fields in declaration
// order, which keeps the serialization canonical.
func ContentHash(sessions []domain.DraftSession) string {
	published := publishedSessions(sessions)
	data, err := json.Marshal(published)
	if err != nil {
		// Marshaling a plain struct slice cannot fail at runtime; a
		// panic here means the domain types changed incompatibly.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
