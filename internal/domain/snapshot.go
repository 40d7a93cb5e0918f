package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublishedSession is a frozen copy of one DraftSession's publishable
// fields, stored inside a PublishSnapshot.
type PublishedSession struct {
	SessionID       primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	Week            int                `bson:"week" json:"week"`
	Ordinal         int                `bson:"ordinal" json:"ordinal"`
	DayOfWeek       int                `bson:"dayOfWeek" json:"dayOfWeek"`
	Discipline      string             `bson:"discipline" json:"discipline"`
	SessionType     string             `bson:"sessionType" json:"sessionType"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Detail          SessionDetail      `bson:"detail,omitempty" json:"detail,omitempty"`
}

// PublishSnapshot is an immutable, hashed freeze of a draft plan's
// publishable state. Multiple snapshots form a plan's publish history;
// only the most recent is athlete-visible.
type PublishSnapshot struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID      primitive.ObjectID `bson:"planId" json:"planId"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	ContentHash string             `bson:"contentHash" json:"contentHash"`
	Title       string             `bson:"title" json:"title"`
	Sessions    []PublishedSession `bson:"sessions" json:"sessions"`
	PublishedAt time.Time          `bson:"publishedAt" json:"publishedAt"`
	// ArchiveKey is set when the serialized snapshot was archived to
	// object storage; archival is best-effort.
	ArchiveKey string `bson:"archiveKey,omitempty" json:"archiveKey,omitempty"`
}

// PublishAck records the last published hash an athlete has seen, per
// plan. Comparing it against the plan's LastPublishedHash yields the
// "new changes available" signal.
type PublishAck struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID       primitive.ObjectID `bson:"planId" json:"planId"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	LastSeenHash string             `bson:"lastSeenHash" json:"lastSeenHash"`
	AckedAt      time.Time          `bson:"ackedAt" json:"ackedAt"`
}
