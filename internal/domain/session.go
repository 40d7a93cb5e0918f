package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlockRole identifies the role of a timed block within a session's
// structured detail.
type BlockRole string

const (
	BlockWarmup   BlockRole = "warmup"
	BlockMain     BlockRole = "main"
	BlockCooldown BlockRole = "cooldown"
)

// DetailBlock is one timed segment of a session.
type DetailBlock struct {
	Role    BlockRole `bson:"role" json:"role"`
	Minutes int       `bson:"minutes" json:"minutes"`
}

// SessionDetail is the structured breakdown of a session. Invariant:
// the block minutes always sum to the session's DurationMinutes, and
// Objective restates the current duration.
type SessionDetail struct {
	Objective string        `bson:"objective,omitempty" json:"objective,omitempty"`
	Blocks    []DetailBlock `bson:"blocks,omitempty" json:"blocks,omitempty"`
}

// TotalMinutes sums the block durations.
func (d *SessionDetail) TotalMinutes() int {
	total := 0
	for _, b := range d.Blocks {
		total += b.Minutes
	}
	return total
}

// DraftSession is a single planned session within a DraftPlan.
type DraftSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID          primitive.ObjectID `bson:"planId" json:"planId"`
	CoachID         primitive.ObjectID `bson:"coachId" json:"coachId"`     // Denormalized for easier query/auth
	AthleteID       primitive.ObjectID `bson:"athleteId" json:"athleteId"` // Denormalized
	Week            int                `bson:"week" json:"week"`
	Ordinal         int                `bson:"ordinal" json:"ordinal"` // Order within the week
	DayOfWeek       int                `bson:"dayOfWeek" json:"dayOfWeek"`
	Discipline      string             `bson:"discipline" json:"discipline"` // e.g., "run", "bike", "swim"
	SessionType     string             `bson:"sessionType" json:"sessionType"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Locked          bool               `bson:"locked" json:"locked"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Detail          SessionDetail      `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	// UpdatedAt doubles as the staleness marker captured in proposal
	// fingerprints; any mutation bumps it.
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SetDuration changes the session's duration and re-flows the detail
// blocks proportionally, rounding each block to the given granularity
// (minutes) while preserving the sum invariant. The rounding remainder
// is absorbed by the main block (or the largest block if none is
// tagged main). The objective text is rewritten to restate the new
// duration.
func (s *DraftSession) SetDuration(minutes, granularity int) {
	if minutes < 0 {
		minutes = 0
	}
	if granularity <= 0 {
		granularity = 5
	}

	oldTotal := s.Detail.TotalMinutes()
	s.DurationMinutes = minutes

	if len(s.Detail.Blocks) == 0 {
		s.Detail.Blocks = []DetailBlock{{Role: BlockMain, Minutes: minutes}}
	} else if oldTotal <= 0 {
		// Degenerate detail; give everything to the first block.
		for i := range s.Detail.Blocks {
			s.Detail.Blocks[i].Minutes = 0
		}
		s.Detail.Blocks[0].Minutes = minutes
	} else {
		rounded := 0
		for i := range s.Detail.Blocks {
			share := float64(s.Detail.Blocks[i].Minutes) / float64(oldTotal) * float64(minutes)
			m := int(share/float64(granularity)+0.5) * granularity
			if m < 0 {
				m = 0
			}
			s.Detail.Blocks[i].Minutes = m
			rounded += m
		}
		// Absorb the rounding remainder so the sum invariant holds.
		if diff := minutes - rounded; diff > 0 {
			s.Detail.Blocks[s.absorberBlockIndex()].Minutes += diff
		} else if diff < 0 {
			// Take the excess back, starting with the absorber and
			// then the largest remaining block, never driving a block
			// below zero. The rounded sum is at least minutes, so the
			// loop always terminates.
			excess := -diff
			idx := s.absorberBlockIndex()
			for excess > 0 {
				take := s.Detail.Blocks[idx].Minutes
				if take > excess {
					take = excess
				}
				s.Detail.Blocks[idx].Minutes -= take
				excess -= take
				if excess > 0 {
					idx = s.largestBlockIndex(-1)
				}
			}
		}
	}

	s.Detail.Objective = fmt.Sprintf("%d min %s", minutes, s.SessionType)
}

// absorberBlockIndex picks the block that soaks up rounding remainders:
// the main block if present, otherwise the largest.
func (s *DraftSession) absorberBlockIndex() int {
	for i, b := range s.Detail.Blocks {
		if b.Role == BlockMain {
			return i
		}
	}
	return s.largestBlockIndex(-1)
}

// largestBlockIndex returns the index of the largest block, skipping
// the given index (pass -1 to skip none).
func (s *DraftSession) largestBlockIndex(skip int) int {
	best := 0
	if best == skip && len(s.Detail.Blocks) > 1 {
		best = 1
	}
	for i, b := range s.Detail.Blocks {
		if i == skip {
			continue
		}
		if b.Minutes > s.Detail.Blocks[best].Minutes {
			best = i
		}
	}
	return best
}
