package api

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AthleteHandler owns the athlete-facing read surface. Athletes only
// ever see published snapshots and materialized calendar entries,
// never live draft state.
type AthleteHandler struct {
	publishService service.PublishService
	materializer   service.MaterializerService
}

func NewAthleteHandler(publishService service.PublishService, materializer service.MaterializerService) *AthleteHandler {
	return &AthleteHandler{
		publishService: publishService,
		materializer:   materializer,
	}
}

// --- DTOs ---

type PublishedSessionResponse struct {
	SessionID       string               `json:"sessionId"`
	Week            int                  `json:"week"`
	Ordinal         int                  `json:"ordinal"`
	DayOfWeek       int                  `json:"dayOfWeek"`
	Discipline      string               `json:"discipline"`
	SessionType     string               `json:"sessionType"`
	DurationMinutes int                  `json:"durationMinutes"`
	Notes           string               `json:"notes,omitempty"`
	Detail          domain.SessionDetail `json:"detail"`
}

type PublishedPlanResponse struct {
	PlanID      string                     `json:"planId"`
	Title       string                     `json:"title"`
	ContentHash string                     `json:"contentHash"`
	PublishedAt time.Time                  `json:"publishedAt"`
	Sessions    []PublishedSessionResponse `json:"sessions"`
}

type ChangesResponse struct {
	HasUnseenChanges bool   `json:"hasUnseenChanges"`
	PublishedHash    string `json:"publishedHash"`
}

type AckResponse struct {
	PlanID       string    `json:"planId"`
	LastSeenHash string    `json:"lastSeenHash"`
	AckedAt      time.Time `json:"ackedAt"`
}

type CalendarEntryResponse struct {
	ID              string `json:"id"`
	PlanID          string `json:"planId"`
	Title           string `json:"title"`
	Week            int    `json:"week"`
	DayOfWeek       int    `json:"dayOfWeek"`
	DurationMinutes int    `json:"durationMinutes"`
	Notes           string `json:"notes,omitempty"`
}

// --- Handler Methods ---

// GetPublishedPlan returns the latest published snapshot of a plan.
func (h *AthleteHandler) GetPublishedPlan(c *gin.Context) {
	athleteID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	snapshot, err := h.publishService.GetPublishedPlan(c.Request.Context(), athleteID, planID)
	if err != nil {
		h.abortAthleteError(c, err)
		return
	}

	sessions := make([]PublishedSessionResponse, len(snapshot.Sessions))
	for i, s := range snapshot.Sessions {
		sessions[i] = PublishedSessionResponse{
			SessionID:       s.SessionID.Hex(),
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
	c.JSON(http.StatusOK, PublishedPlanResponse{
		PlanID:      snapshot.PlanID.Hex(),
		Title:       snapshot.Title,
		ContentHash: snapshot.ContentHash,
		PublishedAt: snapshot.PublishedAt,
		Sessions:    sessions,
	})
}

// GetChanges reports whether the plan was republished since the
// athlete's last acknowledgment.
func (h *AthleteHandler) GetChanges(c *gin.Context) {
	athleteID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	unseen, hash, err := h.publishService.HasUnseenChanges(c.Request.Context(), athleteID, planID)
	if err != nil {
		h.abortAthleteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChangesResponse{HasUnseenChanges: unseen, PublishedHash: hash})
}

// AckChanges records the currently published hash as seen.
func (h *AthleteHandler) AckChanges(c *gin.Context) {
	athleteID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	ack, err := h.publishService.AckPublished(c.Request.Context(), athleteID, planID)
	if err != nil {
		h.abortAthleteError(c, err)
		return
	}
	c.JSON(http.StatusOK, AckResponse{
		PlanID:       ack.PlanID.Hex(),
		LastSeenHash: ack.LastSeenHash,
		AckedAt:      ack.AckedAt,
	})
}

// GetCalendar lists the athlete's active materialized entries.
func (h *AthleteHandler) GetCalendar(c *gin.Context) {
	athleteID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	entries, err := h.materializer.AthleteCalendar(c.Request.Context(), athleteID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve calendar.")
		return
	}

	resp := make([]CalendarEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = CalendarEntryResponse{
			ID:              e.ID.Hex(),
			PlanID:          e.PlanID.Hex(),
			Title:           e.Title,
			Week:            e.Week,
			DayOfWeek:       e.DayOfWeek,
			DurationMinutes: e.DurationMinutes,
			Notes:           e.Notes,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AthleteHandler) abortAthleteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotYetPublished):
		abortWithCode(c, http.StatusNotFound, "NOT_YET_PUBLISHED", err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}
