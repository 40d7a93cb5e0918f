package api

import (
	"coachdesk/coaching-app/internal/diff"
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/service"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachHandler owns the coach-facing authoring surface: roster, draft
// plans and sessions, locks, the proposal lifecycle, publishing, and
// calendar materialization.
type CoachHandler struct {
	coachService    service.CoachService
	planService     service.PlanService
	proposalService service.ProposalService
	publishService  service.PublishService
	materializer    service.MaterializerService
}

func NewCoachHandler(
	coachService service.CoachService,
	planService service.PlanService,
	proposalService service.ProposalService,
	publishService service.PublishService,
	materializer service.MaterializerService,
) *CoachHandler {
	return &CoachHandler{
		coachService:    coachService,
		planService:     planService,
		proposalService: proposalService,
		publishService:  publishService,
		materializer:    materializer,
	}
}

// --- DTOs ---

type AddAthleteRequest struct {
	AthleteEmail string `json:"athleteEmail" binding:"required,email"`
}

type DetailBlockDTO struct {
	Role    string `json:"role" binding:"required,oneof=warmup main cooldown"`
	Minutes int    `json:"minutes" binding:"min=0"`
}

type SessionInputDTO struct {
	Week            int              `json:"week" binding:"required,min=1"`
	Ordinal         int              `json:"ordinal" binding:"min=0"`
	DayOfWeek       int              `json:"dayOfWeek" binding:"min=0,max=6"`
	Discipline      string           `json:"discipline" binding:"required"`
	SessionType     string           `json:"sessionType" binding:"required"`
	DurationMinutes int              `json:"durationMinutes" binding:"required,min=1"`
	Notes           string           `json:"notes"`
	Blocks          []DetailBlockDTO `json:"blocks"`
}

type CreatePlanRequest struct {
	Title    string            `json:"title" binding:"required"`
	PlanDoc  string            `json:"planDoc"`
	Sessions []SessionInputDTO `json:"sessions" binding:"required,min=1,dive"`
}

type UpdateSessionRequest struct {
	Week            *int    `json:"week"`
	Ordinal         *int    `json:"ordinal"`
	DayOfWeek       *int    `json:"dayOfWeek"`
	Discipline      *string `json:"discipline"`
	SessionType     *string `json:"sessionType"`
	DurationMinutes *int    `json:"durationMinutes"`
	Notes           *string `json:"notes"`
}

type SetLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

type SessionPatchDTO struct {
	SessionID       string  `json:"sessionId" binding:"required"`
	SessionType     *string `json:"sessionType"`
	DurationMinutes *int    `json:"durationMinutes"`
	Notes           *string `json:"notes"`
}

type CreateProposalRequest struct {
	Rationale string            `json:"rationale"`
	Patches   []SessionPatchDTO `json:"patches" binding:"required,min=1,dive"`
}

type BatchApproveRequest struct {
	ProposalIDs []string `json:"proposalIds" binding:"required,min=1"`
	Mode        string   `json:"mode" binding:"required,oneof=approve approve_and_publish"`
}

type PlanResponse struct {
	ID                string    `json:"id"`
	AthleteID         string    `json:"athleteId"`
	Title             string    `json:"title"`
	PlanDoc           string    `json:"planDoc,omitempty"`
	VisibilityStatus  string    `json:"visibilityStatus"`
	LastPublishedHash string    `json:"lastPublishedHash,omitempty"`
	LockedWeeks       []int     `json:"lockedWeeks,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type SessionResponse struct {
	ID              string               `json:"id"`
	PlanID          string               `json:"planId"`
	Week            int                  `json:"week"`
	Ordinal         int                  `json:"ordinal"`
	DayOfWeek       int                  `json:"dayOfWeek"`
	Discipline      string               `json:"discipline"`
	SessionType     string               `json:"sessionType"`
	DurationMinutes int                  `json:"durationMinutes"`
	Locked          bool                 `json:"locked"`
	Notes           string               `json:"notes,omitempty"`
	Detail          domain.SessionDetail `json:"detail"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type CreatePlanResponse struct {
	Plan     PlanResponse      `json:"plan"`
	Sessions []SessionResponse `json:"sessions"`
}

type ProposalResponse struct {
	ID            string                `json:"id"`
	PlanID        string                `json:"planId"`
	Status        domain.ProposalStatus `json:"status"`
	Patches       []SessionPatchDTO     `json:"patches"`
	RespectsLocks bool                  `json:"respectsLocks"`
	Rationale     string                `json:"rationale,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	AppliedAt     *time.Time            `json:"appliedAt,omitempty"`
	RejectedAt    *time.Time            `json:"rejectedAt,omitempty"`
}

type CreateProposalResponse struct {
	Proposal ProposalResponse `json:"proposal"`
	Preview  diff.Preview     `json:"preview"`
	Locks    diff.LockReport  `json:"locks"`
}

type PreviewResponse struct {
	Preview diff.Preview    `json:"preview"`
	Locks   diff.LockReport `json:"locks"`
}

type PublishResponse struct {
	Published   bool                       `json:"published"`
	Hash        string                     `json:"hash"`
	SnapshotID  string                     `json:"snapshotId,omitempty"`
	Calendar    *service.MaterializeResult `json:"calendar,omitempty"`
	Warning     string                     `json:"warning,omitempty"`
	WarningCode string                     `json:"warningCode,omitempty"`
}

type AuditEntryResponse struct {
	ID         string            `json:"id"`
	ProposalID string            `json:"proposalId"`
	Event      domain.AuditEvent `json:"event"`
	Patches    []SessionPatchDTO `json:"patches,omitempty"`
	ActorID    string            `json:"actorId"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// --- Roster ---

func (h *CoachHandler) AddAthleteByEmail(c *gin.Context) {
	var req AddAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	athlete, err := h.coachService.AddAthleteByEmail(c.Request.Context(), coachID, req.AthleteEmail)
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotRole) || errors.Is(err, service.ErrAthleteAlreadyAssigned) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to add athlete.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(athlete))
}

func (h *CoachHandler) GetManagedAthletes(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	athletes, err := h.coachService.GetManagedAthletes(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve managed athletes.")
		return
	}
	if athletes == nil {
		c.JSON(http.StatusOK, []UserResponse{})
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(athletes))
}

// --- Draft plans and sessions ---

func (h *CoachHandler) CreatePlan(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	athleteID, ok := pathObjectID(c, "athleteId")
	if !ok {
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	inputs := make([]service.SessionInput, len(req.Sessions))
	for i, s := range req.Sessions {
		blocks := make([]domain.DetailBlock, len(s.Blocks))
		for j, b := range s.Blocks {
			blocks[j] = domain.DetailBlock{Role: domain.BlockRole(b.Role), Minutes: b.Minutes}
		}
		inputs[i] = service.SessionInput{
			Week:            s.Week,
			Ordinal:         s.Ordinal,
			DayOfWeek:       s.DayOfWeek,
			Discipline:      s.Discipline,
			SessionType:     s.SessionType,
			DurationMinutes: s.DurationMinutes,
			Notes:           s.Notes,
			Blocks:          blocks,
		}
	}

	plan, sessions, err := h.planService.CreatePlan(c.Request.Context(), coachID, athleteID, req.Title, req.PlanDoc, inputs)
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotManaged) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create draft plan.")
		}
		return
	}

	c.JSON(http.StatusCreated, CreatePlanResponse{
		Plan:     MapPlanToResponse(plan),
		Sessions: MapSessionsToResponse(sessions),
	})
}

func (h *CoachHandler) GetPlansForAthlete(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	athleteID, ok := pathObjectID(c, "athleteId")
	if !ok {
		return
	}

	plans, err := h.planService.GetPlansForAthlete(c.Request.Context(), coachID, athleteID)
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotManaged) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve plans.")
		}
		return
	}

	resp := make([]PlanResponse, len(plans))
	for i := range plans {
		resp[i] = MapPlanToResponse(&plans[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CoachHandler) GetPlan(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), coachID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

func (h *CoachHandler) GetSessions(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	sessions, err := h.planService.GetSessions(c.Request.Context(), coachID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionsToResponse(sessions))
}

func (h *CoachHandler) UpdateSession(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.planService.UpdateSession(c.Request.Context(), coachID, sessionID, service.SessionUpdate{
		Week:            req.Week,
		Ordinal:         req.Ordinal,
		DayOfWeek:       req.DayOfWeek,
		Discipline:      req.Discipline,
		SessionType:     req.SessionType,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

func (h *CoachHandler) DeleteSession(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}

	if err := h.planService.DeleteSession(c.Request.Context(), coachID, sessionID); err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Locks ---

func (h *CoachHandler) SetSessionLock(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	sessionID, ok := pathObjectID(c, "sessionId")
	if !ok {
		return
	}

	var req SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.planService.SetSessionLock(c.Request.Context(), coachID, sessionID, *req.Locked)
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

func (h *CoachHandler) SetWeekLock(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid week number.")
		return
	}

	var req SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	plan, err := h.planService.SetWeekLock(c.Request.Context(), coachID, planID, week, *req.Locked)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// --- Proposal lifecycle ---

func (h *CoachHandler) CreateProposal(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	patches := make([]domain.SessionPatch, len(req.Patches))
	for i, p := range req.Patches {
		sessionID, err := primitive.ObjectIDFromHex(p.SessionID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid session ID in patch: "+p.SessionID)
			return
		}
		patches[i] = domain.SessionPatch{
			SessionID:       sessionID,
			SessionType:     p.SessionType,
			DurationMinutes: p.DurationMinutes,
			Notes:           p.Notes,
		}
	}

	proposal, preview, locks, err := h.proposalService.Create(c.Request.Context(), coachID, planID, patches, req.Rationale)
	if err != nil {
		if errors.Is(err, service.ErrEmptyDiff) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			h.abortPlanError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, CreateProposalResponse{
		Proposal: MapProposalToResponse(proposal),
		Preview:  *preview,
		Locks:    *locks,
	})
}

func (h *CoachHandler) GetProposals(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	proposals, err := h.proposalService.GetByPlan(c.Request.Context(), coachID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}

	resp := make([]ProposalResponse, len(proposals))
	for i := range proposals {
		resp[i] = MapProposalToResponse(&proposals[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CoachHandler) PreviewProposal(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	proposalID, ok := pathObjectID(c, "proposalId")
	if !ok {
		return
	}

	preview, locks, err := h.proposalService.Preview(c.Request.Context(), coachID, proposalID)
	if err != nil {
		h.abortProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{Preview: *preview, Locks: *locks})
}

func (h *CoachHandler) ApproveProposal(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	proposalID, ok := pathObjectID(c, "proposalId")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Approve(c.Request.Context(), coachID, proposalID)
	if err != nil {
		h.abortProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProposalToResponse(proposal))
}

func (h *CoachHandler) RejectProposal(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	proposalID, ok := pathObjectID(c, "proposalId")
	if !ok {
		return
	}

	proposal, err := h.proposalService.Reject(c.Request.Context(), coachID, proposalID)
	if err != nil {
		h.abortProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProposalToResponse(proposal))
}

func (h *CoachHandler) UndoProposal(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	proposalID, ok := pathObjectID(c, "proposalId")
	if !ok {
		return
	}

	undo, err := h.proposalService.Undo(c.Request.Context(), coachID, proposalID)
	if err != nil {
		if errors.Is(err, service.ErrProposalNotApplied) {
			abortWithError(c, http.StatusConflict, err.Error())
			return
		}
		h.abortProposalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapProposalToResponse(undo))
}

func (h *CoachHandler) BatchApproveProposals(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	var req BatchApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	proposalIDs := make([]primitive.ObjectID, len(req.ProposalIDs))
	for i, idStr := range req.ProposalIDs {
		id, err := primitive.ObjectIDFromHex(idStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid proposal ID: "+idStr)
			return
		}
		proposalIDs[i] = id
	}

	result, err := h.proposalService.BatchApprove(c.Request.Context(), coachID, planID, proposalIDs, service.BatchMode(req.Mode))
	if err != nil {
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CoachHandler) GetAuditLog(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	audits, err := h.proposalService.AuditLog(c.Request.Context(), coachID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}

	resp := make([]AuditEntryResponse, len(audits))
	for i := range audits {
		resp[i] = AuditEntryResponse{
			ID:         audits[i].ID.Hex(),
			ProposalID: audits[i].ProposalID.Hex(),
			Event:      audits[i].Event,
			Patches:    mapPatchesToDTO(audits[i].Patches),
			ActorID:    audits[i].ActorID.Hex(),
			CreatedAt:  audits[i].CreatedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// --- Publish and materialize ---

// Publish freezes the draft into a snapshot, then reconciles the
// athlete's calendar. A materialization failure does not undo the
// publish; it is reported as a warning so the coach can re-run
// materialization.
func (h *CoachHandler) Publish(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	result, err := h.publishService.Publish(c.Request.Context(), coachID, planID)
	if err != nil {
		h.abortPlanError(c, err)
		return
	}

	resp := PublishResponse{
		Published:  result.Published,
		Hash:       result.Hash,
		SnapshotID: result.SnapshotID,
	}
	calendar, err := h.materializer.Materialize(c.Request.Context(), coachID, planID)
	if err != nil {
		resp.Warning = err.Error()
		resp.WarningCode = "MATERIALIZATION_FAILED"
	} else {
		resp.Calendar = calendar
	}

	status := http.StatusOK
	if result.Published {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *CoachHandler) Materialize(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	result, err := h.materializer.Materialize(c.Request.Context(), coachID, planID)
	if err != nil {
		if errors.Is(err, service.ErrMaterializationFailed) {
			abortWithCode(c, http.StatusBadGateway, "MATERIALIZATION_FAILED", err.Error())
			return
		}
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CoachHandler) GetArchiveDownloadURL(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	url, err := h.publishService.ArchiveDownloadURL(c.Request.Context(), coachID, planID)
	if err != nil {
		if errors.Is(err, service.ErrSnapshotNoArchive) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		h.abortPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// --- Error mapping ---

func (h *CoachHandler) abortPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrNotYetPublished):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

func (h *CoachHandler) abortSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

func (h *CoachHandler) abortProposalError(c *gin.Context, err error) {
	var lockErr *service.LockConflictError
	var staleErr *service.StaleProposalError
	switch {
	case errors.As(err, &lockErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":    "LOCK_CONFLICT",
			"error":   err.Error(),
			"reasons": lockErr.Report.Reasons,
		})
	case errors.As(err, &staleErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":       "STALE_PROPOSAL_CONFLICT",
			"error":      err.Error(),
			"sessionIds": staleErr.SessionIDs,
		})
	case errors.Is(err, service.ErrProposalNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrProposalNotProposed):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		h.abortPlanError(c, err)
	}
}

// --- Mappers ---

func MapPlanToResponse(plan *domain.DraftPlan) PlanResponse {
	return PlanResponse{
		ID:                plan.ID.Hex(),
		AthleteID:         plan.AthleteID.Hex(),
		Title:             plan.Title,
		PlanDoc:           plan.PlanDoc,
		VisibilityStatus:  string(plan.VisibilityStatus),
		LastPublishedHash: plan.LastPublishedHash,
		LockedWeeks:       plan.LockedWeeks,
		CreatedAt:         plan.CreatedAt,
		UpdatedAt:         plan.UpdatedAt,
	}
}

func MapSessionToResponse(session *domain.DraftSession) SessionResponse {
	return SessionResponse{
		ID:              session.ID.Hex(),
		PlanID:          session.PlanID.Hex(),
		Week:            session.Week,
		Ordinal:         session.Ordinal,
		DayOfWeek:       session.DayOfWeek,
		Discipline:      session.Discipline,
		SessionType:     session.SessionType,
		DurationMinutes: session.DurationMinutes,
		Locked:          session.Locked,
		Notes:           session.Notes,
		Detail:          session.Detail,
		UpdatedAt:       session.UpdatedAt,
	}
}

func MapSessionsToResponse(sessions []domain.DraftSession) []SessionResponse {
	resp := make([]SessionResponse, len(sessions))
	for i := range sessions {
		resp[i] = MapSessionToResponse(&sessions[i])
	}
	return resp
}

func MapProposalToResponse(p *domain.PlanChangeProposal) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID.Hex(),
		PlanID:        p.PlanID.Hex(),
		Status:        p.Status,
		Patches:       mapPatchesToDTO(p.Patches),
		RespectsLocks: p.RespectsLocks,
		Rationale:     p.Rationale,
		CreatedAt:     p.CreatedAt,
		AppliedAt:     p.AppliedAt,
		RejectedAt:    p.RejectedAt,
	}
}

func mapPatchesToDTO(patches []domain.SessionPatch) []SessionPatchDTO {
	dtos := make([]SessionPatchDTO, len(patches))
	for i, p := range patches {
		dtos[i] = SessionPatchDTO{
			SessionID:       p.SessionID.Hex(),
			SessionType:     p.SessionType,
			DurationMinutes: p.DurationMinutes,
			Notes:           p.Notes,
		}
	}
	return dtos
}

// --- Context helpers ---

func userObjectIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+param+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}
