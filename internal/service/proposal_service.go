package service

import (
	"coachdesk/coaching-app/internal/diff"
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProposalNotFound    = errors.New("plan change proposal not found")
	ErrProposalNotProposed = errors.New("proposal is not in the proposed state")
	ErrProposalNotApplied  = errors.New("proposal is not in the applied state")
	ErrEmptyDiff           = errors.New("proposal diff contains no operations")
	ErrLockConflict        = errors.New("proposal would modify a locked session or week")
	ErrStaleProposal       = errors.New("targeted session changed since the proposal was created")
)

// LockConflictError carries the lock evaluator's typed reasons so the
// caller can name the offending sessions/weeks. errors.Is matches
// ErrLockConflict.
type LockConflictError struct {
	Report diff.LockReport
}

func (e *LockConflictError) Error() string {
	kinds := make([]string, len(e.Report.Reasons))
	for i, r := range e.Report.Reasons {
		kinds[i] = fmt.Sprintf("%s (session %s, week %d)", r.Kind, r.SessionID, r.Week)
	}
	return "proposal blocked by locks: " + strings.Join(kinds, ", ")
}

func (e *LockConflictError) Is(target error) bool { return target == ErrLockConflict }

// StaleProposalError names the sessions whose fingerprints no longer
// match (edited or deleted since proposal creation). errors.Is matches
// ErrStaleProposal.
type StaleProposalError struct {
	SessionIDs []string
}

func (e *StaleProposalError) Error() string {
	return "stale proposal: sessions changed since creation: " + strings.Join(e.SessionIDs, ", ")
}

func (e *StaleProposalError) Is(target error) bool { return target == ErrStaleProposal }

// BatchMode selects what happens after a batch approval pass.
type BatchMode string

const (
	BatchApprove           BatchMode = "approve"
	BatchApproveAndPublish BatchMode = "approve_and_publish"
)

// BatchItemResult reports one proposal's outcome within a batch.
type BatchItemResult struct {
	ProposalID string `json:"proposalId"`
	Approved   bool   `json:"approved"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"errorCode,omitempty"`
}

// BatchResult aggregates a batch approval. Publish is set only for
// BatchApproveAndPublish and reflects a single publish invoked after
// all approvals completed.
type BatchResult struct {
	Results []BatchItemResult `json:"results"`
	Publish *PublishResult    `json:"publish,omitempty"`
}

// --- Service Interface ---
type ProposalService interface {
	Create(ctx context.Context, coachID, planID primitive.ObjectID, patches []domain.SessionPatch, rationale string) (*domain.PlanChangeProposal, *diff.Preview, *diff.LockReport, error)
	GetByPlan(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error)
	Preview(ctx context.Context, coachID, proposalID primitive.ObjectID) (*diff.Preview, *diff.LockReport, error)
	Approve(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error)
	Reject(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error)
	Undo(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error)
	BatchApprove(ctx context.Context, coachID, planID primitive.ObjectID, proposalIDs []primitive.ObjectID, mode BatchMode) (*BatchResult, error)
	AuditLog(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error)
}

// --- Service Implementation ---

// proposalService owns the proposal lifecycle: creation, staleness and
// lock conflict detection, application, rejection, undo generation,
// and batch approval.
type proposalService struct {
	planRepo      repository.DraftPlanRepository
	sessionRepo   repository.DraftSessionRepository
	proposalRepo  repository.ProposalRepository
	auditRepo     repository.AuditRepository
	tx            repository.TxRunner
	publisher     PublishService
	blockGranMins int
}

// NewProposalService creates a new instance of proposalService.
func NewProposalService(
	planRepo repository.DraftPlanRepository,
	sessionRepo repository.DraftSessionRepository,
	proposalRepo repository.ProposalRepository,
	auditRepo repository.AuditRepository,
	tx repository.TxRunner,
	publisher PublishService,
	blockGranularityMinutes int,
) ProposalService {
	if blockGranularityMinutes <= 0 {
		blockGranularityMinutes = 5
	}
	return &proposalService{
		planRepo:      planRepo,
		sessionRepo:   sessionRepo,
		proposalRepo:  proposalRepo,
		auditRepo:     auditRepo,
		tx:            tx,
		publisher:     publisher,
		blockGranMins: blockGranularityMinutes,
	}
}

// Create persists a new proposal in the proposed state, capturing a
// fingerprint of every session the diff touches.
func (s *proposalService) Create(ctx context.Context, coachID, planID primitive.ObjectID, patches []domain.SessionPatch, rationale string) (*domain.PlanChangeProposal, *diff.Preview, *diff.LockReport, error) {
	plan, err := s.getOwnedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, nil, nil, err
	}

	patches = prunePatches(patches)
	if len(patches) == 0 {
		return nil, nil, nil, ErrEmptyDiff
	}

	sessions, err := s.sessionRepo.GetByPlanID(ctx, planID)
	if err != nil {
		return nil, nil, nil, err
	}

	lockReport := diff.EvaluateLocks(patches, sessions, plan.LockedWeeks)
	preview := diff.Render(patches, sessions, plan.Title)

	fingerprints := captureFingerprints(patches, sessions)

	proposal := &domain.PlanChangeProposal{
		PlanID:        planID,
		CoachID:       coachID,
		AthleteID:     plan.AthleteID,
		Patches:       patches,
		RespectsLocks: !lockReport.Blocked,
		Rationale:     rationale,
		Fingerprints:  fingerprints,
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		id, err := s.proposalRepo.Create(txCtx, proposal)
		if err != nil {
			return err
		}
		proposal.ID = id
		_, err = s.auditRepo.Create(txCtx, &domain.PlanChangeAudit{
			ProposalID: id,
			PlanID:     planID,
			Event:      domain.EventProposalCreated,
			Patches:    patches,
			ActorID:    coachID,
		})
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return proposal, &preview, &lockReport, nil
}

// GetByPlan lists a plan's proposals, newest first.
func (s *proposalService) GetByPlan(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error) {
	if _, err := s.getOwnedPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.proposalRepo.GetByPlanID(ctx, planID)
}

// Preview re-renders a stored proposal against the current draft
// state, including a fresh (informational) lock report.
func (s *proposalService) Preview(ctx context.Context, coachID, proposalID primitive.ObjectID) (*diff.Preview, *diff.LockReport, error) {
	proposal, plan, err := s.getOwnedProposal(ctx, coachID, proposalID)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := s.sessionRepo.GetByPlanID(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}

	preview := diff.Render(proposal.Patches, sessions, plan.Title)
	lockReport := diff.EvaluateLocks(proposal.Patches, sessions, plan.LockedWeeks)
	return &preview, &lockReport, nil
}

// Approve applies a proposal's patches to the draft. Lock safety is
// re-evaluated and every target's fingerprint is re-read (not cached)
// before any mutation; either check failing leaves the draft
// untouched. The session mutations, the proposal transition, and the
// single audit row commit atomically.
func (s *proposalService) Approve(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	proposal, plan, err := s.getOwnedProposal(ctx, coachID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != domain.ProposalProposed {
		return nil, ErrProposalNotProposed
	}

	now := time.Now().UTC()
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		// Only the targeted sessions matter here: lock evaluation
		// reads the target's own lock flag and week, and a target
		// absent from the read is reported as stale below.
		targetIDs := make([]primitive.ObjectID, 0, len(proposal.Patches))
		for _, patch := range proposal.Patches {
			targetIDs = append(targetIDs, patch.SessionID)
		}
		sessions, err := s.sessionRepo.GetByIDs(txCtx, targetIDs)
		if err != nil {
			return err
		}

		// Lock state may have changed since the proposal was created
		// or previewed; this is the enforced evaluation.
		lockReport := diff.EvaluateLocks(proposal.Patches, sessions, plan.LockedWeeks)
		if lockReport.Blocked {
			return &LockConflictError{Report: lockReport}
		}

		byID := make(map[primitive.ObjectID]*domain.DraftSession, len(sessions))
		for i := range sessions {
			byID[sessions[i].ID] = &sessions[i]
		}

		// Staleness: a deleted target is treated as a stronger form
		// of the same conflict as an edited one.
		var stale []string
		for _, patch := range proposal.Patches {
			target, ok := byID[patch.SessionID]
			if !ok {
				stale = append(stale, patch.SessionID.Hex())
				continue
			}
			fp, ok := proposal.FingerprintFor(patch.SessionID)
			if !ok || !target.UpdatedAt.Equal(fp.UpdatedAt) {
				stale = append(stale, patch.SessionID.Hex())
			}
		}
		if len(stale) > 0 {
			return &StaleProposalError{SessionIDs: stale}
		}

		// Apply, recording the field-wise inverse from pre-patch values.
		inverse := make([]domain.SessionPatch, 0, len(proposal.Patches))
		for _, patch := range proposal.Patches {
			target := byID[patch.SessionID]
			inverse = append(inverse, inversePatch(patch, target))
			applyPatch(target, patch, s.blockGranMins)
			if err := s.sessionRepo.Update(txCtx, target); err != nil {
				return err
			}
		}

		if err := s.proposalRepo.MarkApplied(txCtx, proposal.ID, inverse, now); err != nil {
			return err
		}

		// Exactly one audit row for this transition, even when the
		// caller combines approval with publish.
		_, err = s.auditRepo.Create(txCtx, &domain.PlanChangeAudit{
			ProposalID: proposal.ID,
			PlanID:     plan.ID,
			Event:      domain.EventProposalApplied,
			Patches:    proposal.Patches,
			ActorID:    coachID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.proposalRepo.GetByID(ctx, proposal.ID)
}

// Reject transitions a proposal to rejected without touching sessions.
func (s *proposalService) Reject(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	proposal, plan, err := s.getOwnedProposal(ctx, coachID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != domain.ProposalProposed {
		return nil, ErrProposalNotProposed
	}

	now := time.Now().UTC()
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.proposalRepo.MarkRejected(txCtx, proposal.ID, now); err != nil {
			return err
		}
		_, err := s.auditRepo.Create(txCtx, &domain.PlanChangeAudit{
			ProposalID: proposal.ID,
			PlanID:     plan.ID,
			Event:      domain.EventProposalRejected,
			ActorID:    coachID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.proposalRepo.GetByID(ctx, proposal.ID)
}

// Undo synthesizes a new proposed proposal from an applied proposal's
// inverse patches. The undo is not privileged: approving it runs the
// same staleness and lock checks as any other proposal.
func (s *proposalService) Undo(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	proposal, plan, err := s.getOwnedProposal(ctx, coachID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != domain.ProposalApplied || len(proposal.InversePatches) == 0 {
		return nil, ErrProposalNotApplied
	}

	rationale := fmt.Sprintf("undo of proposal %s", proposal.ID.Hex())
	undo, _, _, err := s.Create(ctx, coachID, plan.ID, proposal.InversePatches, rationale)
	return undo, err
}

// BatchApprove approves each proposal independently; one stale or
// locked proposal does not abort the others. When the mode requests
// publication, publish runs exactly once after all approvals complete.
func (s *proposalService) BatchApprove(ctx context.Context, coachID, planID primitive.ObjectID, proposalIDs []primitive.ObjectID, mode BatchMode) (*BatchResult, error) {
	if mode != BatchApprove && mode != BatchApproveAndPublish {
		return nil, fmt.Errorf("unknown batch mode %q", mode)
	}
	if _, err := s.getOwnedPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}

	result := &BatchResult{Results: make([]BatchItemResult, 0, len(proposalIDs))}
	for _, id := range proposalIDs {
		item := BatchItemResult{ProposalID: id.Hex()}
		if _, err := s.Approve(ctx, coachID, id); err != nil {
			item.Error = err.Error()
			item.ErrorCode = conflictCode(err)
		} else {
			item.Approved = true
		}
		result.Results = append(result.Results, item)
	}

	if mode == BatchApproveAndPublish {
		publish, err := s.publisher.Publish(ctx, coachID, planID)
		if err != nil {
			return result, err
		}
		result.Publish = publish
	}
	return result, nil
}

// AuditLog lists a plan's lifecycle events, oldest first.
func (s *proposalService) AuditLog(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error) {
	if _, err := s.getOwnedPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByPlanID(ctx, planID)
}

// conflictCode maps an approval error to a stable, client-facing code.
func conflictCode(err error) string {
	switch {
	case errors.Is(err, ErrLockConflict):
		return "LOCK_CONFLICT"
	case errors.Is(err, ErrStaleProposal):
		return "STALE_PROPOSAL_CONFLICT"
	case errors.Is(err, ErrProposalNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrProposalNotProposed):
		return "INVALID_STATE"
	default:
		return "INTERNAL"
	}
}

// --- Helpers ---

// prunePatches drops empty operations while preserving order.
func prunePatches(patches []domain.SessionPatch) []domain.SessionPatch {
	out := make([]domain.SessionPatch, 0, len(patches))
	for _, p := range patches {
		if p.SessionID == primitive.NilObjectID || p.IsEmpty() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// captureFingerprints records the current change marker of every
// session the diff touches. Sessions missing from the draft still get
// a zero fingerprint entry so approval reports them as stale rather
// than silently skipping them.
func captureFingerprints(patches []domain.SessionPatch, sessions []domain.DraftSession) []domain.SessionFingerprint {
	byID := make(map[primitive.ObjectID]*domain.DraftSession, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = &sessions[i]
	}

	seen := make(map[primitive.ObjectID]bool, len(patches))
	fingerprints := make([]domain.SessionFingerprint, 0, len(patches))
	for _, p := range patches {
		if seen[p.SessionID] {
			continue
		}
		seen[p.SessionID] = true
		fp := domain.SessionFingerprint{SessionID: p.SessionID}
		if target, ok := byID[p.SessionID]; ok {
			fp.UpdatedAt = target.UpdatedAt
		}
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints
}

// inversePatch builds the field-wise inverse of a patch from the
// session's pre-patch values.
func inversePatch(patch domain.SessionPatch, before *domain.DraftSession) domain.SessionPatch {
	inv := domain.SessionPatch{SessionID: patch.SessionID}
	if patch.SessionType != nil {
		prev := before.SessionType
		inv.SessionType = &prev
	}
	if patch.DurationMinutes != nil {
		prev := before.DurationMinutes
		inv.DurationMinutes = &prev
	}
	if patch.Notes != nil {
		prev := before.Notes
		inv.Notes = &prev
	}
	return inv
}

// applyPatch mutates the session with the patch's fields, re-flowing
// structured detail when the duration changes.
func applyPatch(session *domain.DraftSession, patch domain.SessionPatch, granularity int) {
	if patch.SessionType != nil {
		session.SessionType = *patch.SessionType
	}
	if patch.Notes != nil {
		session.Notes = *patch.Notes
	}
	if patch.DurationMinutes != nil {
		session.SetDuration(*patch.DurationMinutes, granularity)
	} else if patch.SessionType != nil {
		session.SetDuration(session.DurationMinutes, granularity)
	}
}

// getOwnedPlan fetches a plan and enforces coach ownership.
func (s *proposalService) getOwnedPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.DraftPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

// getOwnedProposal fetches a proposal plus its plan, enforcing coach
// ownership of both.
func (s *proposalService) getOwnedProposal(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.PlanChangeProposal, *domain.DraftPlan, error) {
	proposal, err := s.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrProposalNotFound
		}
		return nil, nil, err
	}
	plan, err := s.getOwnedPlan(ctx, coachID, proposal.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return proposal, plan, nil
}
