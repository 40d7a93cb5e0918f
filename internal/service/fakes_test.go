package service

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They mirror the mongo implementations'
// observable behavior (ID assignment, timestamp bumping, state guards)
// without a database.

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- users ---

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) AddAthleteIDToCoach(ctx context.Context, coachID, athleteID primitive.ObjectID) error {
	coach, ok := r.users[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	coach.AthleteIDs = append(coach.AthleteIDs, athleteID)
	return nil
}

func (r *fakeUserRepo) GetAthletesByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.CoachID != nil && *u.CoachID == coachID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetCoachForAthlete(ctx context.Context, athleteID, coachID primitive.ObjectID) error {
	athlete, ok := r.users[athleteID]
	if !ok {
		return repository.ErrNotFound
	}
	athlete.CoachID = &coachID
	return nil
}

// --- plans ---

type fakePlanRepo struct {
	plans map[primitive.ObjectID]*domain.DraftPlan

	setLockedWeeksCalls int
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*domain.DraftPlan)}
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *domain.DraftPlan) (primitive.ObjectID, error) {
	plan.ID = primitive.NewObjectID()
	plan.CreatedAt = time.Now().UTC()
	plan.UpdatedAt = plan.CreatedAt
	if plan.VisibilityStatus == "" {
		plan.VisibilityStatus = domain.VisibilityDraft
	}
	cp := *plan
	r.plans[plan.ID] = &cp
	return plan.ID, nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftPlan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (r *fakePlanRepo) GetByAthleteAndCoachID(ctx context.Context, athleteID, coachID primitive.ObjectID) ([]domain.DraftPlan, error) {
	var out []domain.DraftPlan
	for _, p := range r.plans {
		if p.AthleteID == athleteID && p.CoachID == coachID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *domain.DraftPlan) error {
	stored, ok := r.plans[plan.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = plan.Title
	stored.PlanDoc = plan.PlanDoc
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakePlanRepo) SetPublishState(ctx context.Context, planID primitive.ObjectID, hash string) error {
	stored, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.LastPublishedHash = hash
	stored.VisibilityStatus = domain.VisibilityPublished
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakePlanRepo) SetLockedWeeks(ctx context.Context, planID primitive.ObjectID, weeks []int) error {
	r.setLockedWeeksCalls++
	stored, ok := r.plans[planID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.LockedWeeks = weeks
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// --- sessions ---

type fakeSessionRepo struct {
	sessions map[primitive.ObjectID]*domain.DraftSession
	// updateErr, when set, fails the next Update call.
	updateErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*domain.DraftSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.DraftSession) (primitive.ObjectID, error) {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt
	cp := *session
	r.sessions[session.ID] = &cp
	return session.ID, nil
}

func (r *fakeSessionRepo) CreateMany(ctx context.Context, sessions []domain.DraftSession) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, len(sessions))
	for i := range sessions {
		id, err := r.Create(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *fakeSessionRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.DraftSession, error) {
	var out []domain.DraftSession
	for _, id := range ids {
		if session, ok := r.sessions[id]; ok {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.DraftSession, error) {
	var out []domain.DraftSession
	for _, s := range r.sessions {
		if s.PlanID == planID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *domain.DraftSession) error {
	if r.updateErr != nil {
		err := r.updateErr
		r.updateErr = nil
		return err
	}
	stored, ok := r.sessions[session.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *session
	cp.UpdatedAt = time.Now().UTC()
	cp.CreatedAt = stored.CreatedAt
	r.sessions[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) SetLocked(ctx context.Context, sessionID primitive.ObjectID, locked bool) error {
	stored, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Locked = locked
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, sessionID, coachID primitive.ObjectID) error {
	stored, ok := r.sessions[sessionID]
	if !ok || stored.CoachID != coachID {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

// --- proposals ---

type fakeProposalRepo struct {
	proposals map[primitive.ObjectID]*domain.PlanChangeProposal
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[primitive.ObjectID]*domain.PlanChangeProposal)}
}

func (r *fakeProposalRepo) Create(ctx context.Context, proposal *domain.PlanChangeProposal) (primitive.ObjectID, error) {
	proposal.ID = primitive.NewObjectID()
	proposal.Status = domain.ProposalProposed
	proposal.CreatedAt = time.Now().UTC()
	cp := *proposal
	r.proposals[proposal.ID] = &cp
	return proposal.ID, nil
}

func (r *fakeProposalRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	proposal, ok := r.proposals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *proposal
	return &cp, nil
}

func (r *fakeProposalRepo) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error) {
	var out []domain.PlanChangeProposal
	for _, p := range r.proposals {
		if p.PlanID == planID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProposalRepo) MarkApplied(ctx context.Context, id primitive.ObjectID, inverse []domain.SessionPatch, at time.Time) error {
	stored, ok := r.proposals[id]
	if !ok || stored.Status != domain.ProposalProposed {
		return repository.ErrNotFound
	}
	stored.Status = domain.ProposalApplied
	stored.InversePatches = inverse
	stored.AppliedAt = &at
	return nil
}

func (r *fakeProposalRepo) MarkRejected(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	stored, ok := r.proposals[id]
	if !ok || stored.Status != domain.ProposalProposed {
		return repository.ErrNotFound
	}
	stored.Status = domain.ProposalRejected
	stored.RejectedAt = &at
	return nil
}

// --- audits ---

type fakeAuditRepo struct {
	audits []domain.PlanChangeAudit
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (r *fakeAuditRepo) Create(ctx context.Context, audit *domain.PlanChangeAudit) (primitive.ObjectID, error) {
	audit.ID = primitive.NewObjectID()
	audit.CreatedAt = time.Now().UTC()
	r.audits = append(r.audits, *audit)
	return audit.ID, nil
}

func (r *fakeAuditRepo) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error) {
	var out []domain.PlanChangeAudit
	for _, a := range r.audits {
		if a.PlanID == planID {
			out = append(out, a)
		}
	}
	return out, nil
}

// eventsFor filters the audit rows for one proposal.
func (r *fakeAuditRepo) eventsFor(proposalID primitive.ObjectID) []domain.AuditEvent {
	var out []domain.AuditEvent
	for _, a := range r.audits {
		if a.ProposalID == proposalID {
			out = append(out, a.Event)
		}
	}
	return out
}

// --- snapshots ---

type fakeSnapshotRepo struct {
	snapshots []domain.PublishSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo { return &fakeSnapshotRepo{} }

func (r *fakeSnapshotRepo) Create(ctx context.Context, snapshot *domain.PublishSnapshot) (primitive.ObjectID, error) {
	snapshot.ID = primitive.NewObjectID()
	if snapshot.PublishedAt.IsZero() {
		snapshot.PublishedAt = time.Now().UTC()
	}
	r.snapshots = append(r.snapshots, *snapshot)
	return snapshot.ID, nil
}

func (r *fakeSnapshotRepo) GetLatestByPlanID(ctx context.Context, planID primitive.ObjectID) (*domain.PublishSnapshot, error) {
	var latest *domain.PublishSnapshot
	for i := range r.snapshots {
		s := &r.snapshots[i]
		if s.PlanID != planID {
			continue
		}
		if latest == nil || s.PublishedAt.After(latest.PublishedAt) ||
			(s.PublishedAt.Equal(latest.PublishedAt) && s.ID.Hex() > latest.ID.Hex()) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeSnapshotRepo) SetArchiveKey(ctx context.Context, id primitive.ObjectID, key string) error {
	for i := range r.snapshots {
		if r.snapshots[i].ID == id {
			r.snapshots[i].ArchiveKey = key
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- publish acks ---

type fakeAckRepo struct {
	acks map[string]*domain.PublishAck
}

func newFakeAckRepo() *fakeAckRepo {
	return &fakeAckRepo{acks: make(map[string]*domain.PublishAck)}
}

func ackKey(planID, athleteID primitive.ObjectID) string {
	return planID.Hex() + "/" + athleteID.Hex()
}

func (r *fakeAckRepo) Upsert(ctx context.Context, ack *domain.PublishAck) error {
	key := ackKey(ack.PlanID, ack.AthleteID)
	if existing, ok := r.acks[key]; ok {
		existing.LastSeenHash = ack.LastSeenHash
		existing.AckedAt = ack.AckedAt
		return nil
	}
	ack.ID = primitive.NewObjectID()
	cp := *ack
	r.acks[key] = &cp
	return nil
}

func (r *fakeAckRepo) GetByPlanAndAthlete(ctx context.Context, planID, athleteID primitive.ObjectID) (*domain.PublishAck, error) {
	ack, ok := r.acks[ackKey(planID, athleteID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ack
	return &cp, nil
}

// --- calendar ---

type fakeCalendarRepo struct {
	entries map[string]*domain.CalendarEntry
	// upsertErr, when set, fails the next Upsert call.
	upsertErr error
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{entries: make(map[string]*domain.CalendarEntry)}
}

func calKey(athleteID primitive.ObjectID, originTag, sourceKey string) string {
	return athleteID.Hex() + "/" + originTag + "/" + sourceKey
}

func (r *fakeCalendarRepo) GetByPlan(ctx context.Context, athleteID primitive.ObjectID, originTag string, planID primitive.ObjectID) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	for _, e := range r.entries {
		if e.AthleteID == athleteID && e.OriginTag == originTag && e.PlanID == planID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeCalendarRepo) GetActiveByAthlete(ctx context.Context, athleteID primitive.ObjectID, originTag string) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	for _, e := range r.entries {
		if e.AthleteID == athleteID && e.OriginTag == originTag && e.Status == domain.EntryScheduled {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeCalendarRepo) Upsert(ctx context.Context, entry *domain.CalendarEntry) error {
	if r.upsertErr != nil {
		err := r.upsertErr
		r.upsertErr = nil
		return err
	}
	key := calKey(entry.AthleteID, entry.OriginTag, entry.SourceKey)
	now := time.Now().UTC()
	if existing, ok := r.entries[key]; ok {
		existing.Title = entry.Title
		existing.Week = entry.Week
		existing.DayOfWeek = entry.DayOfWeek
		existing.DurationMinutes = entry.DurationMinutes
		existing.Notes = entry.Notes
		existing.Status = domain.EntryScheduled
		existing.DeletedAt = nil
		existing.UpdatedAt = now
		return nil
	}
	entry.ID = primitive.NewObjectID()
	entry.Status = domain.EntryScheduled
	entry.CreatedAt = now
	entry.UpdatedAt = now
	cp := *entry
	r.entries[key] = &cp
	return nil
}

func (r *fakeCalendarRepo) SoftDelete(ctx context.Context, athleteID primitive.ObjectID, originTag, sourceKey string, at time.Time) error {
	entry, ok := r.entries[calKey(athleteID, originTag, sourceKey)]
	if !ok {
		return repository.ErrNotFound
	}
	entry.Status = domain.EntryRemoved
	entry.DeletedAt = &at
	entry.UpdatedAt = at
	return nil
}

// --- archive ---

type fakeArchive struct {
	stored map[string][]byte
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{stored: make(map[string][]byte)}
}

func (a *fakeArchive) Store(ctx context.Context, key string, body []byte, contentType string) error {
	a.stored[key] = body
	return nil
}

func (a *fakeArchive) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://archive.test/" + key, nil
}
