package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// mockRepos bundles the in-memory repositories behind one aggregate.
type mockRepos struct {
	user        *mockUserRepo
	progress    *mockProgressRepo
	points      *mockPointsRepo
	achievement *mockAchievementRepo
	guestCode   *mockGuestCodeRepo
	session     *mockGuestSessionRepo
	betaCode    *mockBetaCodeRepo
	exercise    *mockExerciseRepo
	observation *mockObservationRepo
	challenge   *mockChallengeRepo
	payment     *mockPaymentRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:        newMockUserRepo(),
		progress:    newMockProgressRepo(),
		points:      &mockPointsRepo{},
		achievement: &mockAchievementRepo{rows: map[string]model.UserAchievement{}},
		guestCode:   &mockGuestCodeRepo{codes: map[string]*model.GuestCode{}},
		session:     &mockGuestSessionRepo{sessions: map[string]*model.GuestSession{}},
		betaCode:    &mockBetaCodeRepo{codes: map[string]*model.BetaInvitationCode{}},
		exercise:    &mockExerciseRepo{exercises: map[string]*model.Exercise{}},
		observation: &mockObservationRepo{observations: map[string]*model.Observation{}, likes: map[string]bool{}},
		challenge:   &mockChallengeRepo{challenges: map[string]*model.Challenge{}},
		payment:     &mockPaymentRepo{bySession: map[string]*model.Payment{}},
	}
	repo := &repository.Repository{
		User:          m.user,
		Progress:      m.progress,
		PointsHistory: m.points,
		Achievement:   m.achievement,
		GuestCode:     m.guestCode,
		GuestSession:  m.session,
		BetaCode:      m.betaCode,
		Exercise:      m.exercise,
		Observation:   m.observation,
		Challenge:     m.challenge,
		Payment:       m.payment,
	}
	return repo, m
}

var idSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	idSeq.Lock()
	defer idSeq.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s-%04d", prefix, idSeq.n)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(id, email, role string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{UserID: id, Email: email, Role: role, SubscriptionStatus: model.SubscriptionNone}
	m.users[id] = u
	return u
}

func (m *mockUserRepo) get(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = nextID("user")
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(user.Email) {
			return fmt.Errorf("duplicate email %s", user.Email)
		}
	}
	user.Email = strings.ToLower(user.Email)
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Ensure(ctx context.Context, id, email string) (*model.User, error) {
	m.mu.Lock()
	if _, ok := m.users[id]; !ok {
		taken := false
		for _, u := range m.users {
			if u.Email == strings.ToLower(email) {
				taken = true
			}
		}
		// ON CONFLICT DO NOTHING covers the email column too
		if !taken {
			m.users[id] = &model.User{UserID: id, Email: strings.ToLower(email), Role: model.RoleUser, SubscriptionStatus: model.SubscriptionNone}
		}
	}
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) update(id string, fn func(u *model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(u)
	return nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id, role string) error {
	return m.update(id, func(u *model.User) { u.Role = role })
}

func (m *mockUserRepo) UpdateIdentity(_ context.Context, id, email, role string) error {
	return m.update(id, func(u *model.User) {
		u.Email = strings.ToLower(email)
		u.Role = role
	})
}

func (m *mockUserRepo) UpdateSubscription(_ context.Context, id, status, role string) error {
	return m.update(id, func(u *model.User) {
		u.SubscriptionStatus = status
		u.Role = role
	})
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if filters != nil && filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if filters != nil && filters.Keyword != "" && !strings.Contains(u.Email, strings.ToLower(filters.Keyword)) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	total := int64(len(result))
	return page(result, offset, limit), total, nil
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// ── Mock ProgressRepository ──

type mockProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*model.UserProgress
	// conflicts makes the next N ApplyCompletion calls fail as if another
	// writer had bumped the version.
	conflicts int
	applied   int
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{rows: make(map[string]*model.UserProgress)}
}

func (m *mockProgressRepo) set(p model.UserProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	m.rows[p.UserID] = &p
}

func (m *mockProgressRepo) Get(_ context.Context, userID string) (*model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProgressRepo) GetOrCreate(ctx context.Context, userID string) (*model.UserProgress, error) {
	m.mu.Lock()
	if _, ok := m.rows[userID]; !ok {
		m.rows[userID] = &model.UserProgress{UserID: userID, VersionedModel: model.VersionedModel{Version: 1}}
	}
	m.mu.Unlock()
	return m.Get(ctx, userID)
}

func (m *mockProgressRepo) ApplyCompletion(_ context.Context, u repository.CompletionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[u.UserID]
	if !ok {
		return pkgerrors.ErrOptimisticLock
	}
	if m.conflicts > 0 {
		m.conflicts--
		p.Version++
		return pkgerrors.ErrOptimisticLock
	}
	if p.Version != u.ExpectedVersion {
		return pkgerrors.ErrOptimisticLock
	}
	p.XP += u.XPGained
	p.Level = p.XP / u.LevelThreshold
	p.Streak = u.Streak
	d := u.ActiveDate
	p.LastActiveDate = &d
	p.ExercisesCompleted++
	if u.Perfect {
		p.PerfectScores++
	}
	p.Version++
	m.applied++
	return nil
}

func (m *mockProgressRepo) AddXP(_ context.Context, userID string, delta, levelThreshold int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.XP += delta
	p.Level = p.XP / levelThreshold
	p.Version++
	return nil
}

func (m *mockProgressRepo) sorted() []model.UserProgress {
	rows := make([]model.UserProgress, 0, len(m.rows))
	for _, p := range m.rows {
		rows = append(rows, *p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].XP != rows[j].XP {
			return rows[i].XP > rows[j].XP
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}

func (m *mockProgressRepo) TopByXP(_ context.Context, limit int) ([]model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(m.sorted(), 0, limit), nil
}

func (m *mockProgressRepo) AllXP(_ context.Context) ([]model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *mockProgressRepo) RankOf(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	var ahead int64
	for _, o := range m.rows {
		if o.XP > p.XP {
			ahead++
		}
	}
	return ahead + 1, nil
}

// ── Mock PointsHistoryRepository ──

type mockPointsRepo struct {
	mu      sync.Mutex
	entries []model.PointsHistory
}

func (m *mockPointsRepo) Append(_ context.Context, entry *model.PointsHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = nextID("ph")
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockPointsRepo) forUser(userID string) []model.PointsHistory {
	var out []model.PointsHistory
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out
}

func (m *mockPointsRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.PointsHistory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.forUser(userID)
	return page(rows, offset, limit), int64(len(rows)), nil
}

func (m *mockPointsRepo) SumByUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, e := range m.forUser(userID) {
		sum += e.PointsChange
	}
	return sum, nil
}

func (m *mockPointsRepo) SumInWindow(_ context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, e := range m.forUser(userID) {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			sum += e.PointsChange
		}
	}
	return sum, nil
}

// ── Mock AchievementRepository ──

type mockAchievementRepo struct {
	mu   sync.Mutex
	rows map[string]model.UserAchievement
}

func (m *mockAchievementRepo) Award(_ context.Context, userID, name string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + name
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = model.UserAchievement{UserID: userID, Name: name, AwardedAt: at}
	return true, nil
}

func (m *mockAchievementRepo) ListByUser(_ context.Context, userID string) ([]model.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserAchievement
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ── Mock GuestCodeRepository / GuestSessionRepository ──

type mockGuestCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.GuestCode
}

func (m *mockGuestCodeRepo) Create(_ context.Context, code *model.GuestCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *code
	m.codes[code.Code] = &cp
	return nil
}

func (m *mockGuestCodeRepo) Get(_ context.Context, code string) (*model.GuestCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGuestCodeRepo) Consume(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.Activations >= c.MaxActivations {
		return false, nil
	}
	c.Activations++
	return true, nil
}

type mockGuestSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.GuestSession
}

func (m *mockGuestSessionRepo) Create(_ context.Context, s *model.GuestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = nextID("gs")
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockGuestSessionRepo) LatestByUser(_ context.Context, userID string) (*model.GuestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.GuestSession
	for _, s := range m.sessions {
		if s.UserID == userID && (latest == nil || s.StartedAt.After(latest.StartedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockGuestSessionRepo) MarkConverted(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.ConvertedAt != nil {
		return false, nil
	}
	s.ConvertedAt = &at
	return true, nil
}

// ── Mock BetaCodeRepository ──

// mockBetaCodeRepo mirrors the conditional update of the real repository:
// MarkUsed is a compare-and-set under the mutex.
type mockBetaCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.BetaInvitationCode
}

func (m *mockBetaCodeRepo) add(code, org string, expiresAt *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = &model.BetaInvitationCode{ID: nextID("bc"), Code: code, Organization: org, BatchID: "batch-1", ExpiresAt: expiresAt}
}

func (m *mockBetaCodeRepo) CreateBatch(_ context.Context, codes []*model.BetaInvitationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range codes {
		if _, dup := m.codes[c.Code]; dup {
			return fmt.Errorf("duplicate code %s", c.Code)
		}
	}
	for _, c := range codes {
		if c.ID == "" {
			c.ID = nextID("bc")
		}
		cp := *c
		m.codes[c.Code] = &cp
	}
	return nil
}

func (m *mockBetaCodeRepo) GetByCode(_ context.Context, code string) (*model.BetaInvitationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBetaCodeRepo) MarkUsed(_ context.Context, code, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok || c.IsUsed {
		return false, nil
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(at) {
		return false, nil
	}
	c.IsUsed = true
	c.UsedBy = &userID
	c.UsedAt = &at
	return true, nil
}

func (m *mockBetaCodeRepo) List(_ context.Context, filters *repository.BetaCodeListFilters, offset, limit int) ([]model.BetaInvitationCode, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BetaInvitationCode
	for _, c := range m.codes {
		if filters != nil {
			if filters.Organization != "" && c.Organization != filters.Organization {
				continue
			}
			if filters.BatchID != "" && c.BatchID != filters.BatchID {
				continue
			}
			if filters.Used != nil && c.IsUsed != *filters.Used {
				continue
			}
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, offset, limit), int64(len(out)), nil
}

// ── Mock ExerciseRepository ──

type mockExerciseRepo struct {
	mu        sync.Mutex
	exercises map[string]*model.Exercise
	attempts  []model.ExerciseAttempt
}

func (m *mockExerciseRepo) Create(_ context.Context, e *model.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = nextID("ex")
	}
	cp := *e
	m.exercises[e.ID] = &cp
	return nil
}

func (m *mockExerciseRepo) GetByID(_ context.Context, id string) (*model.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.exercises[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExerciseRepo) List(_ context.Context, unit string) ([]model.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exercise
	for _, e := range m.exercises {
		if unit == "" || e.Unit == unit {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *mockExerciseRepo) RecordAttempt(_ context.Context, a *model.ExerciseAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *a)
	return nil
}

// ── Mock ObservationRepository ──

type mockObservationRepo struct {
	mu           sync.Mutex
	observations map[string]*model.Observation
	likes        map[string]bool
}

func (m *mockObservationRepo) Create(_ context.Context, o *model.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = nextID("obs")
	}
	cp := *o
	m.observations[o.ID] = &cp
	return nil
}

func (m *mockObservationRepo) GetByID(_ context.Context, id string) (*model.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.observations[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockObservationRepo) RemoveLike(_ context.Context, observationID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := observationID + "|" + userID
	if !m.likes[key] {
		return false, nil
	}
	delete(m.likes, key)
	return true, nil
}

func (m *mockObservationRepo) AddLike(_ context.Context, observationID, userID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := observationID + "|" + userID
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *mockObservationRepo) RecountLikes(_ context.Context, observationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.likes {
		if strings.HasPrefix(key, observationID+"|") {
			n++
		}
	}
	if o, ok := m.observations[observationID]; ok {
		o.Likes = n
	}
	return n, nil
}

// ── Mock ChallengeRepository ──

type mockChallengeRepo struct {
	mu         sync.Mutex
	challenges map[string]*model.Challenge
}

func (m *mockChallengeRepo) Create(_ context.Context, c *model.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = nextID("ch")
	}
	cp := *c
	m.challenges[c.ID] = &cp
	return nil
}

func (m *mockChallengeRepo) GetByID(_ context.Context, id string) (*model.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.challenges[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChallengeRepo) ListActive(_ context.Context, at time.Time) ([]model.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Challenge
	for _, c := range m.challenges {
		if !c.StartsAt.After(at) && c.EndsAt.After(at) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

// ── Mock PaymentRepository ──

type mockPaymentRepo struct {
	mu        sync.Mutex
	bySession map[string]*model.Payment
}

func (m *mockPaymentRepo) CreateIfAbsent(_ context.Context, p *model.Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySession[p.ProviderSessionID]; ok {
		return false, nil
	}
	if p.ID == "" {
		p.ID = nextID("pay")
	}
	cp := *p
	m.bySession[p.ProviderSessionID] = &cp
	return true, nil
}

func (m *mockPaymentRepo) ListByUser(_ context.Context, userID string) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Payment
	for _, p := range m.bySession {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}
