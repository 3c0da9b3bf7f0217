package service

import (
	"context"
	"sync"
	"time"

	"aidesk/internal/models"
	"aidesk/internal/repository"
)

// memStore is an in-memory implementation of all four store interfaces,
// matching the repository contracts: lookups return (nil, nil) when no row
// matches, unique constraints return repository.ErrDuplicateKey, and
// compound operations are atomic under the mutex.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*models.Account
	users    map[int64]*models.User
	sessions map[string]*models.Session
	resets   map[string]*models.PasswordResetRequest
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]*models.Account),
		users:    make(map[int64]*models.User),
		sessions: make(map[string]*models.Session),
		resets:   make(map[string]*models.PasswordResetRequest),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) ProvisionWithOwner(ctx context.Context, account *models.Account, user *models.User, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	for _, a := range m.accounts {
		if a.AccountID == account.AccountID {
			return repository.ErrDuplicateKey
		}
	}

	now := time.Now()
	account.ID = m.id()
	account.CreatedAt = now
	account.UpdatedAt = now
	user.ID = m.id()
	user.AccountID = account.ID
	user.CreatedAt = now
	user.UpdatedAt = now
	session.ID = m.id()
	session.UserID = user.ID
	session.CreatedAt = now

	m.accounts[account.ID] = copyAccount(account)
	m.users[user.ID] = copyUser(user)
	m.sessions[session.TokenDigest] = copySession(session)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return copyAccount(a), nil
	}
	return nil, nil
}

func (m *memStore) UpdatePlan(ctx context.Context, id int64, plan models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.Plan = plan
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// GetUserByID resolves the UserStore lookup; the method name avoids a clash
// with the AccountStore GetByID on the same fake.
func (m *memStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, id int64, name, avatar string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Name = name
		u.Avatar = avatar
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = m.id()
	session.CreatedAt = time.Now()
	m.sessions[session.TokenDigest] = copySession(session)
	return nil
}

func (m *memStore) GetByTokenDigest(ctx context.Context, digest string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[digest]; ok {
		return copySession(s), nil
	}
	return nil, nil
}

func (m *memStore) DeleteByTokenDigest(ctx context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, digest)
	return nil
}

func (m *memStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for digest, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, digest)
		}
	}
	return nil
}

func (m *memStore) DeleteAllForUserExcept(ctx context.Context, userID int64, keepDigest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for digest, s := range m.sessions {
		if s.UserID == userID && digest != keepDigest {
			delete(m.sessions, digest)
		}
	}
	return nil
}

func (m *memStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for digest, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, digest)
		}
	}
	for digest, r := range m.resets {
		if r.ExpiresAt.Before(now) {
			delete(m.resets, digest)
		}
	}
	return nil
}

func (m *memStore) Supersede(ctx context.Context, request *models.PasswordResetRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for digest, r := range m.resets {
		if r.UserID == request.UserID {
			delete(m.resets, digest)
		}
	}
	request.ID = m.id()
	request.Used = false
	request.CreatedAt = time.Now()
	m.resets[request.TokenDigest] = copyReset(request)
	return nil
}

func (m *memStore) GetResetByTokenDigest(ctx context.Context, digest string) (*models.PasswordResetRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.resets[digest]; ok {
		return copyReset(r), nil
	}
	return nil, nil
}

func (m *memStore) ConsumeAndSetPassword(ctx context.Context, digest, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[digest]
	if !ok || r.Used || r.IsExpired() {
		return 0, repository.ErrNotFound
	}
	r.Used = true
	if u, ok := m.users[r.UserID]; ok {
		u.PasswordHash = passwordHash
	}
	return r.UserID, nil
}

func (m *memStore) sessionCountForUser(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			count++
		}
	}
	return count
}

// userView narrows memStore to UserStore with the right GetByID
type userView struct{ *memStore }

func (v userView) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return v.GetUserByID(ctx, id)
}

// resetView narrows memStore to ResetStore with the right GetByTokenDigest
type resetView struct{ *memStore }

func (v resetView) GetByTokenDigest(ctx context.Context, digest string) (*models.PasswordResetRequest, error) {
	return v.GetResetByTokenDigest(ctx, digest)
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copySession(s *models.Session) *models.Session {
	c := *s
	return &c
}

func copyReset(r *models.PasswordResetRequest) *models.PasswordResetRequest {
	c := *r
	return &c
}
