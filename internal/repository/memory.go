package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/mission-control/internal/model"
)

// MemoryPingStore keeps pings in a process-local slice.  It is used for the
// "memory" storage backend and as the store behind service and handler
// tests.  A single mutex serializes the id counter; records are copied on
// the way in and out so callers can never mutate stored pings.
type MemoryPingStore struct {
	mu     sync.RWMutex
	pings  []*model.Ping
	byID   map[uint64]*model.Ping
	nextID uint64
	now    func() time.Time
}

// NewMemoryPingStore returns an empty store.  A nil clock defaults to
// time.Now.
func NewMemoryPingStore(now func() time.Time) *MemoryPingStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryPingStore{byID: make(map[uint64]*model.Ping), nextID: 1, now: now}
}

func (s *MemoryPingStore) CreatePing(ctx context.Context, userID uint64, in model.NewPing) (*model.Ping, error) {
	return s.insert(ctx, userID, nil, in)
}

func (s *MemoryPingStore) RespondToPing(ctx context.Context, parentID, userID uint64, in model.NewPing) (*model.Ping, error) {
	return s.insert(ctx, userID, &parentID, in)
}

func (s *MemoryPingStore) insert(ctx context.Context, userID uint64, parentID *uint64, in model.NewPing) (*model.Ping, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("insert ping", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now().UTC()
	// createdAt must not go backwards relative to id order
	if n := len(s.pings); n > 0 && created.Before(s.pings[n-1].CreatedAt) {
		created = s.pings[n-1].CreatedAt
	}
	p := &model.Ping{
		ID:        s.nextID,
		UserID:    userID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Message:   copyString(in.Message),
		CreatedAt: created,
	}
	if parentID != nil {
		id := *parentID
		p.ParentPingID = &id
	}
	s.nextID++
	s.pings = append(s.pings, p)
	s.byID[p.ID] = p
	return clonePing(p), nil
}

func (s *MemoryPingStore) GetPingByID(ctx context.Context, id uint64) (*model.Ping, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("get ping", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePing(p), nil
}

// GetUserPings returns the user's pings in creation order.
func (s *MemoryPingStore) GetUserPings(ctx context.Context, userID uint64) ([]*model.Ping, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("list pings", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Ping, 0)
	for _, p := range s.pings {
		if p.UserID == userID {
			out = append(out, clonePing(p))
		}
	}
	return out, nil
}

// GetLatestUserPings returns at most limit pings, newest first.
func (s *MemoryPingStore) GetLatestUserPings(ctx context.Context, userID uint64, limit int) ([]*model.Ping, error) {
	if limit <= 0 {
		return []*model.Ping{}, nil
	}
	all, err := s.GetUserPings(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// MemoryUserStore keeps agent accounts in memory.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[uint64]*model.User
	byUsername map[string]uint64
	nextID     uint64
	now        func() time.Time
}

func NewMemoryUserStore(now func() time.Time) *MemoryUserStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryUserStore{
		byID:       make(map[uint64]*model.User),
		byUsername: make(map[string]uint64),
		nextID:     1,
		now:        now,
	}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, in model.NewUser) (*model.User, error) {
	key := normalizeUsername(in.Username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[key]; taken {
		return nil, ErrUsernameExists
	}
	u := &model.User{
		ID:           s.nextID,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: in.PasswordHash,
		Email:        copyString(in.Email),
		FirstName:    copyString(in.FirstName),
		LastName:     copyString(in.LastName),
		CreatedAt:    s.now().UTC(),
	}
	s.nextID++
	s.byID[u.ID] = u
	s.byUsername[key] = u.ID
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[normalizeUsername(username)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// MemoryTokenStore keeps refresh token hashes in memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
	now    func() time.Time
}

func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{tokens: make(map[string]*model.RefreshToken), now: now}
}

func (s *MemoryTokenStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &model.RefreshToken{
		ID:        uint64(len(s.tokens) + 1),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: s.now().UTC(),
	}
	return nil
}

// ValidateRefresh returns the owner of a non-revoked, non-expired token.
func (s *MemoryTokenStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || s.now().UTC().After(t.ExpiresAt) {
		return 0, ErrNotFound
	}
	return t.UserID, nil
}

func (s *MemoryTokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := s.now().UTC()
		t.RevokedAt = &now
	}
	return nil
}

func (s *MemoryTokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func clonePing(p *model.Ping) *model.Ping {
	cp := *p
	cp.Message = copyString(p.Message)
	if p.ParentPingID != nil {
		id := *p.ParentPingID
		cp.ParentPingID = &id
	}
	return &cp
}
