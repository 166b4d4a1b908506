package repository

import (
	"context"
	"time"

	"github.com/iliyamo/mission-control/internal/model"
)

// PingStore persists pings and answers owner-scoped queries.  Pings are
// append-only: there is no update or delete.  Implementations assign ids
// from a single sequence so ids grow strictly in creation order.
//
// The store performs no authorization; RespondToPing trusts that the caller
// has already checked the parent's owner.
type PingStore interface {
	CreatePing(ctx context.Context, userID uint64, in model.NewPing) (*model.Ping, error)
	RespondToPing(ctx context.Context, parentID, userID uint64, in model.NewPing) (*model.Ping, error)
	GetPingByID(ctx context.Context, id uint64) (*model.Ping, error)
	GetUserPings(ctx context.Context, userID uint64) ([]*model.Ping, error)
	GetLatestUserPings(ctx context.Context, userID uint64, limit int) ([]*model.Ping, error)
}

// UserStore persists agent accounts.
type UserStore interface {
	CreateUser(ctx context.Context, in model.NewUser) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore persists and validates refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

var (
	_ PingStore  = (*PingRepo)(nil)
	_ PingStore  = (*MemoryPingStore)(nil)
	_ UserStore  = (*UserRepo)(nil)
	_ UserStore  = (*MemoryUserStore)(nil)
	_ TokenStore = (*TokenRepo)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)
