// Package repository contains data access logic separated from HTTP handlers.
// This file defines the MySQL implementation of PingStore.  Pings live in a
// single `pings` table; a response references its parent through the
// nullable parent_ping_id column.
package repository

import (
	"context"      // context carries deadlines for DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to match driver errors
	"strings"      // strings inspects constraint names in driver errors
	"sync"         // sync serializes inserts of one process
	"time"         // time stamps created_at

	"github.com/go-sql-driver/mysql" // mysql exposes typed driver errors

	"github.com/iliyamo/mission-control/internal/model"
)

const pingColumns = "id, user_id, latitude, longitude, message, parent_ping_id, created_at"

// PingRepo encapsulates all database queries related to pings.
//
// Inserts of one PingRepo are serialized and created_at is clamped to the
// last value it wrote, so ids and timestamps from one process grow
// together.  Several processes sharing a database only get that ordering
// as far as their clocks agree.
type PingRepo struct {
	db  *sql.DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewPingRepo constructs a PingRepo with the provided DB handle.
func NewPingRepo(db *sql.DB) *PingRepo {
	return &PingRepo{db: db, now: time.Now}
}

// CreatePing inserts a trail root.
func (r *PingRepo) CreatePing(ctx context.Context, userID uint64, in model.NewPing) (*model.Ping, error) {
	return r.insert(ctx, userID, nil, in)
}

// RespondToPing inserts a response to parentID.  Ownership of the parent is
// checked by the caller, not here.
func (r *PingRepo) RespondToPing(ctx context.Context, parentID, userID uint64, in model.NewPing) (*model.Ping, error) {
	return r.insert(ctx, userID, &parentID, in)
}

func (r *PingRepo) insert(ctx context.Context, userID uint64, parentID *uint64, in model.NewPing) (*model.Ping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// DATETIME(6) keeps microseconds; truncate so the returned value matches the row.
	created := r.now().UTC().Truncate(time.Microsecond)
	if created.Before(r.last) {
		created = r.last
	}

	var msg sql.NullString
	if in.Message != nil {
		msg = sql.NullString{String: *in.Message, Valid: true}
	}
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: int64(*parentID), Valid: true}
	}

	const q = "INSERT INTO pings (user_id, latitude, longitude, message, parent_ping_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, userID, in.Latitude, in.Longitude, msg, parent, created)
	if err != nil {
		if parentID != nil && isMissingParent(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr("insert ping", err)
	}
	r.last = created
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("insert ping", err)
	}

	p := &model.Ping{
		ID:        uint64(id),
		UserID:    userID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Message:   copyString(in.Message),
		CreatedAt: created,
	}
	if parentID != nil {
		pid := *parentID
		p.ParentPingID = &pid
	}
	return p, nil
}

// isMissingParent reports a foreign key failure (1452) on anything but the
// owning user, i.e. the parent row vanished or never existed.
func isMissingParent(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) || myErr.Number != 1452 {
		return false
	}
	return !strings.Contains(myErr.Message, "fk_pings_user")
}

// GetPingByID fetches a ping regardless of owner.  It returns ErrNotFound if
// no row exists.
func (r *PingRepo) GetPingByID(ctx context.Context, id uint64) (*model.Ping, error) {
	q := "SELECT " + pingColumns + " FROM pings WHERE id = ?"
	p, err := scanPing(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get ping", err)
	}
	return p, nil
}

// GetUserPings returns all pings of a user ordered by id (creation order).
func (r *PingRepo) GetUserPings(ctx context.Context, userID uint64) ([]*model.Ping, error) {
	q := "SELECT " + pingColumns + " FROM pings WHERE user_id = ? ORDER BY id"
	return r.list(ctx, "list pings", q, userID)
}

// GetLatestUserPings returns at most limit pings of a user, newest first.
func (r *PingRepo) GetLatestUserPings(ctx context.Context, userID uint64, limit int) ([]*model.Ping, error) {
	if limit <= 0 {
		return []*model.Ping{}, nil
	}
	q := "SELECT " + pingColumns + " FROM pings WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"
	return r.list(ctx, "latest pings", q, userID, limit)
}

func (r *PingRepo) list(ctx context.Context, op, q string, args ...any) ([]*model.Ping, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	out := make([]*model.Ping, 0)
	for rows.Next() {
		p, err := scanPing(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPing(s rowScanner) (*model.Ping, error) {
	var (
		p      model.Ping
		msg    sql.NullString
		parent sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &msg, &parent, &p.CreatedAt); err != nil {
		return nil, err
	}
	if msg.Valid {
		m := msg.String
		p.Message = &m
	}
	if parent.Valid {
		pid := uint64(parent.Int64)
		p.ParentPingID = &pid
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
