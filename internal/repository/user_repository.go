package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/mission-control/internal/model"
)

type UserRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db, now: time.Now} }

const userColumns = "id, username, password_hash, email, first_name, last_name, created_at"

// CreateUser inserts an agent and returns the stored record.
func (r *UserRepo) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	created := r.now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, email, first_name, last_name, created_at) VALUES (?,?,?,?,?,?)",
		username, in.PasswordHash, nullString(in.Email), nullString(in.FirstName), nullString(in.LastName), created)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return nil, ErrUsernameExists
		}
		return nil, storageErr("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("insert user", err)
	}
	return &model.User{
		ID:           uint64(id),
		Username:     username,
		PasswordHash: in.PasswordHash,
		Email:        copyString(in.Email),
		FirstName:    copyString(in.FirstName),
		LastName:     copyString(in.LastName),
		CreatedAt:    created,
	}, nil
}

// GetByUsername fetches a user by username.  The column uses a
// case-insensitive collation so lookups ignore case.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u                      model.User
		email, first, lastName sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &first, &lastName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get user", err)
	}
	u.Email = fromNull(email)
	u.FirstName = fromNull(first)
	u.LastName = fromNull(lastName)
	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
