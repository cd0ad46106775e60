package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mess-backend/internal/platform/db"
)

type Account struct {
	ID            uint64
	Username      string
	Email         string
	PasswordHash  string
	IsStudent     bool
	IsStaffMember bool
	CreatedAt     time.Time
}

type AccountStore interface {
	GetByID(ctx context.Context, id uint64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) AccountStore {
	return &Store{db: conn}
}

const accountColumns = `id, username, email, password_hash, is_student, is_staff_member, created_at`

func (s *Store) GetByID(ctx context.Context, id uint64) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	return scanAccount(row)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	return scanAccount(row)
}

// 見つからないときは (nil, nil)
func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsStudent, &a.IsStaffMember, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO users (username, email, password_hash, is_student, is_staff_member, created_at)
VALUES (?, ?, ?, ?, ?, UTC_TIMESTAMP(6))
`
	res, err := s.db.ExecContext(ctx, q, a.Username, a.Email, a.PasswordHash, a.IsStudent, a.IsStaffMember)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return ErrAlreadyExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.CreatedAt = time.Now().UTC()
	return nil
}
