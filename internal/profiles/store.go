package profiles

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mess-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectProfiles = `
	SELECT p.user_id, p.reg_num, p.branch, p.year, p.phone, u.username, u.email
	FROM student_profiles p
	JOIN users u ON u.id = p.user_id`

// List: reg_num 昇順で全件（ロスター）
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, selectProfiles+` ORDER BY p.reg_num ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Profile, 0, 64)
	for rows.Next() {
		var r profileRow
		if err := rows.Scan(&r.UserID, &r.RegNum, &r.Branch, &r.Year, &r.Phone, &r.Username, &r.Email); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// Get: 無ければ (nil, nil)
func (s *Store) Get(ctx context.Context, userID uint64) (*Profile, error) {
	return s.getOne(ctx, ` WHERE p.user_id = ?`, userID)
}

func (s *Store) GetByRegNum(ctx context.Context, regNum string) (*Profile, error) {
	return s.getOne(ctx, ` WHERE p.reg_num = ?`, regNum)
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*Profile, error) {
	var r profileRow
	err := s.db.QueryRowContext(ctx, selectProfiles+where+` LIMIT 1`, arg).Scan(
		&r.UserID, &r.RegNum, &r.Branch, &r.Year, &r.Phone, &r.Username, &r.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := r.toModel()
	return &p, nil
}

func (s *Store) Create(ctx context.Context, userID uint64, in CreateProfileRequest) error {
	const q = `
	INSERT INTO student_profiles (user_id, reg_num, branch, year, phone)
	VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, userID, in.RegNum, in.Branch, in.Year, strOrNil(in.Phone))
	return err
}

// Update: 指定された列だけ更新。対象なしは sql.ErrNoRows
func (s *Store) Update(ctx context.Context, userID uint64, in UpdateProfileRequest) error {
	sets := []string{}
	args := []any{}
	if in.RegNum != nil {
		sets = append(sets, "reg_num = ?")
		args = append(args, *in.RegNum)
	}
	if in.Branch != nil {
		sets = append(sets, "branch = ?")
		args = append(args, *in.Branch)
	}
	if in.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *in.Year)
	}
	if in.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, strOrNil(in.Phone))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, userID)

	res, err := s.db.ExecContext(ctx, `UPDATE student_profiles SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`, args...)
	if err != nil {
		return err
	}
	// MySQL は値が同じだと affected=0 になるので存在確認は Get で行う
	if n, _ := res.RowsAffected(); n == 0 {
		p, err := s.Get(ctx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return sql.ErrNoRows
		}
	}
	return nil
}

func strOrNil(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return strings.TrimSpace(*s)
}
