package menu

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mess-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, day, breakfast, lunch, dinner FROM menus`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0, 7)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Day, &it.Breakfast, &it.Lunch, &it.Dinner); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id uint64) (*Item, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

func (s *Store) GetByDay(ctx context.Context, day string) (*Item, error) {
	return s.getOne(ctx, `WHERE day = ?`, day)
}

// 無ければ (nil, nil)
func (s *Store) getOne(ctx context.Context, where string, arg any) (*Item, error) {
	var it Item
	err := s.db.QueryRowContext(ctx, `SELECT id, day, breakfast, lunch, dinner FROM menus `+where, arg).
		Scan(&it.ID, &it.Day, &it.Breakfast, &it.Lunch, &it.Dinner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) Create(ctx context.Context, in CreateItemRequest) (uint64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO menus (day, breakfast, lunch, dinner) VALUES (?, ?, ?, ?)`,
		in.Day, in.Breakfast, in.Lunch, in.Dinner)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) Update(ctx context.Context, id uint64, in UpdateItemRequest) error {
	sets := []string{}
	args := []any{}
	if in.Breakfast != nil {
		sets = append(sets, "breakfast = ?")
		args = append(args, *in.Breakfast)
	}
	if in.Lunch != nil {
		sets = append(sets, "lunch = ?")
		args = append(args, *in.Lunch)
	}
	if in.Dinner != nil {
		sets = append(sets, "dinner = ?")
		args = append(args, *in.Dinner)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := s.db.ExecContext(ctx, `UPDATE menus SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}
