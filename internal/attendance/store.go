package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mess-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectCols = `SELECT attendance_id, student_id, attended_on, is_present, meal_type FROM attendances`

// Upsert: (student_id, attended_on) の UNIQUE で INSERT または UPDATE。
// created=true なら新規
func (s *Store) Upsert(ctx context.Context, studentID uint64, on time.Time, present bool, meal MealType) (Record, bool, error) {
	// ON DUPLICATE KEY UPDATE
	// - 新規: RowsAffected = 1
	// - 既存更新: RowsAffected = 2（値が同じなら 0）
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO attendances (student_id, attended_on, is_present, meal_type)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
	is_present = VALUES(is_present),
	meal_type  = VALUES(meal_type)`,
		studentID, on.Format(DateLayout), present, mealOrNil(meal))
	if err != nil {
		return Record{}, false, fmt.Errorf("attendance: upsert: %w", err)
	}
	aff, _ := res.RowsAffected()
	created := aff == 1

	var r attendanceRow
	err = s.db.QueryRowContext(ctx, selectCols+` WHERE student_id = ? AND attended_on = ?`,
		studentID, on.Format(DateLayout)).
		Scan(&r.AttendanceID, &r.StudentID, &r.AttendedOn, &r.IsPresent, &r.MealType)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, created, fmt.Errorf("attendance: upserted row not found")
		}
		return Record{}, created, err
	}
	return r.toModel(), created, nil
}

// Insert は既存行があれば重複キーエラーをそのまま返す
func (s *Store) Insert(ctx context.Context, studentID uint64, on time.Time, present bool, meal MealType) (Record, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO attendances (student_id, attended_on, is_present, meal_type)
	VALUES (?, ?, ?, ?)`,
		studentID, on.Format(DateLayout), present, mealOrNil(meal))
	if err != nil {
		return Record{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, err
	}
	return Record{ID: uint64(id), StudentID: studentID, Date: dateOnly(on), IsPresent: present, MealType: meal}, nil
}

// List: 条件に応じて動的WHERE。新しい日付順
func (s *Store) List(ctx context.Context, q ListQuery) ([]Record, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)
	buf.WriteString(selectCols)

	if q.StudentID != nil {
		wheres = append(wheres, "student_id = ?")
		args = append(args, *q.StudentID)
	}
	if q.On != nil {
		wheres = append(wheres, "attended_on = ?")
		args = append(args, q.On.Format(DateLayout))
	} else {
		if q.From != nil {
			wheres = append(wheres, "attended_on >= ?")
			args = append(args, q.From.Format(DateLayout))
		}
		if q.To != nil {
			wheres = append(wheres, "attended_on <= ?")
			args = append(args, q.To.Format(DateLayout))
		}
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY attended_on DESC, attendance_id DESC")

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r attendanceRow
		if err := rows.Scan(&r.AttendanceID, &r.StudentID, &r.AttendedOn, &r.IsPresent, &r.MealType); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// Stats: 期間の出席日数を学生別に集計（TOP N）
func (s *Store) Stats(ctx context.Context, from, to time.Time, limit int) ([]StatsRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT a.student_id, p.reg_num, COUNT(*) AS cnt
	FROM attendances a
	JOIN student_profiles p ON p.user_id = a.student_id
	WHERE a.attended_on BETWEEN ? AND ? AND a.is_present = 1
	GROUP BY a.student_id, p.reg_num
	ORDER BY cnt DESC, p.reg_num ASC
	LIMIT ?`, from.Format(DateLayout), to.Format(DateLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StatsRow{}
	for rows.Next() {
		var row StatsRow
		if err := rows.Scan(&row.StudentID, &row.RegNum, &row.Present); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MonthTallies: 指定月の出席日数・Non-Veg 日数を学生別に返す（出席のない学生は含まない）
func (s *Store) MonthTallies(ctx context.Context, year int, month time.Month) (map[uint64]MonthTally, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	rows, err := s.db.QueryContext(ctx, `
	SELECT student_id,
	       COUNT(*) AS present_days,
	       COALESCE(SUM(meal_type = 'Non-Veg'), 0) AS nv_days
	FROM attendances
	WHERE attended_on BETWEEN ? AND ? AND is_present = 1
	GROUP BY student_id`, first.Format(DateLayout), last.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uint64]MonthTally{}
	for rows.Next() {
		var (
			id uint64
			t  MonthTally
		)
		if err := rows.Scan(&id, &t.PresentDays, &t.NonVegDays); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}

func mealOrNil(m MealType) any {
	if m == MealNone {
		return nil
	}
	return string(m)
}
