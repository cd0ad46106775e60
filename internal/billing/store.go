package billing

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mess-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectBill = `
	SELECT b.bill_id, b.bill_ulid, b.student_id, p.reg_num, u.username, b.month, b.amount, b.is_paid,
	       b.generated_on, b.daily_rate, b.nv_plate_rate, b.room_rent, b.water_charges,
	       b.electricity_charges, b.establishment_charges
	FROM bills b
	JOIN student_profiles p ON p.user_id = b.student_id
	JOIN users u ON u.id = b.student_id`

type scanner interface{ Scan(dest ...any) error }

func scanBill(sc scanner) (Bill, error) {
	var b Bill
	err := sc.Scan(&b.ID, &b.ULID, &b.StudentID, &b.RegNum, &b.StudentName, &b.Month, &b.Amount, &b.IsPaid,
		&b.GeneratedOn, &b.DailyRate, &b.NVPlateRate, &b.RoomRent, &b.WaterCharges,
		&b.ElectricityCharges, &b.EstablishmentCharges)
	return b, err
}

type ListQuery struct {
	StudentID *uint64
	Month     string
}

// List: 新しい月・新しい id 順
func (s *Store) List(ctx context.Context, q ListQuery) ([]Bill, error) {
	var (
		buf  bytes.Buffer
		args []any
	)
	buf.WriteString(selectBill)
	buf.WriteString(" WHERE 1=1")
	if q.StudentID != nil {
		buf.WriteString(" AND b.student_id = ?")
		args = append(args, *q.StudentID)
	}
	if q.Month != "" {
		buf.WriteString(" AND b.month = ?")
		args = append(args, q.Month)
	}
	buf.WriteString(" ORDER BY b.month DESC, b.bill_id DESC")

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get: 無ければ (nil, nil)
func (s *Store) Get(ctx context.Context, id uint64) (*Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, selectBill+` WHERE b.bill_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestIDForUpdate: (student, month) の最大 id をロック付きで取る。無ければ 0
func (s *Store) LatestIDForUpdate(ctx context.Context, studentID uint64, month string) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx, `
	SELECT bill_id FROM bills
	WHERE student_id = ? AND month = ?
	ORDER BY bill_id DESC LIMIT 1 FOR UPDATE`, studentID, month).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

func (s *Store) Insert(ctx context.Context, b Bill) (uint64, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO bills (bill_ulid, student_id, month, amount, is_paid, generated_on,
	  daily_rate, nv_plate_rate, room_rent, water_charges, electricity_charges, establishment_charges)
	VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		b.ULID, b.StudentID, b.Month, dec(b.Amount), b.GeneratedOn.Format("2006-01-02"),
		dec(b.DailyRate), dec(b.NVPlateRate), dec(b.RoomRent), dec(b.WaterCharges),
		dec(b.ElectricityCharges), dec(b.EstablishmentCharges))
	if err != nil {
		return 0, fmt.Errorf("billing: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateAmounts は金額と単価だけを差し替える（is_paid はそのまま）
func (s *Store) UpdateAmounts(ctx context.Context, id uint64, amount decimal.Decimal, r Rates) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE bills SET amount = ?, daily_rate = ?, nv_plate_rate = ?, room_rent = ?,
	  water_charges = ?, electricity_charges = ?, establishment_charges = ?
	WHERE bill_id = ?`,
		dec(amount), dec(r.DailyRate), dec(r.NVPlateRate), dec(r.RoomRent), dec(r.WaterCharges),
		dec(r.ElectricityCharges), dec(r.EstablishmentCharges), id)
	if err != nil {
		return fmt.Errorf("billing: update %d: %w", id, err)
	}
	return nil
}

func (s *Store) MarkPaid(ctx context.Context, id uint64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE bills SET is_paid = 1 WHERE bill_id = ?`, id)
	return err
}

// DECIMAL 列へは文字列で渡す
func dec(d decimal.Decimal) string { return d.StringFixed(2) }
