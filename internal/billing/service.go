package billing

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"mess-backend/internal/attendance"
	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/clock"
	"mess-backend/internal/platform/config"
	"mess-backend/internal/platform/db"
	"mess-backend/internal/platform/httperr"
	"mess-backend/internal/profiles"
)

// IDGen: 請求書番号（ULID）
type IDGen interface{ NewULID(t time.Time) string }

type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type ProfileSource interface {
	Roster(ctx context.Context) ([]profiles.Profile, error)
	Lookup(ctx context.Context, userID uint64) (*profiles.Profile, error)
}

type AttendanceSource interface {
	Records(ctx context.Context, studentID uint64) ([]attendance.Record, error)
}

type Service struct {
	db       *sql.DB
	store    *Store
	profiles ProfileSource
	att      AttendanceSource
	clock    clock.Clock
	id       IDGen
	header   Header
	defaults Rates
}

func NewService(conn *sql.DB, ps ProfileSource, att AttendanceSource, c clock.Clock, cfg *config.Config) *Service {
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		profiles: ps,
		att:      att,
		clock:    c,
		id:       ulidGen{},
		header:   Header{Name: cfg.Institution.Name, Subtitle: cfg.Institution.Subtitle, Footer: cfg.Institution.Footer},
		defaults: Rates{
			RoomRent:             decimal.NewFromFloat(cfg.Billing.RoomRent),
			WaterCharges:         decimal.NewFromFloat(cfg.Billing.WaterCharges),
			ElectricityCharges:   decimal.NewFromFloat(cfg.Billing.ElectricityCharges),
			EstablishmentCharges: decimal.NewFromFloat(cfg.Billing.EstablishmentCharges),
		},
	}
}

// GET /bills/ : staff は全件（?month で絞り込み）、student は自分の分
func (s *Service) List(ctx context.Context, sess auth.Session, month string) ([]BillResponse, error) {
	q := ListQuery{Month: month}
	if !sess.IsStaff() {
		id := sess.UserID
		q.StudentID = &id
	}
	bills, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, b.ToDTO())
	}
	return out, nil
}

func (s *Service) rates(in GenerateRequest) (Rates, error) {
	r := s.defaults
	r.DailyRate = *in.DailyRate
	r.NVPlateRate = *in.NVPlateRate
	for _, o := range []struct {
		v   *decimal.Decimal
		dst *decimal.Decimal
	}{
		{in.RoomRent, &r.RoomRent},
		{in.WaterCharges, &r.WaterCharges},
		{in.ElectricityCharges, &r.ElectricityCharges},
		{in.EstablishmentCharges, &r.EstablishmentCharges},
	} {
		if o.v != nil {
			*o.dst = *o.v
		}
	}
	for _, v := range []decimal.Decimal{r.DailyRate, r.NVPlateRate, r.RoomRent, r.WaterCharges, r.ElectricityCharges, r.EstablishmentCharges} {
		if v.IsNegative() {
			return Rates{}, httperr.ErrInvalid("rates must not be negative")
		}
	}
	return r, nil
}

// POST /bills/generate_bills/
// 全学生分を1トランザクションで作成または更新する。既存請求が複数あれば id 最大のものを更新
func (s *Service) Generate(ctx context.Context, in GenerateRequest) (GenerateResult, error) {
	if in.DailyRate == nil || in.NVPlateRate == nil || in.Month == "" {
		return GenerateResult{}, httperr.ErrInvalid("Month, Daily Rate, and NV Plate Rate are required")
	}
	year, month, err := ParseMonth(in.Month)
	if err != nil {
		return GenerateResult{}, httperr.ErrInvalid("Invalid format. Month: YYYY-MM, Rates: Numbers")
	}
	r, err := s.rates(in)
	if err != nil {
		return GenerateResult{}, err
	}
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)

	roster, err := s.profiles.Roster(ctx)
	if err != nil {
		return GenerateResult{}, err
	}

	var res GenerateResult
	now := s.clock.Now().UTC()
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		tallies, err := attendance.NewStore(tx).MonthTallies(ctx, year, month)
		if err != nil {
			return err
		}
		st := NewStore(tx)
		for _, p := range roster {
			t := tallies[p.UserID]
			amount := r.Amount(t.PresentDays, t.NonVegDays)

			id, err := st.LatestIDForUpdate(ctx, p.UserID, key)
			if err != nil {
				return err
			}
			if id != 0 {
				if err := st.UpdateAmounts(ctx, id, amount, r); err != nil {
					return err
				}
				res.Updated++
				continue
			}
			_, err = st.Insert(ctx, Bill{
				ULID:        s.id.NewULID(now),
				StudentID:   p.UserID,
				Month:       key,
				Amount:      amount,
				GeneratedOn: now,
				Rates:       r,
			})
			if err != nil {
				return err
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	log.Printf("[INFO] bills %s: created=%d updated=%d", key, res.Created, res.Updated)
	res.Message = fmt.Sprintf("Bills generated for %d students.", len(roster))
	return res, nil
}

// PATCH /bills/:id : is_paid は false→true のみ
func (s *Service) Patch(ctx context.Context, id uint64, in PatchRequest) (BillResponse, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return BillResponse{}, err
	}
	if b == nil {
		return BillResponse{}, httperr.ErrNotFound("bill not found")
	}
	switch {
	case *in.IsPaid && !b.IsPaid:
		if err := s.store.MarkPaid(ctx, id); err != nil {
			return BillResponse{}, err
		}
		b.IsPaid = true
	case !*in.IsPaid && b.IsPaid:
		return BillResponse{}, httperr.ErrConflict("a paid bill cannot be reopened")
	}
	return b.ToDTO(), nil
}

// latestFor: 学生の最新請求。無ければ nil
func (s *Service) latestFor(ctx context.Context, studentID uint64) (*Bill, error) {
	bills, err := s.store.List(ctx, ListQuery{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	b, ok := LatestOverall(bills)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Latest: GET /bills/latest。staff は student_id 指定
func (s *Service) Latest(ctx context.Context, sess auth.Session, studentID *uint64) (*BillResponse, error) {
	id, err := target(sess, studentID)
	if err != nil {
		return nil, err
	}
	b, err := s.latestFor(ctx, id)
	if err != nil || b == nil {
		return nil, err
	}
	res := b.ToDTO()
	return &res, nil
}

// InvoiceFile は PDF 本体とファイル名
type InvoiceFile struct {
	Name string
	Data []byte
}

// LatestInvoice: 請求がまだ無ければ nil（エラーにしない）
func (s *Service) LatestInvoice(ctx context.Context, sess auth.Session, studentID *uint64) (*InvoiceFile, error) {
	id, err := target(sess, studentID)
	if err != nil {
		return nil, err
	}
	b, err := s.latestFor(ctx, id)
	if err != nil || b == nil {
		return nil, err
	}
	return s.render(ctx, *b)
}

// Invoice: GET /bills/:id/invoice。他人の請求は 404
func (s *Service) Invoice(ctx context.Context, sess auth.Session, id uint64) (*InvoiceFile, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || (!sess.IsStaff() && b.StudentID != sess.UserID) {
		return nil, httperr.ErrNotFound("bill not found")
	}
	return s.render(ctx, *b)
}

func (s *Service) render(ctx context.Context, b Bill) (*InvoiceFile, error) {
	p, err := s.profiles.Lookup(ctx, b.StudentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, httperr.ErrNotFound("student profile not found")
	}
	recs, err := s.att.Records(ctx, b.StudentID)
	if err != nil {
		return nil, err
	}

	inv, err := NewInvoice(s.header, b, recs, *p, s.clock.Now().UTC())
	if err != nil {
		return nil, httperr.ErrInternal(err.Error())
	}
	var buf bytes.Buffer
	if err := RenderPDF(inv, &buf); err != nil {
		log.Printf("[ERROR] invoice %d: %v", b.ID, err)
		return nil, err
	}
	return &InvoiceFile{Name: inv.Filename(), Data: buf.Bytes()}, nil
}

// Export: GET /bills/export?month= 。学生ごとに id 最大の請求だけを出す
func (s *Service) Export(ctx context.Context, month string) (*InvoiceFile, error) {
	y, m, err := ParseMonth(month)
	if err != nil {
		return nil, httperr.ErrInvalid("month must be YYYY-MM")
	}
	key := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
	var bills []Bill
	err = db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		bills, err = NewStore(tx).List(ctx, ListQuery{Month: key})
		return err
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteXLSX(key, Authoritative(bills), &buf); err != nil {
		return nil, err
	}
	return &InvoiceFile{Name: fmt.Sprintf("Mess_Bills_%s.xlsx", key), Data: buf.Bytes()}, nil
}

func target(sess auth.Session, studentID *uint64) (uint64, error) {
	if !sess.IsStaff() {
		return sess.UserID, nil
	}
	if studentID == nil {
		return 0, httperr.ErrInvalid("student_id is required")
	}
	return *studentID, nil
}
