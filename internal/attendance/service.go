package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/clock"
	"mess-backend/internal/platform/db"
	"mess-backend/internal/platform/httperr"
	"mess-backend/internal/profiles"
	"mess-backend/internal/rosteredit"
)

// ProfileSource は profiles.Service が満たす
type ProfileSource interface {
	Roster(ctx context.Context) ([]profiles.Profile, error)
	Lookup(ctx context.Context, userID uint64) (*profiles.Profile, error)
}

type Service struct {
	db       *sql.DB
	store    *Store
	profiles ProfileSource
	clock    clock.Clock
}

func NewService(conn *sql.DB, ps ProfileSource, c clock.Clock) *Service {
	return &Service{db: conn, store: NewStore(conn), profiles: ps, clock: c}
}

// today: 保存日付と同じく UTC の日付
func (s *Service) today() time.Time { return dateOnly(s.clock.Now().UTC()) }

func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, httperr.ErrInvalid("date: Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
	}
	return t, nil
}

// GET /attendance/ : student は自分の分だけ
func (s *Service) List(ctx context.Context, sess auth.Session, q ListQuery) ([]RecordResponse, error) {
	if !sess.IsStaff() {
		id := sess.UserID
		q.StudentID = &id
	}
	recs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ToDTO())
	}
	return out, nil
}

// POST /attendance/ : 学生の自己申告。同じ日の二重登録は 409
func (s *Service) Mark(ctx context.Context, sess auth.Session, in MarkRequest) (RecordResponse, error) {
	p, err := s.profiles.Lookup(ctx, sess.UserID)
	if err != nil {
		return RecordResponse{}, err
	}
	if p == nil {
		return RecordResponse{}, httperr.ErrInvalid("Student profile not found.")
	}

	on := s.today()
	if in.Date != nil && *in.Date != "" {
		if on, err = ParseDate(*in.Date); err != nil {
			return RecordResponse{}, err
		}
	}
	present := true
	if in.IsPresent != nil {
		present = *in.IsPresent
	}
	meal := DefaultMeal
	if in.MealType != nil && *in.MealType != MealNone {
		meal = *in.MealType
	}

	rec, err := s.store.Insert(ctx, p.UserID, on, present, meal)
	if err != nil {
		switch {
		case db.IsDuplicateKey(err):
			return RecordResponse{}, httperr.ErrConflict("The fields student, date must make a unique set.")
		case db.IsForeignKeyViolation(err):
			return RecordResponse{}, httperr.ErrInvalid("Student profile not found.")
		}
		return RecordResponse{}, err
	}
	return rec.ToDTO(), nil
}

// POST /attendance/bulk_update/
// 未知の reg_num はエラー一覧に積んで続行、DB エラーは全体をロールバック
func (s *Service) BulkUpdate(ctx context.Context, in BulkRequest) (BulkResult, error) {
	on, err := ParseDate(in.Date)
	if err != nil {
		return BulkResult{}, err
	}
	if len(in.Records) == 0 {
		return BulkResult{}, httperr.ErrInvalid("Date and records are required")
	}

	roster, err := s.profiles.Roster(ctx)
	if err != nil {
		return BulkResult{}, err
	}
	ids := make(map[string]uint64, len(roster))
	for _, p := range roster {
		ids[p.RegNum] = p.UserID
	}

	res := BulkResult{Errors: []string{}}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		for _, r := range in.Records {
			id, ok := ids[r.RegNum]
			if !ok {
				res.Errors = append(res.Errors, fmt.Sprintf("Student with reg_num %s not found", r.RegNum))
				continue
			}
			present := true
			if r.IsPresent != nil {
				present = *r.IsPresent
			}
			meal := DefaultMeal
			if r.MealType != nil && *r.MealType != MealNone {
				meal = *r.MealType
			}
			if _, _, err := st.Upsert(ctx, id, on, present, meal); err != nil {
				return fmt.Errorf("bulk update %s: %w", r.RegNum, err)
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	if len(res.Errors) > 0 {
		log.Printf("[WARN] bulk attendance %s: %d unknown reg nums", in.Date, len(res.Errors))
	}
	res.Message = fmt.Sprintf("Successfully processing attendance. Updated/Created %d records.", res.Updated)
	return res, nil
}

// GET /attendance/monthly : staff は student_id 必須
func (s *Service) Monthly(ctx context.Context, sess auth.Session, studentID *uint64) ([]MonthBucketResponse, error) {
	id, err := s.target(sess, studentID)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.List(ctx, ListQuery{StudentID: &id})
	if err != nil {
		return nil, err
	}
	buckets := GroupByMonth(recs)
	out := make([]MonthBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.ToDTO())
	}
	return out, nil
}

// GET /attendance/history : 1人分の全履歴（新しい順）
func (s *Service) History(ctx context.Context, studentID uint64) ([]RecordResponse, error) {
	recs, err := s.store.List(ctx, ListQuery{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	recs = HistoryOrder(recs)
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ToDTO())
	}
	return out, nil
}

// Records: 請求書の明細計算用（1学生の全記録）
func (s *Service) Records(ctx context.Context, studentID uint64) ([]Record, error) {
	return s.store.List(ctx, ListQuery{StudentID: &studentID})
}

// PresentThisMonth: ダッシュボード用
func (s *Service) PresentThisMonth(ctx context.Context, studentID uint64) (int, error) {
	now := s.clock.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	recs, err := s.store.List(ctx, ListQuery{StudentID: &studentID, From: &first})
	if err != nil {
		return 0, err
	}
	return PresentInCurrentMonth(recs, s.clock), nil
}

// GET /attendance/roster : 一括入力画面と同じ合成結果をサーバ側で返す
func (s *Service) Roster(ctx context.Context, date, filter, sortKey string) ([]RosterRowResponse, error) {
	on := s.today()
	if date != "" {
		var err error
		if on, err = ParseDate(date); err != nil {
			return nil, err
		}
	}

	roster, err := s.profiles.Roster(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.List(ctx, ListQuery{On: &on})
	if err != nil {
		return nil, err
	}

	ed := rosteredit.New(ToStudents(roster), ToMarks(recs))
	ed.SetFilter(filter)
	if sortKey != "" {
		desc := strings.HasPrefix(sortKey, "-")
		key, ok := rosteredit.ParseSortKey(strings.TrimPrefix(sortKey, "-"))
		if !ok {
			return nil, httperr.ErrInvalid("sort must be one of reg_num, name, status")
		}
		ed.SortBy(key)
		if desc {
			ed.SortBy(key)
		}
	}

	rows := ed.Visible()
	out := make([]RosterRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, rosterRow(r))
	}
	return out, nil
}

// GET /attendance/stats
func (s *Service) Stats(ctx context.Context, req StatsRequest) ([]StatsRow, error) {
	from, err := time.ParseInLocation(DateLayout, req.From, time.UTC)
	if err != nil {
		return nil, httperr.ErrInvalid("from must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(DateLayout, req.To, time.UTC)
	if err != nil {
		return nil, httperr.ErrInvalid("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, httperr.ErrInvalid("to must be >= from")
	}
	return s.store.Stats(ctx, from, to, req.Limit)
}

func (s *Service) target(sess auth.Session, studentID *uint64) (uint64, error) {
	if !sess.IsStaff() {
		return sess.UserID, nil
	}
	if studentID == nil {
		return 0, httperr.ErrInvalid("student_id is required")
	}
	return *studentID, nil
}

func ToStudents(ps []profiles.Profile) []rosteredit.Student {
	out := make([]rosteredit.Student, 0, len(ps))
	for _, p := range ps {
		out = append(out, rosteredit.Student{ID: p.UserID, RegNum: p.RegNum, Name: p.Username})
	}
	return out
}

func ToMarks(recs []Record) []rosteredit.Mark {
	out := make([]rosteredit.Mark, 0, len(recs))
	for _, r := range recs {
		out = append(out, rosteredit.Mark{StudentID: r.StudentID, IsPresent: r.IsPresent, MealType: string(r.MealType)})
	}
	return out
}
