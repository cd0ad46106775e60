package attendance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/clock"
	"mess-backend/internal/platform/httperr"
	"mess-backend/internal/profiles"
)

type fakeProfiles struct{ list []profiles.Profile }

func (f fakeProfiles) Roster(context.Context) ([]profiles.Profile, error) { return f.list, nil }

func (f fakeProfiles) Lookup(_ context.Context, id uint64) (*profiles.Profile, error) {
	for _, p := range f.list {
		if p.UserID == id {
			return &p, nil
		}
	}
	return nil, nil
}

var roster3 = fakeProfiles{list: []profiles.Profile{
	{UserID: 11, RegNum: "2101", Username: "ravi"},
	{UserID: 12, RegNum: "2102", Username: "suresh"},
	{UserID: 13, RegNum: "2203", Username: "anil"},
}}

var recCols = []string{"attendance_id", "student_id", "attended_on", "is_present", "meal_type"}

func newMockService(t *testing.T, now time.Time) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewService(conn, roster3, clock.Fixed(now)), mock
}

func TestBulkUpdate(t *testing.T) {
	svc, mock := newMockService(t, day(2025, time.January, 15))
	no := false
	nv := MealNonVeg

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WithArgs(uint64(11), "2025-01-15", false, "Veg").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendances WHERE student_id = ? AND attended_on = ?")).
		WillReturnRows(sqlmock.NewRows(recCols).AddRow(1, 11, day(2025, time.January, 15), false, "Veg"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WithArgs(uint64(13), "2025-01-15", true, "Non-Veg").
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendances WHERE student_id = ? AND attended_on = ?")).
		WillReturnRows(sqlmock.NewRows(recCols).AddRow(2, 13, day(2025, time.January, 15), true, "Non-Veg"))
	mock.ExpectCommit()

	res, err := svc.BulkUpdate(context.Background(), BulkRequest{
		Date: "2025-01-15",
		Records: []BulkRecord{
			{RegNum: "2101", IsPresent: &no},
			{RegNum: "9999"},
			{RegNum: "2203", MealType: &nv},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"Student with reg_num 9999 not found"}, res.Errors)
	assert.Equal(t, "Successfully processing attendance. Updated/Created 2 records.", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateRollsBackOnError(t *testing.T) {
	svc, mock := newMockService(t, day(2025, time.January, 15))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.BulkUpdate(context.Background(), BulkRequest{
		Date:    "2025-01-15",
		Records: []BulkRecord{{RegNum: "2101"}},
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateBadDate(t *testing.T) {
	svc, _ := newMockService(t, day(2025, time.January, 15))
	_, err := svc.BulkUpdate(context.Background(), BulkRequest{Date: "15/01/2025", Records: []BulkRecord{{RegNum: "2101"}}})
	assert.Equal(t, 400, httperr.Status(err))
}

func TestListStudentSeesOwnOnly(t *testing.T) {
	svc, mock := newMockService(t, day(2025, time.January, 15))
	other := uint64(12)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = ? ORDER BY attended_on DESC, attendance_id DESC")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(recCols).
			AddRow(3, 11, day(2025, time.January, 14), true, nil))

	sess := auth.Session{UserID: 11, Role: auth.RoleStudent}
	got, err := svc.List(context.Background(), sess, ListQuery{StudentID: &other})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, RecordResponse{ID: 3, Student: 11, Date: "2025-01-14", IsPresent: true}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDefaults(t *testing.T) {
	svc, mock := newMockService(t, time.Date(2025, time.January, 15, 20, 0, 0, 0, time.UTC))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WithArgs(uint64(12), "2025-01-15", true, "Veg").
		WillReturnResult(sqlmock.NewResult(40, 1))

	got, err := svc.Mark(context.Background(), auth.Session{UserID: 12, Role: auth.RoleStudent}, MarkRequest{})
	require.NoError(t, err)
	assert.Equal(t, RecordResponse{ID: 40, Student: 12, Date: "2025-01-15", IsPresent: true, MealType: MealVeg}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDriverErrors(t *testing.T) {
	tests := []struct {
		name string
		num  uint16
		want int
	}{
		{name: "same day twice", num: 1062, want: 409},
		{name: "profile deleted meanwhile", num: 1452, want: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newMockService(t, day(2025, time.January, 15))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
				WillReturnError(&mysql.MySQLError{Number: tt.num})

			_, err := svc.Mark(context.Background(), auth.Session{UserID: 12, Role: auth.RoleStudent}, MarkRequest{})
			assert.Equal(t, tt.want, httperr.Status(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkWithoutProfile(t *testing.T) {
	svc, _ := newMockService(t, day(2025, time.January, 15))
	_, err := svc.Mark(context.Background(), auth.Session{UserID: 77, Role: auth.RoleStudent}, MarkRequest{})
	assert.Equal(t, 400, httperr.Status(err))
}

func TestRosterMergesMarks(t *testing.T) {
	svc, mock := newMockService(t, day(2025, time.January, 15))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE attended_on = ?")).
		WithArgs("2025-01-15").
		WillReturnRows(sqlmock.NewRows(recCols).
			AddRow(5, 12, day(2025, time.January, 15), false, "Veg"))

	got, err := svc.Roster(context.Background(), "", "", "-status")
	require.NoError(t, err)
	require.Len(t, got, 3)
	// 未入力も欠席も status 0 なので降順でも名簿順のまま
	assert.Equal(t, "2101", got[0].RegNum)
	assert.True(t, got[1].Marked)
	assert.False(t, got[1].IsPresent)
	assert.False(t, got[0].Marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyStaffNeedsStudent(t *testing.T) {
	svc, _ := newMockService(t, day(2025, time.January, 15))
	_, err := svc.Monthly(context.Background(), auth.Session{UserID: 1, Role: auth.RoleStaff}, nil)
	assert.Equal(t, 400, httperr.Status(err))
}

func TestMealTypeJSON(t *testing.T) {
	var m MealType
	require.NoError(t, m.UnmarshalJSON([]byte(`"Non-Veg"`)))
	assert.Equal(t, MealNonVeg, m)
	require.NoError(t, m.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, MealNone, m)
	assert.Error(t, m.UnmarshalJSON([]byte(`"Vegan"`)))

	b, err := MealNone.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

// IST 11/1 00:30 は UTC では 10/31。保存日付と「今月」は同じ暦で決まる
func TestTodayAndCurrentMonthShareZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	now := time.Date(2025, time.November, 1, 0, 30, 0, 0, ist)
	svc, mock := newMockService(t, now)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WithArgs(uint64(12), "2025-10-31", true, "Veg").
		WillReturnResult(sqlmock.NewResult(41, 1))

	got, err := svc.Mark(context.Background(), auth.Session{UserID: 12, Role: auth.RoleStudent}, MarkRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", got.Date)

	rec, err := got.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, 1, PresentInCurrentMonth([]Record{rec}, clock.Fixed(now)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresentThisMonthUsesUTCMonth(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	svc, mock := newMockService(t, time.Date(2025, time.November, 1, 0, 30, 0, 0, ist))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = ? AND attended_on >= ?")).
		WithArgs(uint64(12), "2025-10-01").
		WillReturnRows(sqlmock.NewRows(recCols).
			AddRow(41, 12, day(2025, time.October, 31), true, "Veg"))

	n, err := svc.PresentThisMonth(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
