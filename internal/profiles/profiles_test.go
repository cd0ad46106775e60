package profiles

import (
	"context"
	"database/sql"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/httperr"
)

type memRepo struct{ byID map[uint64]*Profile }

func (m *memRepo) List(context.Context) ([]Profile, error) {
	out := []Profile{}
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id uint64) (*Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetByRegNum(_ context.Context, reg string) (*Profile, error) {
	for _, p := range m.byID {
		if p.RegNum == reg {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Create(_ context.Context, id uint64, in CreateProfileRequest) error {
	for _, p := range m.byID {
		if p.RegNum == in.RegNum {
			return &mysql.MySQLError{Number: 1062}
		}
	}
	m.byID[id] = &Profile{UserID: id, RegNum: in.RegNum, Branch: in.Branch, Year: in.Year, Phone: in.Phone}
	return nil
}

func (m *memRepo) Update(_ context.Context, id uint64, in UpdateProfileRequest) error {
	p, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if in.Branch != nil {
		p.Branch = *in.Branch
	}
	if in.Year != nil {
		p.Year = *in.Year
	}
	return nil
}

var (
	student = auth.Session{UserID: 11, Username: "ravi", Role: auth.RoleStudent}
	other   = auth.Session{UserID: 12, Username: "suresh", Role: auth.RoleStudent}
	staff   = auth.Session{UserID: 1, Username: "warden", Role: auth.RoleStaff}
)

func newSvc() *Service {
	return NewService(&memRepo{byID: map[uint64]*Profile{
		11: {UserID: 11, RegNum: "2101", Branch: "MCA", Year: 2, Username: "ravi"},
	}})
}

func TestListByRole(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	got, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2101", got[0].RegNum)

	got, err = svc.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = svc.List(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetHidesOthers(t *testing.T) {
	svc := newSvc()
	_, err := svc.Get(context.Background(), other, 11)
	assert.Equal(t, http.StatusNotFound, httperr.Status(err))

	res, err := svc.Get(context.Background(), staff, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.User.ID)
}

func TestCreate(t *testing.T) {
	svc := newSvc()
	ctx := context.Background()

	_, err := svc.Create(ctx, student, CreateProfileRequest{RegNum: "2199", Branch: "MCA", Year: 1})
	assert.Equal(t, http.StatusConflict, httperr.Status(err), "one profile per user")

	_, err = svc.Create(ctx, other, CreateProfileRequest{RegNum: "2101", Branch: "MBA", Year: 1})
	assert.Equal(t, http.StatusConflict, httperr.Status(err), "reg_num unique")

	res, err := svc.Create(ctx, other, CreateProfileRequest{RegNum: " 2102 ", Branch: "MBA", Year: 1})
	require.NoError(t, err)
	assert.Equal(t, "2102", res.RegNum)
	assert.Equal(t, uint64(12), res.ID)
}

func TestUpdateMissing(t *testing.T) {
	svc := newSvc()
	year := 3
	_, err := svc.Update(context.Background(), staff, 99, UpdateProfileRequest{Year: &year})
	assert.Equal(t, http.StatusNotFound, httperr.Status(err))

	res, err := svc.Update(context.Background(), student, 11, UpdateProfileRequest{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Year)
}

func TestStoreList(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.reg_num ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "reg_num", "branch", "year", "phone", "username", "email"}).
			AddRow(11, "2101", "MCA", 2, nil, "ravi", "ravi@example.com").
			AddRow(12, "2102", "MBA", 1, "9876543210", "suresh", ""))

	got, err := NewStore(conn).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Phone)
	require.NotNil(t, got[1].Phone)
	assert.Equal(t, "9876543210", *got[1].Phone)
	assert.Equal(t, "ravi@example.com", got[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
