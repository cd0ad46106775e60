package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mess-backend/internal/platform/auth"
)

type memAccounts struct {
	created []auth.RegisterRequest
}

func (m *memAccounts) Register(_ context.Context, in auth.RegisterRequest) (*auth.Account, error) {
	for _, c := range m.created {
		if c.Username == in.Username {
			return nil, auth.ErrAlreadyExists
		}
	}
	m.created = append(m.created, in)
	return &auth.Account{ID: uint64(len(m.created)), Username: in.Username, IsStaffMember: in.IsStaffMember}, nil
}

func setup(t *testing.T) (*commandLine, sqlmock.Sqlmock, *memAccounts) {
	t.Helper()
	logger = log.New(io.Discard, "", 0)
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	accts := &memAccounts{}
	return &commandLine{db: conn, accounts: accts}, mock, accts
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_createStaff(t *testing.T) {
	cli, _, accts := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"createstaff"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"createstaff", "-username", "staff"}, wantErr: errHelp},
		{name: "create", args: []string{"createstaff", "-username", "staff", "-email", "staff@example.com"}, extra: extra{pwd: "staffpassword123"}},
		{name: "already exists", args: []string{"createstaff", "-username", "staff"}, extra: extra{pwd: "other"}},
	}
	for _, tt := range tests {
		args := append([]string{"messadmin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	require.Len(t, accts.created, 1)
	assert.Equal(t, "staff", accts.created[0].Username)
	assert.Equal(t, "staffpassword123", accts.created[0].Password)
	assert.True(t, accts.created[0].IsStaffMember)
	assert.False(t, accts.created[0].IsStudent)
}

func TestSplitStatements(t *testing.T) {
	schema := `
CREATE TABLE a (id INT);

-- 次のテーブル; コメント内のセミコロン
CREATE TABLE b (
  id INT
);
`
	got := splitStatements(schema)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (\n  id INT\n)"}, got)
}

func TestMigrate(t *testing.T) {
	cli, mock, _ := setup(t)
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);\n"), 0o644))

	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, cli.run([]string{"messadmin", "migrate", "-schema", path}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	cli, mock, _ := setup(t)
	mock.ExpectExec("CREATE TABLE a").WillReturnError(assert.AnError)

	err := cli.migrate(context.Background(), "CREATE TABLE a (id INT); CREATE TABLE b (id INT);")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "statement 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
