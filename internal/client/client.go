// Package client is a small JSON client for the mess API, used by messctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"mess-backend/internal/attendance"
	"mess-backend/internal/platform/auth"
	"mess-backend/internal/profiles"
	"mess-backend/internal/rosteredit"
)

// Session は /me/ で再確認したログイン状態。画面（サブコマンド）ごとに明示的に渡す
type Session struct {
	Token string
	User  auth.UserResponse
	Role  auth.Role
}

type Client struct {
	base string
	http *http.Client
	sess *Session
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithToken は保存済みトークンを使う（Refresh で検証すること）
func (c *Client) WithToken(token string) *Client {
	c.sess = &Session{Token: token}
	return c
}

func (c *Client) Session() *Session { return c.sess }

// Error は API のエラー応答。Fields があればフィールド名付きで連結して表示する
type Error struct {
	Status  int
	Message string
	Fields  []string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d: %s", e.Status, strings.Join(e.Fields, "; "))
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

var ErrNotLoggedIn = errors.New("not logged in")

func decodeError(status int, body []byte) error {
	var api struct {
		Error *struct {
			Message string   `json:"message"`
			Fields  []string `json:"fields"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &api); err == nil && api.Error != nil {
		return &Error{Status: status, Message: api.Error.Message, Fields: api.Error.Fields}
	}

	// {"non_field_errors": [...]} / {"field": ["msg"]} 形式
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e := &Error{Status: status}
		for _, k := range keys {
			msg := strings.Join(fields[k], " ")
			if k == "non_field_errors" {
				e.Fields = append(e.Fields, msg)
				continue
			}
			e.Fields = append(e.Fields, k+": "+msg)
		}
		return e
	}
	return &Error{Status: status, Message: strings.TrimSpace(string(body))}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, []byte, http.Header, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, nil, nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, nil, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sess != nil && c.sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, nil, err
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil, nil, decodeError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, nil, nil, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, raw, resp.Header, nil
}

// Login obtains a token and resolves the session through /me/.
func (c *Client) Login(ctx context.Context, username, password string, role auth.Role) (*Session, error) {
	var tok struct {
		Access string `json:"access"`
	}
	in := auth.LoginRequest{Username: username, Password: password}
	if role == auth.RoleStudent || role == auth.RoleStaff {
		in.Role = role.String()
	}
	if _, _, _, err := c.do(ctx, http.MethodPost, "/api/login/", in, &tok); err != nil {
		return nil, err
	}
	c.sess = &Session{Token: tok.Access}
	return c.Refresh(ctx)
}

// Refresh re-validates the current token and re-derives the role.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	if c.sess == nil || c.sess.Token == "" {
		return nil, ErrNotLoggedIn
	}
	var u auth.UserResponse
	if _, _, _, err := c.do(ctx, http.MethodGet, "/api/me/", nil, &u); err != nil {
		return nil, err
	}
	role := auth.RoleStudent
	if u.IsStaffMember {
		role = auth.RoleStaff
	}
	c.sess = &Session{Token: c.sess.Token, User: u, Role: role}
	return c.sess, nil
}

func (c *Client) Profiles(ctx context.Context) ([]profiles.ProfileResponse, error) {
	var out []profiles.ProfileResponse
	_, _, _, err := c.do(ctx, http.MethodGet, "/api/profiles/", nil, &out)
	return out, err
}

func (c *Client) Attendance(ctx context.Context, date string, studentID uint64) ([]attendance.RecordResponse, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if studentID != 0 {
		q.Set("student_id", strconv.FormatUint(studentID, 10))
	}
	path := "/api/attendance/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []attendance.RecordResponse
	_, _, _, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Monthly(ctx context.Context, studentID uint64) ([]attendance.MonthBucketResponse, error) {
	path := "/api/attendance/monthly"
	if studentID != 0 {
		path += "?student_id=" + strconv.FormatUint(studentID, 10)
	}
	var out []attendance.MonthBucketResponse
	_, _, _, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SubmitAttendance sends the whole roster for a date in one request.
func (c *Client) SubmitAttendance(ctx context.Context, date string, entries []rosteredit.Entry) error {
	in := struct {
		Date    string             `json:"date"`
		Records []rosteredit.Entry `json:"records"`
	}{Date: date, Records: entries}
	var res attendance.BulkResult
	if _, _, _, err := c.do(ctx, http.MethodPost, "/api/attendance/bulk_update/", in, &res); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return &Error{Status: http.StatusOK, Message: res.Message, Fields: res.Errors}
	}
	return nil
}

// Download は添付ファイルを返す。204 なら ok=false
func (c *Client) Download(ctx context.Context, path string) (name string, data []byte, ok bool, err error) {
	status, raw, h, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", nil, false, err
	}
	if status == http.StatusNoContent {
		return "", nil, false, nil
	}
	if _, params, perr := mime.ParseMediaType(h.Get("Content-Disposition")); perr == nil {
		name = params["filename"]
	}
	return name, raw, true, nil
}
