package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("No active account found with the given credentials")
	ErrNotStudent         = errors.New("Access denied. Not a student account.")
	ErrNotStaff           = errors.New("Access denied. Not a staff account.")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService interface {
	Register(ctx context.Context, in RegisterRequest) (*Account, error)
	Login(ctx context.Context, username, password, role string) (string, error)
	Me(ctx context.Context, userID uint64) (*Account, error)
}

// SessionResolver re-validates the token subject against the accounts table on every request.
type SessionResolver interface {
	Resolve(ctx context.Context, tokenString string) (Session, error)
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) (*Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("register: %w", errEmptyCredentials)
	}
	exists, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Username:      username,
		Email:         strings.TrimSpace(in.Email),
		PasswordHash:  string(hash),
		IsStudent:     in.IsStudent,
		IsStaffMember: in.IsStaffMember,
	}
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

var errEmptyCredentials = errors.New("username and password are required")

// Login: role が "student"/"staff" のときはアカウント種別も確認する
func (s *Service) Login(ctx context.Context, username, password, role string) (string, error) {
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if want, ok := ParseRole(role); ok {
		switch want {
		case RoleStudent:
			if !acct.IsStudent {
				return "", ErrNotStudent
			}
		case RoleStaff:
			if !acct.IsStaffMember {
				return "", ErrNotStaff
			}
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(acct.ID, 10),
		"iat": s.now().Unix(),
		"exp": s.now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Service) Me(ctx context.Context, userID uint64) (*Account, error) {
	acct, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNotFound
	}
	return acct, nil
}

func (s *Service) Resolve(ctx context.Context, tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || token == nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return Session{}, ErrInvalidToken
	}

	// ロール変更・削除を即時反映するため毎回引き直す
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if acct == nil {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: acct.ID, Username: acct.Username, Role: roleOf(acct)}, nil
}
