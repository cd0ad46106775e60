package profiles

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/db"
	"mess-backend/internal/platform/httperr"
)

type Repository interface {
	List(ctx context.Context) ([]Profile, error)
	Get(ctx context.Context, userID uint64) (*Profile, error)
	GetByRegNum(ctx context.Context, regNum string) (*Profile, error)
	Create(ctx context.Context, userID uint64, in CreateProfileRequest) error
	Update(ctx context.Context, userID uint64, in UpdateProfileRequest) error
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service { return &Service{store: store} }

// GET /profiles/ : staff は全員、student は自分のみ（0件 or 1件）
func (s *Service) List(ctx context.Context, sess auth.Session) ([]ProfileResponse, error) {
	if sess.IsStaff() {
		ps, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]ProfileResponse, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ToDTO())
		}
		return out, nil
	}

	p, err := s.store.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []ProfileResponse{}, nil
	}
	return []ProfileResponse{p.ToDTO()}, nil
}

func (s *Service) Get(ctx context.Context, sess auth.Session, id uint64) (ProfileResponse, error) {
	if !sess.IsStaff() && sess.UserID != id {
		return ProfileResponse{}, httperr.ErrNotFound("profile not found")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ProfileResponse{}, err
	}
	if p == nil {
		return ProfileResponse{}, httperr.ErrNotFound("profile not found")
	}
	return p.ToDTO(), nil
}

// POST /profiles/ : ログイン中ユーザーのプロフィールを1件だけ作る
func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateProfileRequest) (ProfileResponse, error) {
	in.RegNum = strings.TrimSpace(in.RegNum)
	in.Branch = strings.TrimSpace(in.Branch)
	if in.RegNum == "" || in.Branch == "" {
		return ProfileResponse{}, httperr.ErrInvalid("reg_num and branch are required")
	}

	existing, err := s.store.Get(ctx, sess.UserID)
	if err != nil {
		return ProfileResponse{}, err
	}
	if existing != nil {
		return ProfileResponse{}, httperr.ErrConflict("user: student profile with this user already exists.")
	}

	if err := s.store.Create(ctx, sess.UserID, in); err != nil {
		if db.IsDuplicateKey(err) {
			return ProfileResponse{}, httperr.ErrConflict("reg_num: student profile with this reg num already exists.")
		}
		return ProfileResponse{}, err
	}
	return s.Get(ctx, sess, sess.UserID)
}

func (s *Service) Update(ctx context.Context, sess auth.Session, id uint64, in UpdateProfileRequest) (ProfileResponse, error) {
	if !sess.IsStaff() && sess.UserID != id {
		return ProfileResponse{}, httperr.ErrNotFound("profile not found")
	}
	if err := s.store.Update(ctx, id, in); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProfileResponse{}, httperr.ErrNotFound("profile not found")
		}
		if db.IsDuplicateKey(err) {
			return ProfileResponse{}, httperr.ErrConflict("reg_num: student profile with this reg num already exists.")
		}
		return ProfileResponse{}, err
	}
	return s.Get(ctx, sess, id)
}

// Roster: 出欠一括入力・請求生成が使う全学生一覧
func (s *Service) Roster(ctx context.Context) ([]Profile, error) {
	return s.store.List(ctx)
}

// Lookup: プロフィール未作成なら (nil, nil)
func (s *Service) Lookup(ctx context.Context, userID uint64) (*Profile, error) {
	return s.store.Get(ctx, userID)
}
