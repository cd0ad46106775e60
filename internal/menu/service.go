package menu

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mess-backend/internal/platform/db"
	"mess-backend/internal/platform/httperr"
)

type Repository interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id uint64) (*Item, error)
	GetByDay(ctx context.Context, day string) (*Item, error)
	Create(ctx context.Context, in CreateItemRequest) (uint64, error)
	Update(ctx context.Context, id uint64, in UpdateItemRequest) error
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service { return &Service{store: store} }

// NormalizeDay: " monday" → "Monday"。曜日名でなければ ok=false
func NormalizeDay(s string) (string, bool) {
	// Caser はゴルーチン間で共有できないので毎回作る
	d := cases.Title(language.English).String(strings.TrimSpace(s))
	_, ok := weekOrder[d]
	return d, ok
}

// SortByWeek orders items Monday..Sunday in place.
func SortByWeek(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return weekOrder[items[i].Day] < weekOrder[items[j].Day]
	})
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	SortByWeek(items)
	return items, nil
}

// Today: その曜日のメニューが未設定なら nil
func (s *Service) Today(ctx context.Context, now time.Time) (*Item, error) {
	return s.store.GetByDay(ctx, dayName(now))
}

func (s *Service) Create(ctx context.Context, in CreateItemRequest) (Item, error) {
	day, ok := NormalizeDay(in.Day)
	if !ok {
		return Item{}, httperr.ErrInvalid("day: \"" + in.Day + "\" is not a valid choice.")
	}
	in.Day = day

	id, err := s.store.Create(ctx, in)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return Item{}, httperr.ErrConflict("day: menu with this day already exists.")
		}
		return Item{}, err
	}
	return Item{ID: id, Day: day, Breakfast: in.Breakfast, Lunch: in.Lunch, Dinner: in.Dinner}, nil
}

func (s *Service) Update(ctx context.Context, id uint64, in UpdateItemRequest) (Item, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if cur == nil {
		return Item{}, httperr.ErrNotFound("menu not found")
	}
	if err := s.store.Update(ctx, id, in); err != nil {
		return Item{}, err
	}
	if in.Breakfast != nil {
		cur.Breakfast = *in.Breakfast
	}
	if in.Lunch != nil {
		cur.Lunch = *in.Lunch
	}
	if in.Dinner != nil {
		cur.Dinner = *in.Dinner
	}
	return *cur, nil
}
