// Package dashboard builds the landing summary for each role.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"mess-backend/internal/attendance"
	"mess-backend/internal/billing"
	"mess-backend/internal/menu"
	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/clock"
)

type MenuSource interface {
	Today(ctx context.Context, now time.Time) (*menu.Item, error)
}

type AttendanceSource interface {
	PresentThisMonth(ctx context.Context, studentID uint64) (int, error)
	Roster(ctx context.Context, date, filter, sortKey string) ([]attendance.RosterRowResponse, error)
}

type BillSource interface {
	Latest(ctx context.Context, sess auth.Session, studentID *uint64) (*billing.BillResponse, error)
	List(ctx context.Context, sess auth.Session, month string) ([]billing.BillResponse, error)
}

type StudentSummary struct {
	Role             string                `json:"role"`
	Day              string                `json:"day"`
	TodayMenu        *menu.Item            `json:"today_menu"`
	Month            string                `json:"month"` // "January 2025"
	PresentThisMonth int                   `json:"present_this_month"`
	LatestBill       *billing.BillResponse `json:"latest_bill"`
}

type StaffSummary struct {
	Role         string     `json:"role"`
	Day          string     `json:"day"`
	TodayMenu    *menu.Item `json:"today_menu"`
	Students     int        `json:"students"`
	MarkedToday  int        `json:"marked_today"`
	PresentToday int        `json:"present_today"`
	Month        string     `json:"month"` // YYYY-MM
	BillsIssued  int        `json:"bills_issued"`
	BillsUnpaid  int        `json:"bills_unpaid"`
}

type Service struct {
	menu  MenuSource
	att   AttendanceSource
	bills BillSource
	clock clock.Clock
}

func NewService(m MenuSource, a AttendanceSource, b BillSource, c clock.Clock) *Service {
	return &Service{menu: m, att: a, bills: b, clock: c}
}

// Summary dispatches on the session role once; callers get StudentSummary or StaffSummary.
func (s *Service) Summary(ctx context.Context, sess auth.Session) (any, error) {
	switch sess.Role {
	case auth.RoleStaff:
		return s.Staff(ctx, sess)
	case auth.RoleStudent:
		return s.Student(ctx, sess)
	}
	return nil, fmt.Errorf("dashboard: unknown role %v", sess.Role)
}

// 曜日・月は出欠の保存日付と同じ UTC で決める
func (s *Service) Student(ctx context.Context, sess auth.Session) (StudentSummary, error) {
	now := s.clock.Now().UTC()
	today, err := s.menu.Today(ctx, now)
	if err != nil {
		return StudentSummary{}, err
	}
	present, err := s.att.PresentThisMonth(ctx, sess.UserID)
	if err != nil {
		return StudentSummary{}, err
	}
	bill, err := s.bills.Latest(ctx, sess, nil)
	if err != nil {
		return StudentSummary{}, err
	}
	return StudentSummary{
		Role:             auth.RoleStudent.String(),
		Day:              now.Weekday().String(),
		TodayMenu:        today,
		Month:            fmt.Sprintf("%s %d", now.Month(), now.Year()),
		PresentThisMonth: present,
		LatestBill:       bill,
	}, nil
}

func (s *Service) Staff(ctx context.Context, sess auth.Session) (StaffSummary, error) {
	now := s.clock.Now().UTC()
	today, err := s.menu.Today(ctx, now)
	if err != nil {
		return StaffSummary{}, err
	}
	rows, err := s.att.Roster(ctx, "", "", "")
	if err != nil {
		return StaffSummary{}, err
	}
	month := now.Format(billing.MonthLayout)
	bills, err := s.bills.List(ctx, sess, month)
	if err != nil {
		return StaffSummary{}, err
	}
	// 同じ学生・月に複数あれば id 最大の1件だけ数える
	bills = billing.AuthoritativeResponses(bills)

	sum := StaffSummary{
		Role:        auth.RoleStaff.String(),
		Day:         now.Weekday().String(),
		TodayMenu:   today,
		Students:    len(rows),
		Month:       month,
		BillsIssued: len(bills),
	}
	for _, r := range rows {
		if r.Marked {
			sum.MarkedToday++
			if r.IsPresent {
				sum.PresentToday++
			}
		}
	}
	for _, b := range bills {
		if !b.IsPaid {
			sum.BillsUnpaid++
		}
	}
	return sum, nil
}
