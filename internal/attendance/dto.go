package attendance

import (
	"time"

	"mess-backend/internal/rosteredit"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type RecordResponse struct {
	ID        uint64   `json:"id"`
	Student   uint64   `json:"student"`
	Date      string   `json:"date"` // YYYY-MM-DD
	IsPresent bool     `json:"is_present"`
	MealType  MealType `json:"meal_type"`
}

// ToRecord はクライアント側（messctl）で集計に戻すときに使う
func (r RecordResponse) ToRecord() (Record, error) {
	d, err := time.ParseInLocation(DateLayout, r.Date, time.UTC)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: r.ID, StudentID: r.Student, Date: d, IsPresent: r.IsPresent, MealType: r.MealType}, nil
}

// POST /attendance/ （学生の自己申告）。省略時は今日・出席・Veg
type MarkRequest struct {
	Date      *string   `json:"date,omitempty"`
	IsPresent *bool     `json:"is_present,omitempty"`
	MealType  *MealType `json:"meal_type,omitempty"`
}

type BulkRecord struct {
	RegNum    string    `json:"reg_num" binding:"required"`
	IsPresent *bool     `json:"is_present,omitempty"`
	MealType  *MealType `json:"meal_type,omitempty"`
}

type BulkRequest struct {
	Date    string       `json:"date" binding:"required"`
	Records []BulkRecord `json:"records" binding:"required,min=1,dive"`
}

type BulkResult struct {
	Message string   `json:"message"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

type ListQuery struct {
	StudentID *uint64
	On        *time.Time
	From      *time.Time
	To        *time.Time
}

type MonthBucketResponse struct {
	Label        string           `json:"label"` // "January 2025"
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	PresentCount int              `json:"present_count"`
	TotalCount   int              `json:"total_count"`
	Percent      *int             `json:"percent"` // total=0 のとき null
	Records      []RecordResponse `json:"records"`
}

// GET /attendance/roster の1行
type RosterRowResponse struct {
	StudentID uint64   `json:"student_id"`
	RegNum    string   `json:"reg_num"`
	Name      string   `json:"name"`
	Marked    bool     `json:"marked"`
	IsPresent bool     `json:"is_present"`
	MealType  MealType `json:"meal_type"`
}

func rosterRow(r rosteredit.Row) RosterRowResponse {
	return RosterRowResponse{
		StudentID: r.Student.ID,
		RegNum:    r.Student.RegNum,
		Name:      r.Student.Name,
		Marked:    r.Set,
		IsPresent: r.Present,
		MealType:  MealType(r.Meal),
	}
}

type StatsRequest struct {
	From  string // YYYY-MM-DD
	To    string // YYYY-MM-DD
	Limit int
}

type StatsRow struct {
	StudentID uint64 `json:"student_id"`
	RegNum    string `json:"reg_num"`
	Present   int64  `json:"present"`
}

// MonthTally: 請求計算用の学生別集計
type MonthTally struct {
	PresentDays int
	NonVegDays  int
}
