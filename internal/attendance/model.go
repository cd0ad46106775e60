package attendance

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// MealType の JSON 表現は "Veg" / "Non-Veg" / null
type MealType string

const (
	MealNone   MealType = ""
	MealVeg    MealType = "Veg"
	MealNonVeg MealType = "Non-Veg"
)

// DefaultMeal: 食事区分が指定されなかった出席に入る値
const DefaultMeal = MealVeg

func ParseMeal(s string) (MealType, error) {
	switch s {
	case "":
		return MealNone, nil
	case string(MealVeg):
		return MealVeg, nil
	case string(MealNonVeg), "NonVeg":
		return MealNonVeg, nil
	}
	return MealNone, fmt.Errorf("meal_type: %q is not a valid choice", s)
}

func (m MealType) MarshalJSON() ([]byte, error) {
	if m == MealNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

func (m *MealType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = MealNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseMeal(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DB行に対応（スキャン用）
type attendanceRow struct {
	AttendanceID uint64
	StudentID    uint64
	AttendedOn   time.Time
	IsPresent    bool
	MealType     sql.NullString
}

// Record は1学生1日分の出欠。Date は保存された日付（UTC 0時）
type Record struct {
	ID        uint64
	StudentID uint64
	Date      time.Time
	IsPresent bool
	MealType  MealType
}

func (r attendanceRow) toModel() Record {
	rec := Record{
		ID:        r.AttendanceID,
		StudentID: r.StudentID,
		Date:      dateOnly(r.AttendedOn),
		IsPresent: r.IsPresent,
	}
	if r.MealType.Valid {
		rec.MealType = MealType(r.MealType.String)
	}
	return rec
}

func (r Record) ToDTO() RecordResponse {
	return RecordResponse{
		ID:        r.ID,
		Student:   r.StudentID,
		Date:      r.Date.Format(DateLayout),
		IsPresent: r.IsPresent,
		MealType:  r.MealType,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
