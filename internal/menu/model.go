package menu

import "time"

// 曜日の表示順（月曜始まり）
var weekOrder = map[string]int{
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

type Item struct {
	ID        uint64 `json:"id"`
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

type CreateItemRequest struct {
	Day       string `json:"day" binding:"required"`
	Breakfast string `json:"breakfast" binding:"required"`
	Lunch     string `json:"lunch" binding:"required"`
	Dinner    string `json:"dinner" binding:"required"`
}

// PATCH /menu/:id は部分更新
type UpdateItemRequest struct {
	Breakfast *string `json:"breakfast,omitempty"`
	Lunch     *string `json:"lunch,omitempty"`
	Dinner    *string `json:"dinner,omitempty"`
}

func dayName(t time.Time) string { return t.Weekday().String() }
