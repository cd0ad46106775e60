package rosteredit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster() []Student {
	return []Student{
		{ID: 11, RegNum: "2101", Name: "ravi"},
		{ID: 12, RegNum: "2102", Name: "Suresh"},
		{ID: 13, RegNum: "2203", Name: "anil"},
	}
}

func TestSaveDefaultsUntouched(t *testing.T) {
	e := New(roster(), nil)
	e.Set("2102", false)

	got := e.Save()
	require.Len(t, got, 3)
	assert.Equal(t, Entry{RegNum: "2101", IsPresent: true, MealType: "Veg"}, got[0])
	assert.Equal(t, Entry{RegNum: "2102", IsPresent: false, MealType: "Veg"}, got[1])
	assert.Equal(t, Entry{RegNum: "2203", IsPresent: true, MealType: "Veg"}, got[2])
}

func TestNewJoinsMarksOnStudentID(t *testing.T) {
	marks := []Mark{
		{StudentID: 13, IsPresent: false, MealType: "Non-Veg"},
		{StudentID: 99, IsPresent: false}, // roster 外
	}
	e := New(roster(), marks)
	got := e.Save()
	assert.Equal(t, Entry{RegNum: "2203", IsPresent: false, MealType: "Non-Veg"}, got[2])
	assert.Equal(t, DefaultEntry("2101"), got[0])
}

func TestMarkAllRespectsFilter(t *testing.T) {
	e := New(roster(), []Mark{{StudentID: 12, IsPresent: true, MealType: "Non-Veg"}})
	e.Set("2101", true)
	e.SetFilter("SURE")
	require.Len(t, e.Visible(), 1)

	e.MarkAll(false)
	e.SetFilter("")

	rows := e.Visible()
	assert.True(t, rows[0].Present, "2101 keeps its value")
	assert.False(t, rows[1].Present)
	assert.Equal(t, "Non-Veg", rows[1].Meal, "meal choice kept")
	assert.False(t, rows[2].Set, "2203 stays untouched")
}

func TestMarkAllDefaultsMeal(t *testing.T) {
	e := New(roster(), nil)
	e.MarkAll(false)
	for _, r := range e.Visible() {
		assert.Equal(t, "Veg", r.Meal)
		assert.False(t, r.Present)
	}
}

func TestFilterMatchesRegNumOrName(t *testing.T) {
	e := New(roster(), nil)
	tests := []struct {
		filter string
		want   []string
	}{
		{filter: "", want: []string{"2101", "2102", "2203"}},
		{filter: "21", want: []string{"2101", "2102"}},
		{filter: "ANIL", want: []string{"2203"}},
		{filter: "zzz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			e.SetFilter(tt.filter)
			got := []string{}
			for _, r := range e.Visible() {
				got = append(got, r.Student.RegNum)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func regNums(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Student.RegNum
	}
	return out
}

func TestSortToggle(t *testing.T) {
	e := New(roster(), nil)
	e.SortBy(SortName)
	assert.Equal(t, []string{"2203", "2101", "2102"}, regNums(e.Visible()))
	e.SortBy(SortName)
	assert.Equal(t, []string{"2102", "2101", "2203"}, regNums(e.Visible()))

	// 別キーに切り替えると昇順に戻る
	e.SortBy(SortRegNum)
	_, desc := e.Sort()
	assert.False(t, desc)
	assert.Equal(t, []string{"2101", "2102", "2203"}, regNums(e.Visible()))
}

func TestSortByStatusToggleKeepsGroups(t *testing.T) {
	e := New(roster(), nil)
	e.Set("2101", true)
	e.Set("2102", false)
	e.Set("2203", true)

	e.SortBy(SortStatus)
	asc := e.Visible()
	assert.Equal(t, []string{"2102", "2101", "2203"}, regNums(asc))

	e.SortBy(SortStatus)
	desc := e.Visible()
	assert.Equal(t, []string{"2101", "2203", "2102"}, regNums(desc))

	group := func(rows []Row) map[string]bool {
		m := map[string]bool{}
		for _, r := range rows {
			m[r.Student.RegNum] = r.Present
		}
		return m
	}
	assert.Equal(t, group(asc), group(desc))
}

type fakeSubmitter struct {
	err  error
	got  []Entry
	date string
}

func (f *fakeSubmitter) SubmitAttendance(_ context.Context, date string, entries []Entry) error {
	f.date = date
	f.got = entries
	return f.err
}

func TestSubmitFailureKeepsEdits(t *testing.T) {
	e := New(roster(), nil)
	e.Set("2101", false)
	e.SetMeal("2203", "Non-Veg")

	sub := &fakeSubmitter{err: errors.New("503")}
	err := e.Submit(context.Background(), "2025-01-15", sub)
	require.Error(t, err)
	assert.Equal(t, "2025-01-15", sub.date)
	assert.Len(t, sub.got, 3)

	sub.err = nil
	require.NoError(t, e.Submit(context.Background(), "2025-01-15", sub))
	assert.Equal(t, Entry{RegNum: "2101", IsPresent: false, MealType: "Veg"}, sub.got[0])
	assert.Equal(t, Entry{RegNum: "2203", IsPresent: true, MealType: "Non-Veg"}, sub.got[2])
}

func TestSetUnknownRegNum(t *testing.T) {
	e := New(roster(), nil)

	err := e.Set("9999", false)
	assert.ErrorIs(t, err, ErrUnknownRegNum)
	assert.ErrorContains(t, err, "9999")
	assert.ErrorIs(t, e.SetMeal(" 2101", "Non-Veg"), ErrUnknownRegNum)

	// 名簿外の編集は保存に残らない
	got := e.Save()
	require.Len(t, got, 3)
	for i, s := range roster() {
		assert.Equal(t, DefaultEntry(s.RegNum), got[i])
	}
	assert.NoError(t, e.SetMeal("2101", "Non-Veg"))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey(" Status ")
	assert.True(t, ok)
	assert.Equal(t, SortStatus, k)
	_, ok = ParseSortKey("branch")
	assert.False(t, ok)
}
