package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mess-backend/internal/platform/clock"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func sample() []Record {
	return []Record{
		{ID: 1, Date: day(2024, time.December, 30), IsPresent: true, MealType: MealVeg},
		{ID: 2, Date: day(2025, time.January, 2), IsPresent: false},
		{ID: 3, Date: day(2024, time.November, 5), IsPresent: true, MealType: MealNonVeg},
		{ID: 4, Date: day(2025, time.January, 1), IsPresent: true, MealType: MealVeg},
		{ID: 5, Date: day(2024, time.December, 31), IsPresent: false},
		{ID: 6, Date: day(2025, time.January, 3), IsPresent: true, MealType: MealNonVeg},
	}
}

func TestGroupByMonthOrder(t *testing.T) {
	got := GroupByMonth(sample())
	require.Len(t, got, 3)
	assert.Equal(t, "January 2025", got[0].Label())
	assert.Equal(t, "December 2024", got[1].Label())
	assert.Equal(t, "November 2024", got[2].Label())

	// 月内は新しい日付順
	jan := got[0]
	require.Len(t, jan.Records, 3)
	assert.Equal(t, []uint64{6, 2, 4}, []uint64{jan.Records[0].ID, jan.Records[1].ID, jan.Records[2].ID})
	assert.Equal(t, 2, jan.PresentCount)
	assert.Equal(t, 3, jan.TotalCount)
}

func TestGroupByMonthTotals(t *testing.T) {
	inputs := [][]Record{
		sample(),
		sample()[:1],
		{
			{ID: 9, Date: day(2023, time.March, 1), IsPresent: false},
			{ID: 8, Date: day(2025, time.March, 1), IsPresent: false},
			{ID: 7, Date: day(2024, time.March, 1), IsPresent: true},
		},
	}
	for _, recs := range inputs {
		present := 0
		for _, r := range recs {
			if r.IsPresent {
				present++
			}
		}

		buckets := GroupByMonth(recs)
		sumP, sumT := 0, 0
		for i, b := range buckets {
			sumP += b.PresentCount
			sumT += b.TotalCount
			if i > 0 {
				prev := buckets[i-1]
				assert.True(t, monthKey(prev.Year, prev.Month) > monthKey(b.Year, b.Month))
			}
		}
		assert.Equal(t, present, sumP)
		assert.Equal(t, len(recs), sumT)
	}
}

func TestGroupByMonthEmpty(t *testing.T) {
	got := GroupByMonth(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPercent(t *testing.T) {
	p, ok := MonthBucket{}.Percent()
	assert.False(t, ok)
	assert.Zero(t, p)

	p, ok = MonthBucket{PresentCount: 2, TotalCount: 3}.Percent()
	assert.True(t, ok)
	assert.Equal(t, 67, p)

	assert.Nil(t, MonthBucket{Year: 2025, Month: time.May}.ToDTO().Percent)
}

func TestPresentInCurrentMonth(t *testing.T) {
	recs := append(sample(),
		Record{ID: 10, Date: day(2024, time.January, 2), IsPresent: true}, // 前年の同じ月
	)
	tests := []struct {
		name string
		now  time.Time
		recs []Record
		want int
	}{
		{name: "empty", now: day(2025, time.January, 20), want: 0},
		{name: "january", now: day(2025, time.January, 20), recs: recs, want: 2},
		{name: "december", now: time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC), recs: recs, want: 1},
		{name: "no records this month", now: day(2025, time.June, 1), recs: recs, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PresentInCurrentMonth(tt.recs, clock.Fixed(tt.now)))
		})
	}
}

type stepClock struct{ times []time.Time }

func (s *stepClock) Now() time.Time {
	t := s.times[0]
	s.times = s.times[1:]
	return t
}

func TestPresentInCurrentMonthReadsClockEachCall(t *testing.T) {
	c := &stepClock{times: []time.Time{day(2024, time.December, 31), day(2025, time.January, 1)}}
	assert.Equal(t, 1, PresentInCurrentMonth(sample(), c))
	assert.Equal(t, 2, PresentInCurrentMonth(sample(), c))
}

func TestHistoryOrder(t *testing.T) {
	recs := sample()
	recs = append(recs, Record{ID: 11, Date: day(2025, time.January, 3)})
	got := HistoryOrder(recs)
	ids := make([]uint64, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []uint64{11, 6, 2, 4, 5, 1, 3}, ids)
	assert.Equal(t, uint64(1), recs[0].ID, "input untouched")
}
