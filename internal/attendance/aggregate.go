package attendance

import (
	"fmt"
	"sort"
	"time"

	"mess-backend/internal/platform/clock"
)

// MonthBucket は1か月分の出欠。Records は新しい日付順
type MonthBucket struct {
	Year         int
	Month        time.Month
	Records      []Record
	PresentCount int
	TotalCount   int
}

func (b MonthBucket) Label() string { return fmt.Sprintf("%s %d", b.Month, b.Year) }

// Percent returns the rounded present ratio; ok is false when the month has no records.
func (b MonthBucket) Percent() (int, bool) {
	if b.TotalCount == 0 {
		return 0, false
	}
	return (b.PresentCount*100 + b.TotalCount/2) / b.TotalCount, true
}

func (b MonthBucket) ToDTO() MonthBucketResponse {
	res := MonthBucketResponse{
		Label:        b.Label(),
		Year:         b.Year,
		Month:        int(b.Month),
		PresentCount: b.PresentCount,
		TotalCount:   b.TotalCount,
		Records:      make([]RecordResponse, 0, len(b.Records)),
	}
	if p, ok := b.Percent(); ok {
		res.Percent = &p
	}
	for _, r := range b.Records {
		res.Records = append(res.Records, r.ToDTO())
	}
	return res
}

func monthKey(year int, month time.Month) int { return year*12 + int(month) - 1 }

// GroupByMonth buckets records by the calendar month of their stored date,
// most recent month first. Empty input gives an empty, non-nil slice.
func GroupByMonth(records []Record) []MonthBucket {
	idx := map[int]int{}
	out := []MonthBucket{}
	for _, r := range records {
		k := monthKey(r.Date.Year(), r.Date.Month())
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, MonthBucket{Year: r.Date.Year(), Month: r.Date.Month()})
		}
		b := &out[i]
		b.Records = append(b.Records, r)
		b.TotalCount++
		if r.IsPresent {
			b.PresentCount++
		}
	}

	// 月名の文字列ではなく (年, 月) で比較する
	sort.Slice(out, func(i, j int) bool {
		return monthKey(out[i].Year, out[i].Month) > monthKey(out[j].Year, out[j].Month)
	})
	for i := range out {
		out[i].Records = HistoryOrder(out[i].Records)
	}
	return out
}

// PresentInCurrentMonth は呼ばれるたびに clock から現在月を読む。
// 保存日付と同じく UTC で月を決める
func PresentInCurrentMonth(records []Record, c clock.Clock) int {
	now := c.Now().UTC()
	y, m := now.Year(), now.Month()
	n := 0
	for _, r := range records {
		if r.IsPresent && r.Date.Year() == y && r.Date.Month() == m {
			n++
		}
	}
	return n
}

// HistoryOrder returns a copy sorted by date desc, id desc.
func HistoryOrder(records []Record) []Record {
	out := append([]Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
