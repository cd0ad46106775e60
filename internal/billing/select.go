package billing

// Latest returns the bill with the highest id for month.
func Latest(bills []Bill, month string) (Bill, bool) {
	var (
		out   Bill
		found bool
	)
	for _, b := range bills {
		if b.Month != month {
			continue
		}
		if !found || b.ID > out.ID {
			out, found = b, true
		}
	}
	return out, found
}

// LatestOverall: 最後に作られた（id 最大の）請求
func LatestOverall(bills []Bill) (Bill, bool) {
	var (
		out   Bill
		found bool
	)
	for _, b := range bills {
		if !found || b.ID > out.ID {
			out, found = b, true
		}
	}
	return out, found
}

// Authoritative keeps one bill per (student, month), the highest id, in input order of first appearance.
func Authoritative(bills []Bill) []Bill {
	return highestPerMonth(bills, func(b Bill) (uint64, string, uint64) { return b.StudentID, b.Month, b.ID })
}

// AuthoritativeResponses は API 応答に対する Authoritative
func AuthoritativeResponses(bills []BillResponse) []BillResponse {
	return highestPerMonth(bills, func(b BillResponse) (uint64, string, uint64) { return b.Student, b.Month, b.ID })
}

func highestPerMonth[T any](items []T, key func(T) (student uint64, month string, id uint64)) []T {
	type k struct {
		student uint64
		month   string
	}
	idx := map[k]int{}
	out := make([]T, 0, len(items))
	for _, it := range items {
		st, m, id := key(it)
		i, ok := idx[k{st, m}]
		if !ok {
			idx[k{st, m}] = len(out)
			out = append(out, it)
			continue
		}
		if _, _, cur := key(out[i]); id > cur {
			out[i] = it
		}
	}
	return out
}
