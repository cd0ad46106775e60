// Package rosteredit holds the staff-side bulk attendance editing state for one date:
// server marks merged with local edits, keyed by reg num.
package rosteredit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownRegNum: 名簿に無い学籍番号を編集しようとした
var ErrUnknownRegNum = errors.New("reg num not on roster")

// DefaultMeal は未入力の学生に入る食事区分
const DefaultMeal = "Veg"

type Student struct {
	ID     uint64
	RegNum string
	Name   string
}

// Mark: サーバ側の既存出欠（StudentID はプロフィールID）
type Mark struct {
	StudentID uint64
	IsPresent bool
	MealType  string
}

// Entry は bulk_update の1レコード
type Entry struct {
	RegNum    string `json:"reg_num"`
	IsPresent bool   `json:"is_present"`
	MealType  string `json:"meal_type"`
}

// DefaultEntry: 一度も触られていない学生は出席・Veg 扱い
func DefaultEntry(regNum string) Entry {
	return Entry{RegNum: regNum, IsPresent: true, MealType: DefaultMeal}
}

type SortKey string

const (
	SortRegNum SortKey = "reg_num"
	SortName   SortKey = "name"
	SortStatus SortKey = "status"
)

func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortRegNum, SortName, SortStatus:
		return k, true
	}
	return "", false
}

type edit struct {
	present bool
	meal    string
}

type Row struct {
	Student Student
	// Set=false はサーバにもローカルにも値が無い
	Set     bool
	Present bool
	Meal    string
}

// Submitter sends one full-roster upsert for a date.
type Submitter interface {
	SubmitAttendance(ctx context.Context, date string, entries []Entry) error
}

type Editor struct {
	roster []Student
	regs   map[string]bool
	edits  map[string]edit
	filter string
	key    SortKey
	desc   bool
}

// New: marks の StudentID を roster の ID と突き合わせて編集マップを作る
func New(roster []Student, marks []Mark) *Editor {
	byID := make(map[uint64]string, len(roster))
	regs := make(map[string]bool, len(roster))
	for _, s := range roster {
		byID[s.ID] = s.RegNum
		regs[s.RegNum] = true
	}
	e := &Editor{
		roster: append([]Student(nil), roster...),
		regs:   regs,
		edits:  make(map[string]edit, len(marks)),
	}
	for _, m := range marks {
		reg, ok := byID[m.StudentID]
		if !ok {
			continue
		}
		e.edits[reg] = edit{present: m.IsPresent, meal: m.MealType}
	}
	return e
}

func (e *Editor) Set(regNum string, present bool) error {
	if !e.regs[regNum] {
		return fmt.Errorf("%w: %s", ErrUnknownRegNum, regNum)
	}
	cur := e.edits[regNum]
	cur.present = present
	e.edits[regNum] = cur
	return nil
}

// SetMeal: 未設定の学生に食事だけ入れた場合は出席扱い
func (e *Editor) SetMeal(regNum, meal string) error {
	if !e.regs[regNum] {
		return fmt.Errorf("%w: %s", ErrUnknownRegNum, regNum)
	}
	cur, ok := e.edits[regNum]
	if !ok {
		cur.present = true
	}
	cur.meal = meal
	e.edits[regNum] = cur
	return nil
}

// Save returns exactly one entry per roster member, in roster order.
func (e *Editor) Save() []Entry {
	out := make([]Entry, 0, len(e.roster))
	for _, s := range e.roster {
		ed, ok := e.edits[s.RegNum]
		if !ok {
			out = append(out, DefaultEntry(s.RegNum))
			continue
		}
		meal := ed.meal
		if meal == "" {
			meal = DefaultMeal
		}
		out = append(out, Entry{RegNum: s.RegNum, IsPresent: ed.present, MealType: meal})
	}
	return out
}

// Submit は失敗しても編集状態を消さない（そのまま再送できる）
func (e *Editor) Submit(ctx context.Context, date string, to Submitter) error {
	return to.SubmitAttendance(ctx, date, e.Save())
}

// MarkAll は現在のフィルタで見えている学生だけに適用する
func (e *Editor) MarkAll(present bool) {
	for _, s := range e.roster {
		if !e.matches(s) {
			continue
		}
		cur, ok := e.edits[s.RegNum]
		if !ok || cur.meal == "" {
			cur.meal = DefaultMeal
		}
		cur.present = present
		e.edits[s.RegNum] = cur
	}
}

func (e *Editor) SetFilter(text string) { e.filter = strings.ToLower(strings.TrimSpace(text)) }

// SortBy: 同じキーなら昇順/降順を反転、別キーなら昇順から
func (e *Editor) SortBy(key SortKey) {
	if e.key == key {
		e.desc = !e.desc
		return
	}
	e.key = key
	e.desc = false
}

func (e *Editor) Sort() (SortKey, bool) { return e.key, e.desc }

func (e *Editor) matches(s Student) bool {
	if e.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.RegNum), e.filter) ||
		strings.Contains(strings.ToLower(s.Name), e.filter)
}

func (e *Editor) row(s Student) Row {
	ed, ok := e.edits[s.RegNum]
	if !ok {
		return Row{Student: s}
	}
	return Row{Student: s, Set: true, Present: ed.present, Meal: ed.meal}
}

// Visible returns the filtered roster in the current sort order.
func (e *Editor) Visible() []Row {
	rows := make([]Row, 0, len(e.roster))
	for _, s := range e.roster {
		if e.matches(s) {
			rows = append(rows, e.row(s))
		}
	}
	if e.key == "" {
		return rows
	}

	less := func(a, b Row) int {
		switch e.key {
		case SortRegNum:
			return strings.Compare(a.Student.RegNum, b.Student.RegNum)
		case SortName:
			return strings.Compare(strings.ToLower(a.Student.Name), strings.ToLower(b.Student.Name))
		default:
			return status(a) - status(b)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := less(rows[i], rows[j])
		if e.desc {
			return c > 0
		}
		return c < 0
	})
	return rows
}

// 出席=1、欠席・未入力=0
func status(r Row) int {
	if r.Set && r.Present {
		return 1
	}
	return 0
}
