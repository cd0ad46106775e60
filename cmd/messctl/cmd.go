package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"mess-backend/internal/attendance"
	"mess-backend/internal/client"
	"mess-backend/internal/platform/auth"
	"mess-backend/internal/rosteredit"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNotStaff = errors.New("this command needs a staff account")
)

type commandLine struct {
	api       *client.Client
	out       io.Writer
	tokenFile string
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME [-role student|staff] - log in, the password is prompted next")
	fmt.Fprintln(cli.out, "  whoami - show the current account")
	fmt.Fprintln(cli.out, "  roster -date YYYY-MM-DD [-q TEXT] [-sort reg_num|name|status] [-desc] [-markall present|absent] [-absent REG,...] [-nonveg REG,...] [-save] - edit a day's attendance (staff)")
	fmt.Fprintln(cli.out, "  history [-student ID] [-date YYYY-MM-DD] - list attendance records")
	fmt.Fprintln(cli.out, "  monthly [-student ID] - monthly attendance summary")
	fmt.Fprintln(cli.out, "  invoice [-id BILL_ID] [-out FILE] - download a bill invoice (latest by default)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginUname := loginCmd.String("username", "", "The account's username. The password will be prompted next.")
	loginRole := loginCmd.String("role", "", "Login as student or staff. Empty accepts either.")

	rosterCmd := flag.NewFlagSet("roster", flag.ExitOnError)
	rosterDate := rosterCmd.String("date", "", "Attendance date (YYYY-MM-DD).")
	rosterFilter := rosterCmd.String("q", "", "Only show students whose reg num or name contains TEXT.")
	rosterSort := rosterCmd.String("sort", "", "Sort by reg_num, name or status.")
	rosterDesc := rosterCmd.Bool("desc", false, "Reverse the sort order.")
	rosterMarkAll := rosterCmd.String("markall", "", "Mark every shown student present or absent.")
	rosterAbsent := rosterCmd.String("absent", "", "Comma separated reg nums to mark absent.")
	rosterNonVeg := rosterCmd.String("nonveg", "", "Comma separated reg nums that took a Non-Veg meal.")
	rosterSave := rosterCmd.Bool("save", false, "Send the whole roster to the server.")

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	historyStudent := historyCmd.Uint64("student", 0, "Student id (staff only).")
	historyDate := historyCmd.String("date", "", "Only this date (YYYY-MM-DD).")

	monthlyCmd := flag.NewFlagSet("monthly", flag.ExitOnError)
	monthlyStudent := monthlyCmd.Uint64("student", 0, "Student id (required for staff).")

	invoiceCmd := flag.NewFlagSet("invoice", flag.ExitOnError)
	invoiceID := invoiceCmd.Uint64("id", 0, "Bill id. Defaults to the latest bill.")
	invoiceOut := invoiceCmd.String("out", "", "Output file. Defaults to the server's file name.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		role, ok := auth.ParseRole(*loginRole)
		if *loginRole != "" && !ok {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, string(pwd), role)

	case "whoami":
		sess, err := cli.session(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s (%s)\n", sess.User.Username, sess.Role)
		return nil

	case "roster":
		if err := rosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rosterDate == "" {
			rosterCmd.Usage()
			return errHelp
		}
		opts := rosterOptions{
			date:   *rosterDate,
			filter: *rosterFilter,
			desc:   *rosterDesc,
			absent: splitList(*rosterAbsent),
			nonVeg: splitList(*rosterNonVeg),
			save:   *rosterSave,
		}
		if *rosterSort != "" {
			key, ok := rosteredit.ParseSortKey(*rosterSort)
			if !ok {
				return fmt.Errorf("unknown sort key %q", *rosterSort)
			}
			opts.sort = key
		}
		switch *rosterMarkAll {
		case "":
		case "present":
			opts.markAll = ptr(true)
		case "absent":
			opts.markAll = ptr(false)
		default:
			return fmt.Errorf("-markall must be present or absent, got %q", *rosterMarkAll)
		}
		return cli.roster(ctx, opts)

	case "history":
		if err := historyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.history(ctx, *historyDate, *historyStudent)

	case "monthly":
		if err := monthlyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.monthly(ctx, *monthlyStudent)

	case "invoice":
		if err := invoiceCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.invoice(ctx, *invoiceID, *invoiceOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, username, password string, role auth.Role) error {
	sess, err := cli.api.Login(ctx, username, password, role)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cli.tokenFile, []byte(sess.Token), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(cli.out, "logged in as %s (%s)\n", sess.User.Username, sess.Role)
	return nil
}

// session は保存済みトークンを読み込み、/me/ で毎回ロールを確認する
func (cli *commandLine) session(ctx context.Context) (*client.Session, error) {
	buf, err := os.ReadFile(cli.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, client.ErrNotLoggedIn
		}
		return nil, err
	}
	tok := strings.TrimSpace(string(buf))
	if tok == "" {
		return nil, client.ErrNotLoggedIn
	}
	return cli.api.WithToken(tok).Refresh(ctx)
}

type rosterOptions struct {
	date    string
	filter  string
	sort    rosteredit.SortKey
	desc    bool
	markAll *bool
	absent  []string
	nonVeg  []string
	save    bool
}

func (cli *commandLine) roster(ctx context.Context, o rosterOptions) error {
	if _, err := time.Parse(attendance.DateLayout, o.date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", o.date)
	}
	sess, err := cli.session(ctx)
	if err != nil {
		return err
	}
	if sess.Role != auth.RoleStaff {
		return errNotStaff
	}

	ps, err := cli.api.Profiles(ctx)
	if err != nil {
		return err
	}
	recs, err := cli.api.Attendance(ctx, o.date, 0)
	if err != nil {
		return err
	}

	students := make([]rosteredit.Student, 0, len(ps))
	for _, p := range ps {
		students = append(students, rosteredit.Student{ID: p.ID, RegNum: p.RegNum, Name: p.User.Username})
	}
	marks := make([]rosteredit.Mark, 0, len(recs))
	for _, r := range recs {
		marks = append(marks, rosteredit.Mark{StudentID: r.Student, IsPresent: r.IsPresent, MealType: string(r.MealType)})
	}

	ed := rosteredit.New(students, marks)
	ed.SetFilter(o.filter)
	if o.sort != "" {
		ed.SortBy(o.sort)
		if o.desc {
			ed.SortBy(o.sort)
		}
	}
	if o.markAll != nil {
		ed.MarkAll(*o.markAll)
	}
	for _, reg := range o.absent {
		if err := ed.Set(reg, false); err != nil {
			return fmt.Errorf("-absent: %w", err)
		}
	}
	for _, reg := range o.nonVeg {
		if err := ed.SetMeal(reg, string(attendance.MealNonVeg)); err != nil {
			return fmt.Errorf("-nonveg: %w", err)
		}
	}

	cli.printRows(ed.Visible())

	if !o.save {
		return nil
	}
	if err := ed.Submit(ctx, o.date, cli.api); err != nil {
		return fmt.Errorf("save attendance for %s: %w", o.date, err)
	}
	fmt.Fprintf(cli.out, "saved %d records for %s\n", len(ed.Save()), o.date)
	return nil
}

func (cli *commandLine) printRows(rows []rosteredit.Row) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REG NUM\tNAME\tSTATUS\tMEAL")
	for _, r := range rows {
		status, meal := "-", "-"
		if r.Set {
			status = "Absent"
			if r.Present {
				status = "Present"
			}
			if r.Meal != "" {
				meal = r.Meal
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Student.RegNum, r.Student.Name, status, meal)
	}
	w.Flush()
}

func (cli *commandLine) history(ctx context.Context, date string, studentID uint64) error {
	if _, err := cli.session(ctx); err != nil {
		return err
	}
	res, err := cli.api.Attendance(ctx, date, studentID)
	if err != nil {
		return err
	}
	if len(res) == 0 {
		fmt.Fprintln(cli.out, "no records")
		return nil
	}
	recs := make([]attendance.Record, 0, len(res))
	for _, r := range res {
		rec, err := r.ToRecord()
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTUDENT\tSTATUS\tMEAL")
	for _, r := range attendance.HistoryOrder(recs) {
		status, meal := "Absent", "-"
		if r.IsPresent {
			status = "Present"
		}
		if r.MealType != attendance.MealNone {
			meal = string(r.MealType)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Date.Format(attendance.DateLayout), r.StudentID, status, meal)
	}
	return w.Flush()
}

func (cli *commandLine) monthly(ctx context.Context, studentID uint64) error {
	if _, err := cli.session(ctx); err != nil {
		return err
	}
	buckets, err := cli.api.Monthly(ctx, studentID)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		fmt.Fprintln(cli.out, "no records")
		return nil
	}
	for _, b := range buckets {
		pct := "no data"
		if b.Percent != nil {
			pct = fmt.Sprintf("%d%%", *b.Percent)
		}
		fmt.Fprintf(cli.out, "%-16s %d/%d  %s\n", b.Label, b.PresentCount, b.TotalCount, pct)
	}
	return nil
}

func (cli *commandLine) invoice(ctx context.Context, billID uint64, out string) error {
	if _, err := cli.session(ctx); err != nil {
		return err
	}
	path := "/api/bills/latest/invoice"
	if billID != 0 {
		path = fmt.Sprintf("/api/bills/%d/invoice", billID)
	}
	name, data, ok, err := cli.api.Download(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cli.out, "no bill yet")
		return nil
	}
	if out == "" {
		out = filepath.Base(name)
		if name == "" {
			out = "invoice.pdf"
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
