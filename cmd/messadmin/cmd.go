package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"mess-backend/internal/platform/auth"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type accountRegistrar interface {
	Register(ctx context.Context, in auth.RegisterRequest) (*auth.Account, error)
}

type commandLine struct {
	db       *sql.DB
	accounts accountRegistrar
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [-schema FILE] - create the tables (idempotent)")
	fmt.Println("  createstaff -username USERNAME [-email EMAIL] - create a staff account, the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateSchema := migrateCmd.String("schema", "config/schema.sql", "Path to the schema file.")

	createStaffCmd := flag.NewFlagSet("createstaff", flag.ExitOnError)
	createStaffUname := createStaffCmd.String("username", "", "The staff member's username. The password will be prompted next.")
	createStaffEmail := createStaffCmd.String("email", "", "The staff member's email.")

	switch args[1] {
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		buf, err := os.ReadFile(*migrateSchema)
		if err != nil {
			return err
		}
		return cli.migrate(ctx, string(buf))

	case "createstaff":
		if err := createStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createStaffUname == "" {
			createStaffCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createStaffCmd.Usage()
			return errHelp
		}
		return cli.createStaff(ctx, *createStaffUname, *createStaffEmail, string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}

// migrate はスキーマを ";" 区切りで順に流す（CREATE TABLE IF NOT EXISTS 前提）
func (cli *commandLine) migrate(ctx context.Context, schema string) error {
	n := 0
	for _, stmt := range splitStatements(schema) {
		if _, err := cli.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: statement %d: %w", n+1, err)
		}
		n++
	}
	logger.Printf("[INFO] applied %d statements", n)
	return nil
}

func splitStatements(schema string) []string {
	var lines []string
	for _, l := range strings.Split(schema, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}

	var out []string
	for _, s := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// 既にあるユーザー名ならそのまま成功扱い
func (cli *commandLine) createStaff(ctx context.Context, username, email, password string) error {
	acct, err := cli.accounts.Register(ctx, auth.RegisterRequest{
		Username:      username,
		Email:         email,
		Password:      password,
		IsStaffMember: true,
	})
	if errors.Is(err, auth.ErrAlreadyExists) {
		logger.Printf("[INFO] staff user %q already exists", username)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Printf("[INFO] staff user %q created (id=%d)", acct.Username, acct.ID)
	return nil
}
