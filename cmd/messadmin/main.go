// Command messadmin runs database-side maintenance: schema setup and staff accounts.
package main

import (
	"log"
	"os"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/config"
	"mess-backend/internal/platform/db"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "MESSADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cfgPath := os.Getenv("MESS_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	errAndDie(err)

	// set up DB
	conn, err := db.Connect(cfg.DB)
	errAndDie(err)
	defer conn.Close()

	// トークンは発行しないので secret は不要
	cli := commandLine{
		db:       conn,
		accounts: auth.NewService(auth.NewStore(conn), nil, cfg.Auth.TokenTTL),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
