// Command messctl is a terminal client for the mess API.
//
//	MESS_API=https://localhost:8443 messctl login -username warden -role staff
//	messctl roster -date 2025-01-15 -absent 2101,2102 -save
package main

import (
	"log"
	"os"
	"path/filepath"

	"mess-backend/internal/client"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "MESSCTL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	base := os.Getenv("MESS_API")
	if base == "" {
		base = "https://localhost:8443"
	}

	cli := commandLine{
		api:       client.New(base),
		out:       os.Stdout,
		tokenFile: tokenPath(),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func tokenPath() string {
	if p := os.Getenv("MESS_TOKEN_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".messctl_token"
	}
	return filepath.Join(home, ".messctl_token")
}
