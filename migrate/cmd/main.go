// Command migrate applies the embedded schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/authforge/oauth2/migrate"
)

func main() {
	var (
		driver  = flag.String("driver", "postgres", "database driver (postgres or sqlite)")
		dsn     = flag.String("dsn", "", "database connection string")
		command = flag.String("cmd", "up", "migration command: up, down, status, version, up-to, down-to, redo, reset")
		target  = flag.Int64("target", 0, "target version for up-to/down-to")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "missing -dsn")
		os.Exit(2)
	}

	err := migrate.Run(context.Background(), migrate.Options{
		Driver:  *driver,
		DSN:     *dsn,
		Command: *command,
		Target:  *target,
		Logger:  log.New(os.Stdout, "[migrate] ", log.LstdFlags),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrate completed successfully")
}
