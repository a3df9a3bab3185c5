// cmd/migrate/main.go
//
// Schema migration command.
//
// Usage
// -----
//
//	migrate [-env production] up|down|status
//
// The database URI comes from the same configuration layers the web server
// uses, so APP_ENV and DATABASE_URL select the target.  Version 1 creates
// every registered entity table; down drops them again.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cyberitance/backend/internal/config"
	"github.com/cyberitance/backend/internal/database"
	"github.com/cyberitance/backend/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	env := flag.String("env", "", "environment name (defaults to $APP_ENV, then development)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-env name] up|down|status\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	zap.ReplaceGlobals(zl)
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *env, flag.Arg(0)); err != nil {
		zap.S().Fatalw("migrate failed", "err", err)
	}
}

func run(ctx context.Context, env, cmd string) error {
	cfg, err := config.Load(ctx, env)
	if err != nil {
		return err
	}
	db, target, err := database.Open(ctx, cfg.Database.URI)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := migrations.NewProvider(db.DB, target.Dialect)
	if err != nil {
		return err
	}
	lg := zap.S().With("env", cfg.Env, "dialect", target.Dialect)

	switch cmd {
	case "up":
		results, err := p.Up(ctx)
		for _, r := range results {
			lg.Infow("applied", "version", r.Source.Version, "took", r.Duration)
		}
		return err
	case "down":
		r, err := p.Down(ctx)
		if r != nil {
			lg.Infow("rolled back", "version", r.Source.Version, "took", r.Duration)
		}
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			fmt.Printf("%-6d %-10s %s\n", s.Source.Version, s.State, s.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}
