package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	"github.com/corvusHold/courier/internal/config"
	tdomain "github.com/corvusHold/courier/internal/tenants/domain"
	trepo "github.com/corvusHold/courier/internal/tenants/repository"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
	exitTenant  = 5
)

var (
	migrateRunner = realMigrateRunner
	tenantCreator = realTenantCreator
	osExit        = os.Exit
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
		return true
	case "tenant":
		osExit(runTenant(args[1:]))
		return true
	case "help", "-h", "--help":
		printHelp()
		osExit(exitOK)
		return true
	default:
		return false
	}
}

func runMigrate(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing migrate subcommand (up|down|status)")
		return exitUsage
	}
	subcmd := args[0]
	switch subcmd {
	case "up", "down", "status":
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", subcmd)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if migrateRunner == nil {
		migrateRunner = realMigrateRunner
	}

	if err := migrateRunner(subcmd, cfg.DatabaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", subcmd, err)
		return exitMigrate
	}

	return exitOK
}

func realMigrateRunner(subcmd, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	const migrationsDir = "./migrations"

	switch subcmd {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	default:
		return fmt.Errorf("unsupported migrate subcommand %q", subcmd)
	}
}

// runTenant handles "tenant create <id> [name]". The creation time it records starts the
// tenant's warm-up.
func runTenant(args []string) int {
	if len(args) < 2 || args[0] != "create" {
		fmt.Fprintln(os.Stderr, "usage: courier tenant create <id> [name]")
		return exitUsage
	}
	id := strings.TrimSpace(args[1])
	if id == "" {
		fmt.Fprintln(os.Stderr, "tenant id must not be empty")
		return exitUsage
	}
	name := id
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if tenantCreator == nil {
		tenantCreator = realTenantCreator
	}

	t, err := tenantCreator(cfg.DatabaseURL, id, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create tenant %s failed: %v\n", id, err)
		return exitTenant
	}
	fmt.Printf("tenant %s created at %s\n", t.ID, t.CreatedAt.UTC().Format(time.RFC3339))
	return exitOK
}

func realTenantCreator(databaseURL, id, name string) (tdomain.Tenant, error) {
	if databaseURL == "" {
		return tdomain.Tenant{}, fmt.Errorf("DATABASE_URL is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return tdomain.Tenant{}, err
	}
	defer pool.Close()

	return trepo.New(pool).Create(ctx, id, name)
}

func printHelp() {
	fmt.Println("Courier")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  courier                          Start the email API and dispatcher")
	fmt.Println("  courier migrate up               Apply all pending migrations")
	fmt.Println("  courier migrate down             Roll back one migration")
	fmt.Println("  courier migrate status           Show migration status")
	fmt.Println("  courier tenant create <id> [name] Register a tenant and start its warm-up")
}
