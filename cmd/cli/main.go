package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/redis"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const usage = "expected 'export', 'import', 'keys' or 'plan' subcommands"

type keyLister interface {
	ListSnapshotKeys(ctx context.Context) ([]string, error)
}

type cli struct {
	snapshots  ports.SnapshotRepository
	users      ports.UserRepository
	defaultKey string
	logger     *observability.Logger
	out        io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	defer db.Close()

	var snapshots ports.SnapshotRepository = db
	if cfg.RedisURL != "" {
		rdb, err := redis.NewRepository(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		snapshots = rdb
	}

	c := &cli{snapshots: snapshots, users: db, defaultKey: cfg.SnapshotKey, logger: logger, out: os.Stdout}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportKey := exportCmd.String("key", c.defaultKey, "snapshot key to export")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "JSON file to import (versioned or legacy)")
	importKey := importCmd.String("key", c.defaultKey, "snapshot key to write")

	planCmd := flag.NewFlagSet("plan", flag.ContinueOnError)
	planEmail := planCmd.String("email", "", "account email")
	planTier := planCmd.String("tier", "", "free, pro or business")
	planStatus := planCmd.String("status", string(domain.StatusActive), "active, inactive or cancelled")

	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "export":
		if err := exportCmd.Parse(args[1:]); err != nil {
			return err
		}
		return c.doExport(ctx, *exportKey)
	case "import":
		if err := importCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.PrintDefaults()
			return errors.New("import: -file is required")
		}
		return c.doImport(ctx, *importFile, *importKey)
	case "keys":
		return c.doKeys(ctx)
	case "plan":
		if err := planCmd.Parse(args[1:]); err != nil {
			return err
		}
		if *planEmail == "" || *planTier == "" {
			planCmd.PrintDefaults()
			return errors.New("plan: -email and -tier are required")
		}
		return c.doPlan(ctx, *planEmail, domain.Tier(*planTier), domain.SubscriptionStatus(*planStatus))
	}
	return errors.New(usage)
}

func (c *cli) doExport(ctx context.Context, key string) error {
	snap, err := c.snapshots.LoadSnapshot(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("export: no snapshot saved under %q", key)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

func (c *cli) doImport(ctx context.Context, filename, key string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	snap, err := domain.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if err := c.snapshots.SaveSnapshot(ctx, key, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "snapshot_key", Value: key},
		observability.Field{Key: "profiles", Value: len(snap.Profiles)},
	), "Snapshot imported")
	fmt.Fprintf(c.out, "Imported %d profiles into %s\n", len(snap.Profiles), key)
	return nil
}

func (c *cli) doKeys(ctx context.Context) error {
	lister, ok := c.snapshots.(keyLister)
	if !ok {
		return errors.New("keys: listing is only supported by the SQL snapshot store")
	}
	keys, err := lister.ListSnapshotKeys(ctx)
	if err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	for _, k := range keys {
		fmt.Fprintln(c.out, k)
	}
	return nil
}

func (c *cli) doPlan(ctx context.Context, email string, tier domain.Tier, status domain.SubscriptionStatus) error {
	auth := services.NewAuthService(c.users, services.AuthConfig{}, c.logger)
	user, err := auth.SetSubscription(ctx, email, tier, status)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	fmt.Fprintf(c.out, "%s is now on %s (%s)\n", user.Email, user.SubscriptionTier, user.SubscriptionStatus)
	return nil
}
