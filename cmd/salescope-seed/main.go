package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/salescope/salescope/internal/config"
	"github.com/salescope/salescope/internal/seed"
	s3store "github.com/salescope/salescope/internal/storage/s3"
)

func main() {
	salesRows := flag.Int("sales-rows", 5000, "number of sales rows to generate")
	days := flag.Int("days", 365, "number of distinct sales days to spread rows over")
	randomSeed := flag.Int64("seed", 42, "random seed for deterministic datasets")
	target := flag.String("target", "postgres", "seed target: postgres|objectstore|both")
	partRows := flag.Int("part-rows", 0, "rows per parquet part when publishing; 0 uses the default")
	flag.Parse()

	cfg, err := config.LoadFromEnv("salescope-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	dataset := seed.Generate(seed.Config{
		Seed:      *randomSeed,
		SalesRows: *salesRows,
		Days:      *days,
	})
	fmt.Printf("generated %d sales rows, %d products, %d vehicles\n",
		len(dataset.Sales), len(dataset.Products), len(dataset.Vehicles))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch *target {
	case "postgres":
		loadPostgres(ctx, cfg, dataset)
	case "objectstore":
		publish(ctx, cfg, dataset, *partRows)
	case "both":
		loadPostgres(ctx, cfg, dataset)
		publish(ctx, cfg, dataset, *partRows)
	default:
		fmt.Fprintf(os.Stderr, "invalid target: %s\n", *target)
		os.Exit(1)
	}
}

func loadPostgres(ctx context.Context, cfg config.Config, dataset seed.Dataset) {
	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "SALESCOPE_DB_DSN is required for the postgres target")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := seed.LoadPostgres(ctx, db, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "postgres seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("postgres warehouse seeded")
}

func publish(ctx context.Context, cfg config.Config, dataset seed.Dataset, partRows int) {
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "object store error: %v\n", err)
		os.Exit(1)
	}

	summary, err := seed.Publish(ctx, store, dataset, partRows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dataset publish failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("published %d dataset part(s), %d byte(s)\n", summary.Objects, summary.Bytes)
}
