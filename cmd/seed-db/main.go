// Command seed-db loads demo customers and orders into the storefront
// database through the same transactional store the API uses.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/checkout"
	"github.com/manubal/storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		ordersFile  string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&ordersFile, "orders-file", "db/seed/orders.json", "path to orders JSON file")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, ordersFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, ordersFile string) error {
	f, err := os.Open(ordersFile)
	if err != nil {
		return errors.Wrap(err, "open orders file")
	}
	defer func() { _ = f.Close() }()

	orders, err := load(f)
	if err != nil {
		return errors.Wrapf(err, "parse %s", ordersFile)
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seed(ctx, lg, repository.NewStore(pool), checkout.DefaultPricing(), orders)
}
