// Command order-export streams orders placed since a date, with their items
// and customer, into a gzip-compressed JSON Lines file and optionally uploads
// it to S3.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/repository"
)

type options struct {
	databaseURL string
	since       time.Time
	out         string

	bucket    string
	prefix    string
	region    string
	endpoint  string
	accessKey string
	secretKey string
}

func main() {
	var (
		opts  options
		since string
	)
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&since, "since", "", "export orders placed on or after this date, YYYY-MM-DD (default: 30 days ago)")
	flag.StringVar(&opts.out, "out", "", "output file (default: orders-<since>.jsonl.gz)")
	flag.StringVar(&opts.bucket, "s3-bucket", "", "upload the export to this S3 bucket")
	flag.StringVar(&opts.prefix, "s3-prefix", "exports/orders/", "S3 key prefix")
	flag.StringVar(&opts.region, "s3-region", "ap-south-1", "S3 region")
	flag.StringVar(&opts.endpoint, "s3-endpoint", "", "S3-compatible endpoint, e.g. http://localhost:9000")
	flag.StringVar(&opts.accessKey, "s3-access-key", "", "static access key (default: AWS credential chain)")
	flag.StringVar(&opts.secretKey, "s3-secret-key", "", "static secret key")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	opts.since, err = parseSince(since, time.Now())
	if err != nil {
		lg.Fatal("Invalid --since", zap.Error(err))
	}
	if opts.out == "" {
		opts.out = "orders-" + opts.since.Format(time.DateOnly) + ".jsonl.gz"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Export failed", zap.Error(err))
	}
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		y, m, d := now.UTC().AddDate(0, 0, -30).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse date")
	}
	return t, nil
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	f, err := os.Create(opts.out)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	n, err := export(ctx, repository.NewStore(pool).Orders(), opts.since, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "close output file")
	}
	if err != nil {
		_ = os.Remove(opts.out)
		return err
	}
	lg.Info("Export written",
		zap.String("path", opts.out),
		zap.Time("since", opts.since),
		zap.Int("orders", n),
	)

	if opts.bucket == "" {
		return nil
	}
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return err
	}
	key, err := upload(ctx, client, opts.bucket, opts.prefix, opts.out)
	if err != nil {
		return err
	}
	lg.Info("Export uploaded", zap.String("bucket", opts.bucket), zap.String("key", key))
	return nil
}
