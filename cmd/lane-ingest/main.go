// Command lane-ingest bulk-loads shipping lane price sheets into
// PostgreSQL. Each input is a gzip-compressed CSV of
// from_city,to_city,price rows; files are parsed concurrently and the
// merged result is upserted, so re-running with a newer sheet overwrites
// earlier prices.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/marzouqa/souq-backend/internal/storage/postgres"
)

const progressEvery = 100_000

const upsertLaneSQL = `INSERT INTO shipping_lanes (id, from_city_id, to_city_id, price)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (from_city_id, to_city_id) DO UPDATE SET price = EXCLUDED.price`

// lane is one directed price entry parsed from a sheet.
type lane struct {
	from, to string
	price    decimal.Decimal
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing lanes*.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("lane ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("lane ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "lanes*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list lane sheets")
	}
	if len(files) == 0 {
		return errors.Errorf("no lanes*.csv.gz files in %s", dataDir)
	}

	slog.Info("parsing lane sheets", slog.Int("files", len(files)))

	results := make([][]lane, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseSheet(gctx, i, f, results))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse lane sheets")
	}

	// Later files win on duplicate pairs, matching their lexical order.
	merged := make(map[[2]string]decimal.Decimal)
	for _, lanes := range results {
		for _, l := range lanes {
			merged[[2]string{l.from, l.to}] = l.price
		}
	}

	slog.Info("lanes parsed", slog.Int("unique_pairs", len(merged)))

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	written := 0
	for pair, price := range merged {
		_, err := pool.Exec(ctx, upsertLaneSQL, uuid.New().String(), pair[0], pair[1], price)
		if err != nil {
			return errors.Wrapf(err, "upsert lane %s->%s", pair[0], pair[1])
		}
		written++
		if written%1000 == 0 || written == len(merged) {
			slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(merged)))
		}
	}

	return nil
}

// parseSheet reads one gzipped CSV sheet into results[idx].
func parseSheet(ctx context.Context, idx int, path string, results [][]lane) func() error {
	return func() error {
		var (
			lanes []lane
			count uint64
		)
		if err := streamGzFile(ctx, path, func(line string) error {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				return nil
			}

			parts := strings.Split(line, ",")
			if len(parts) != 3 {
				return errors.Errorf("malformed row %q", line)
			}
			from := strings.TrimSpace(parts[0])
			to := strings.TrimSpace(parts[1])
			price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
			if err != nil {
				return errors.Wrapf(err, "parse price in row %q", line)
			}
			if from == "" || to == "" || from == to || price.IsNegative() {
				return errors.Errorf("invalid lane row %q", line)
			}

			lanes = append(lanes, lane{from: from, to: to, price: price.Round(2)})
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.Int("file", idx+1), slog.Uint64("rows", count))
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse sheet %s", path)
		}

		slog.Info("sheet parsed", slog.Int("file", idx+1), slog.Uint64("rows", count))
		results[idx] = lanes
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
