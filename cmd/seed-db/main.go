// Command seed-db loads the catalog seed file (cities, vendors, products,
// shipping lanes) into PostgreSQL. Existing rows are left untouched, so
// re-running it is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marzouqa/souq-backend/internal/storage/postgres"
)

type seedFile struct {
	Cities []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		GovernmentID string `json:"governmentId"`
	} `json:"cities"`
	Vendors []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		CityID string `json:"cityId"`
		UserID string `json:"userId"`
	} `json:"vendors"`
	Products []struct {
		ID          string          `json:"id"`
		VendorID    string          `json:"vendorId"`
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		DiscountPct decimal.Decimal `json:"discountPct"`
		Sizes       []string        `json:"sizes"`
		Colors      []string        `json:"colors"`
	} `json:"products"`
	Lanes []struct {
		FromCityID string          `json:"fromCityId"`
		ToCityID   string          `json:"toCityId"`
		Price      decimal.Decimal `json:"price"`
	} `json:"lanes"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to catalog seed JSON file")
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

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

const (
	insertCitySQL = `INSERT INTO cities (id, name, government_id)
		VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`

	insertVendorSQL = `INSERT INTO vendors (id, name, city_id, user_id)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`

	insertProductSQL = `INSERT INTO products (id, vendor_id, name, price, discount_pct, sizes, colors)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`

	insertLaneSQL = `INSERT INTO shipping_lanes (id, from_city_id, to_city_id, price)
		VALUES ($1, $2, $3, $4) ON CONFLICT (from_city_id, to_city_id) DO NOTHING`
)

func run(ctx context.Context, databaseURL, seedPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, c := range seed.Cities {
		if _, err := pool.Exec(ctx, insertCitySQL, c.ID, c.Name, c.GovernmentID); err != nil {
			return errors.Wrapf(err, "seed city %s", c.ID)
		}
	}
	slog.Info("cities seeded", slog.Int("count", len(seed.Cities)))

	for _, v := range seed.Vendors {
		if _, err := pool.Exec(ctx, insertVendorSQL, v.ID, v.Name, v.CityID, v.UserID); err != nil {
			return errors.Wrapf(err, "seed vendor %s", v.ID)
		}
	}
	slog.Info("vendors seeded", slog.Int("count", len(seed.Vendors)))

	for _, p := range seed.Products {
		sizes, colors := p.Sizes, p.Colors
		if sizes == nil {
			sizes = []string{}
		}
		if colors == nil {
			colors = []string{}
		}
		_, err := pool.Exec(ctx, insertProductSQL,
			p.ID, p.VendorID, p.Name, p.Price, p.DiscountPct, sizes, colors)
		if err != nil {
			return errors.Wrapf(err, "seed product %s", p.ID)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(seed.Products)))

	for _, l := range seed.Lanes {
		_, err := pool.Exec(ctx, insertLaneSQL, uuid.New().String(), l.FromCityID, l.ToCityID, l.Price)
		if err != nil {
			return errors.Wrapf(err, "seed lane %s->%s", l.FromCityID, l.ToCityID)
		}
	}
	slog.Info("lanes seeded", slog.Int("count", len(seed.Lanes)))

	return nil
}
