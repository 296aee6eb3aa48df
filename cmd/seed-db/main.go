package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/hungrypanda/db"
	"github.com/xenking/hungrypanda/internal/domain/auth"
	"github.com/xenking/hungrypanda/internal/storage/postgres"
)

type seedUser struct {
	user postgres.User
	key  string
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		adminKey     string
		customerKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file, optionally .gz (default: embedded catalog)")
	flag.StringVar(&adminKey, "admin-key", "", "API key of the seeded admin (or PANDA_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "API key of the seeded demo customer (or PANDA_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PANDA_API_KEY_PEPPER env)")
	flag.Parse()

	databaseURL = orEnv(databaseURL, "DATABASE_URL")
	adminKey = orEnv(adminKey, "PANDA_SEED_ADMIN_KEY")
	customerKey = orEnv(customerKey, "PANDA_SEED_CUSTOMER_KEY")
	apiKeyPepper = orEnv(apiKeyPepper, "PANDA_API_KEY_PEPPER")

	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		slog.Error("API key pepper is required: set --api-key-pepper or PANDA_API_KEY_PEPPER")
		os.Exit(1)
	}

	var users []seedUser
	if adminKey != "" {
		users = append(users, seedUser{
			user: postgres.User{ID: "admin", Name: "Admin", Email: "admin@hungrypanda.local", IsAdmin: true},
			key:  adminKey,
		})
	}
	if customerKey != "" {
		users = append(users, seedUser{
			user: postgres.User{ID: "demo", Name: "Demo Customer", Email: "demo@hungrypanda.local"},
			key:  customerKey,
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKeyPepper, users); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func orEnv(v, env string) string {
	if v != "" {
		return v
	}
	return os.Getenv(env)
}

func run(ctx context.Context, databaseURL, catalogFile, pepper string, users []seedUser) error {
	data := db.SeedCatalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		var err error
		if data, err = readCatalogFile(catalogFile); err != nil {
			return err
		}
	}
	restaurants, err := parseCatalog(data, time.Now().UTC())
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items := 0
	for _, r := range restaurants {
		items += len(r.Menu)
	}
	slog.Info("upserting catalog", slog.Int("restaurants", len(restaurants)), slog.Int("menu_items", items))

	if err := postgres.NewCatalogRepository(pool).Import(ctx, restaurants); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	userRepo := postgres.NewUserRepository(pool)
	for _, u := range users {
		u.user.APIKeyHash = auth.HashKey([]byte(pepper), u.key)
		if err := userRepo.Upsert(ctx, u.user); err != nil {
			return errors.Wrapf(err, "seed user %s", u.user.ID)
		}
		slog.Info("upserted user", slog.String("id", u.user.ID), slog.Bool("admin", u.user.IsAdmin))
	}

	return nil
}
