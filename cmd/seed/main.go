package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/config"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/repository/postgres"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/migrations"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/database"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/logger"
)

// Default account that owns the seeded shops.
const (
	seedUsername  = "amasini"
	seedEmail     = "antomasini98@gmail.com"
	seedFirstName = "Antonella"
	seedLastName  = "Masini"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	csvPath := flag.String("csv", "csvs/coffeeshops.csv", "path to the coffee shop CSV file")
	password := flag.String("password", "12345", "password for the default seed user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("coffee-directory-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 5,
		MinConns: 1,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	shopRepo := postgres.NewShopRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Seeding is idempotent: a populated directory is left untouched.
	existing, err := shopRepo.List(ctx, domain.ShopFilter{})
	if err != nil {
		return fmt.Errorf("check existing shops: %w", err)
	}
	if len(existing) > 0 {
		log.Info("directory already populated, nothing to do", slog.Int("shops", len(existing)))
		return nil
	}

	owner, err := ensureSeedUser(ctx, userRepo, *password)
	if err != nil {
		return err
	}

	shops, err := readShopCSV(*csvPath, owner.ID)
	if err != nil {
		return err
	}

	for _, shop := range shops {
		if err := shopRepo.Create(ctx, &shop); err != nil {
			return fmt.Errorf("insert shop %q: %w", shop.Name, err)
		}
	}

	log.Info("seeding complete",
		slog.String("owner", owner.Username),
		slog.Int("shops", len(shops)),
	)
	return nil
}

// ensureSeedUser creates the default user, or fetches it when it already exists.
func ensureSeedUser(ctx context.Context, repo *postgres.UserRepository, password string) (*domain.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.New().String(),
		Username:       seedUsername,
		Email:          seedEmail,
		FirstName:      seedFirstName,
		LastName:       seedLastName,
		HashedPassword: string(hashed),
		DateCreated:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return repo.GetByUsername(ctx, seedUsername)
		}
		return nil, fmt.Errorf("create seed user: %w", err)
	}

	return user, nil
}

// readShopCSV parses the shop CSV. Expected header: name, address,
// wifi_quality, has_ac, laptop_friendly_seats, dog_friendly, noise_level,
// outlet_availability. Booleans are spreadsheet-style TRUE/FALSE.
func readShopCSV(path, ownerID string) ([]domain.Shop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv %s has no data rows", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, required := range []string{
		"name", "address", "wifi_quality", "has_ac", "laptop_friendly_seats",
		"dog_friendly", "noise_level", "outlet_availability",
	} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv %s is missing column %q", path, required)
		}
	}

	shops := make([]domain.Shop, 0, len(records)-1)
	for n, row := range records[1:] {
		shop := domain.Shop{
			ID:        uuid.New().String(),
			Name:      row[col["name"]],
			Address:   row[col["address"]],
			UserID:    &ownerID,
			CreatedAt: time.Now().UTC(),
		}
		shop.NormalizedName = domain.NormalizeName(shop.Name)

		var convErr error
		if shop.WifiQuality, convErr = parseOrdinal(row[col["wifi_quality"]]); convErr != nil {
			return nil, fmt.Errorf("row %d wifi_quality: %w", n+2, convErr)
		}
		if shop.LaptopFriendlySeats, convErr = parseOrdinal(row[col["laptop_friendly_seats"]]); convErr != nil {
			return nil, fmt.Errorf("row %d laptop_friendly_seats: %w", n+2, convErr)
		}
		if shop.NoiseLevel, convErr = parseOrdinal(row[col["noise_level"]]); convErr != nil {
			return nil, fmt.Errorf("row %d noise_level: %w", n+2, convErr)
		}
		if shop.OutletAvailability, convErr = parseOrdinal(row[col["outlet_availability"]]); convErr != nil {
			return nil, fmt.Errorf("row %d outlet_availability: %w", n+2, convErr)
		}
		if shop.HasAC, convErr = parseSheetBool(row[col["has_ac"]]); convErr != nil {
			return nil, fmt.Errorf("row %d has_ac: %w", n+2, convErr)
		}
		if shop.DogFriendly, convErr = parseSheetBool(row[col["dog_friendly"]]); convErr != nil {
			return nil, fmt.Errorf("row %d dog_friendly: %w", n+2, convErr)
		}

		shops = append(shops, shop)
	}

	return shops, nil
}

func parseOrdinal(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 3 {
		return 0, fmt.Errorf("%q is not an ordinal between 1 and 3", value)
	}
	return n, nil
}

func parseSheetBool(value string) (bool, error) {
	switch value {
	case "TRUE", "true", "True", "1":
		return true, nil
	case "FALSE", "false", "False", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", value)
}
