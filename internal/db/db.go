package db

import (
	"context"
	"database/sql"
	"errors"

	"contract-review/internal/config"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrNoCredits     = errors.New("no credits remaining")
)

// Profile is an account row holding the API key issued to a user.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`
	ID            string `bun:"id,pk"`
	APIKey        string `bun:"api_key,notnull"`
}

// Credit tracks the remaining analysis credits of a user.
type Credit struct {
	bun.BaseModel `bun:"table:credits,alias:c"`
	UserID        string `bun:"user_id,pk"`
	Credit        int    `bun:"credit,notnull"`
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*Profile)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*Credit)(nil)).IfNotExists().Exec(ctx)
	return err
}

// VerifyAPIKey resolves an API key to a profile and checks that the account
// still has credits. ErrInvalidAPIKey and ErrNoCredits are the expected auth
// failures; anything else is a database error.
func VerifyAPIKey(ctx context.Context, db *bun.DB, apiKey string) (*Profile, int, error) {
	var profile Profile
	err := db.NewSelect().
		Model(&profile).
		Where("api_key = ?", apiKey).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, 0, err
	}

	var credit Credit
	err = db.NewSelect().
		Model(&credit).
		Where("user_id = ?", profile.ID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNoCredits
	}
	if err != nil {
		return nil, 0, err
	}
	if credit.Credit <= 0 {
		return nil, 0, ErrNoCredits
	}

	return &profile, credit.Credit, nil
}

// DeductCredit takes one credit from the user after a completed analysis.
func DeductCredit(ctx context.Context, db *bun.DB, userID string) error {
	_, err := db.NewUpdate().
		Model((*Credit)(nil)).
		Set("credit = credit - 1").
		Where("user_id = ? AND credit > 0", userID).
		Exec(ctx)
	return err
}
