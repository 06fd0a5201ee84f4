package main

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/storage"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openApp connects to the database. No Redis is needed: the server's Redis feed
// misses admin writes until its next reload, while the postgres trigger sees them.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := storage.Migrate(db, cfg.ChangeFeed); err != nil {
		return nil, err
	}

	loc, err := localization.Default()
	if err != nil {
		return nil, err
	}

	return &app{
		store:  storage.NewStorageService(db, nil, cfg.ChangeFeed),
		secret: []byte(cfg.JWTSecret),
		loc:    loc,
		lang:   cfg.Language,
		now:    time.Now,
	}, nil
}

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}
