package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/franciscosanchezn/tg-game-api/internal/logging"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

var log = logging.New()

// retryDelays doubles from one second; its length is the number of attempts.
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// Open connects to the player database, retrying while the server comes up, and
// migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	driver := cfg.Dialect()

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"db_host":   cfg.Host,
		"db_name":   cfg.Name,
		"db_path":   cfg.Path,
	}).Info("Opening player database")

	var lastErr error
	for attempt := 1; attempt <= len(retryDelays); attempt++ {
		db, err := dial(driver, cfg)
		if err == nil {
			if err := Migrate(db); err != nil {
				return nil, err
			}
			log.WithField("attempt", attempt).Info("Player database ready")
			return db, nil
		}
		if errors.Is(err, errUnsupportedDriver) {
			return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
		}

		lastErr = err
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Database connection attempt failed")

		if attempt < len(retryDelays) {
			time.Sleep(retryDelays[attempt-1])
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", len(retryDelays), lastErr)
}

var errUnsupportedDriver = errors.New("unsupported driver")

func dial(driver string, cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, errUnsupportedDriver
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	configureConnectionPool(sqlDB, driver)
	return db, nil
}

// Migrate creates or updates the players table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Player{}); err != nil {
		return fmt.Errorf("migrate players: %w", err)
	}
	return nil
}

func configureConnectionPool(sqlDB *sql.DB, driver string) {
	maxOpen := 25
	if driver == DriverSQLite {
		// SQLite serializes writers anyway.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    5,
		"conn_max_lifetime": "5m",
	}).Debug("Connection pool configured")
}
