package database

import (
	"fmt"

	"github.com/anjiri1684/travel_booking/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func ConnectDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("✅ Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB, log *logrus.Logger) error {
	err := db.AutoMigrate(
		&models.Listing{},
		&models.Booking{},
		&models.Payment{},
		&models.NotificationJob{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info("✅ Database migration successful")
	return nil
}

// Open returns the Store selected by driver. The memory driver is meant for
// local development only; nothing it holds survives a restart.
func Open(driver, dsn string, log *logrus.Logger) (Store, error) {
	switch driver {
	case DriverMemory:
		log.Warn("Using in-memory store, data will not be persisted")
		return NewMemoryStore(), nil
	case DriverPostgres, "":
		db, err := ConnectDB(dsn, log)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db, log); err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}
