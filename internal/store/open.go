package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-editions/internal/store/schema"
)

// Driver selects the database backend
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Models lists every table owned by the store, in creation order
var Models = []interface{}{
	&schema.Artist{},
	&schema.Edition{},
	&schema.Ticket{},
	&schema.Token{},
	&schema.RoleMember{},
	&schema.Payment{},
	&schema.SaleEvent{},
	&schema.KeyValueStore{},
}

// Open connects to the database with the given driver
func Open(driver Driver, dsn string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Discard,
	}
	if debug {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite has a single writer and an in-memory database lives on one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate creates or updates the tables of every model
func AutoMigrate(db *gorm.DB) error {
	for _, model := range Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}
