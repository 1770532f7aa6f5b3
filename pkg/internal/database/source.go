package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var C *gorm.DB

func NewGorm() error {
	var err error
	C, err = Open(
		viper.GetString("database.driver"),
		viper.GetString("database.dsn"),
		viper.GetString("database.prefix"),
		viper.GetBool("debug.database"),
	)
	return err
}

// Open connects to the poll store. The sqlite driver is limited to a single
// connection so writers are serialized inside the process.
func Open(driver, dsn, prefix string, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: prefix,
		},
		Logger: logger.New(&log.Logger, logger.Config{
			Colorful:                  true,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  lo.Ternary(verbose, logger.Info, logger.Silent),
		}),
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		raw, err := db.DB()
		if err != nil {
			return nil, err
		}
		raw.SetMaxOpenConns(1)
	}

	return db, nil
}

func Ping() error {
	if C == nil {
		return fmt.Errorf("database is not connected")
	}
	raw, err := C.DB()
	if err != nil {
		return err
	}
	return raw.Ping()
}
