package db

import (
	"fmt"

	"vaultbooks/pkg/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// datetimePrecision keeps DATETIME columns at milliseconds, the precision
// ledger timestamps are truncated to before hashing.
var datetimePrecision = 3

func Dialect(cfg *config.Config) (gorm.Dialector, error) {
	d := cfg.Database
	switch d.Type {
	case "mysql":
		return mysql.New(mysql.Config{
			DSN: fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				d.User,
				d.Password,
				d.Host,
				d.Port,
				d.DBNAME,
			),
			DefaultDatetimePrecision: &datetimePrecision,
		}), nil
	case "postgres":
		tz := d.Timezone
		if tz == "" {
			tz = "UTC"
		}
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			d.Host,
			d.User,
			d.Password,
			d.DBNAME,
			d.Port,
			sslMode,
			tz,
		)), nil
	case "sqlite", "":
		return sqlite.Open(fmt.Sprintf("%s.db", d.DBNAME)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", d.Type)
	}
}
