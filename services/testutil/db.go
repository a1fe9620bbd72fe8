package testutil

import (
	"strings"
	"testing"
	"time"

	dbutil "vaultbooks/pkg/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dsnName = strings.NewReplacer("/", "_", " ", "_", "#", "_", "?", "_")

// NewTestDB opens a shared-cache in-memory sqlite database private to t and
// migrates models into it. Query errors go to the global zap logger.
//
// The pool holds a single connection, so code under test must issue
// statements inside a transaction through the tx handle.
func NewTestDB(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := "file:" + dsnName.Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  dbutil.NewQueryLogger(true).LogMode(logger.Error),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...), "migrate test database")
	}
	return db
}
