package testutil

import (
	"io"
	"log"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupMockDB opens a gorm postgres handle backed by sqlmock. The returned
// cleanup closes the connection.
func SetupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock connection: %s", err)
	}

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(io.Discard, "", log.LstdFlags), logger.Config{
			LogLevel: logger.Silent,
		}),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %s", err)
	}

	return gormDB, mock, func() { _ = sqlDB.Close() }
}
