// Package testing provides test utilities and database setup for testing the payment platform
package testing

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/AronSwan/onlinestore-sub023/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dbCounter keeps every test database name unique within the process
var dbCounter int64

// TestDB represents a test database instance
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// SetupTestDB opens an isolated in-memory database and migrates the payment schema
func SetupTestDB() (*TestDB, error) {
	name := fmt.Sprintf("paycore_test_%d", atomic.AddInt64(&dbCounter, 1))

	// cache=shared keeps the schema visible across the connections gorm
	// opens against the same DSN.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// A single connection pins the in-memory database for the lifetime of
	// the test and serializes writers the way the sqlite driver expects.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.PaymentOrder{},
		&models.RefundRecord{},
		&models.ConfirmationRecord{},
		&models.CallbackEvent{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate test database %s: %w", name, err)
	}

	return &TestDB{DB: db, Name: name}, nil
}

// TeardownTestDB closes the connection, which discards the in-memory database
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	// Order matters due to foreign key constraints
	tables := []string{
		"audit_log",
		"callback_events",
		"confirmation_records",
		"refund_records",
		"payment_orders",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	return nil
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
