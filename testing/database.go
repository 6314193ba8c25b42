// Package testing provides test utilities and database setup for testing the application
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/minhlq/finbook/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a test database instance
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// SetupTestDB creates an isolated in-memory database and runs migrations
func SetupTestDB() (*TestDB, error) {
	// Unique name keeps parallel tests from sharing the same shared-cache db
	dbName := fmt.Sprintf("finbook_test_%d_%d", time.Now().UnixNano(), rand.Intn(10000))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Account{}, &models.AuditLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDB{DB: db, Name: dbName}, nil
}

// Cleanup closes the underlying connection, dropping the in-memory database
func (t *TestDB) Cleanup() error {
	sqlDB, err := t.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TestWithDB runs fn against a fresh database and cleans up afterwards
func TestWithDB(fn func(testDB *TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer testDB.Cleanup()
	return fn(testDB)
}

// Truncate removes all rows from the given tables
func (t *TestDB) Truncate(tables ...string) error {
	for _, table := range tables {
		if err := t.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
