package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/persistence"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/config"
	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/database"
)

func TestNewTestConnection_SchemaSurvivesAcrossStatements(t *testing.T) {
	// Arrange
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	defer func() { _ = database.Close(db) }()

	// Act: each gorm call may run on a different pooled connection; the
	// in-memory schema must be visible to all of them.
	require.NoError(t, db.Create(&persistence.CustomerModel{Email: "ana@example.com", Name: "Ana"}).Error)

	var count int64
	err = db.Model(&persistence.CustomerModel{}).Count(&count).Error

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNewConnection_RejectsUnknownDriver(t *testing.T) {
	_, err := database.NewConnection(&config.DatabaseConfig{Driver: "oracle"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
