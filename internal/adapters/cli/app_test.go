package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retailbridge/rms-commerce-sync/internal/infrastructure/config"
)

func TestDetectorConfig_IncludesZeroStockRows(t *testing.T) {
	// Arrange
	cfg := &config.Config{}
	config.SetDefaults(cfg)

	// Act
	dc := detectorConfig(cfg, nil)

	// Assert: sold-out items must reach the pipeline so their products go
	// DRAFT and their inventory is zeroed out.
	assert.True(t, dc.Filter.IncludeZeroStock)
	assert.Equal(t, cfg.Sync.BatchSize, dc.Pipeline.BatchSize)
	assert.Equal(t, cfg.Sync.MaxConcurrentJobs, dc.Pipeline.MaxConcurrentBatches)
	assert.False(t, dc.LockEnabled, "no lock backend means no lock")
}
