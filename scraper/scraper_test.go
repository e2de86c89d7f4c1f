package scraper

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medellin-listings/models"
)

func TestOutputPath(t *testing.T) {
	day := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
	got := OutputPath("data", models.Offices, "medellin", day)
	assert.Equal(t, filepath.Join("data", "Offices", "listings_data_m2_medellin_2025-03-07.csv"), got)
}
