package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medellin-listings/models"
	"medellin-listings/utils"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const header = "propertyId,salePrice,area,Extraction Date,coordinates\n"

func TestLoadListingsUnionsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "listings_data_m2_medellin_2025-01-10.csv",
		header+`A1,450000000,90,2025-01-10,"{'lon': -75.57, 'lat': 6.2}"`+"\n")
	b := writeFile(t, dir, "listings_data_m2_medellin_2025-02-10.csv",
		header+`A1,460000000.0,90.5,2025-02-10,"{'lon': -75.57, 'lat': 6.2}"`+"\n"+
			`B2,,0,not-a-date,`+"\n")

	reader := NewCSVListingReader(utils.NewDiscardLogger())
	listings, err := reader.LoadListings([]string{a, b})
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, "A1", listings[0].PropertyID)
	assert.Equal(t, 450000000.0, listings[0].SalePrice)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), listings[0].ExtractionDate)
	assert.Equal(t, "{'lon': -75.57, 'lat': 6.2}", listings[0].Coordinates)
	assert.Equal(t, a, listings[0].Source)
	assert.Equal(t, 1, listings[0].Row)

	assert.Equal(t, 460000000.0, listings[1].SalePrice)
	assert.Equal(t, 90.5, listings[1].Area)

	// A malformed row is tolerated; its bad values stay zero.
	bad := listings[2]
	assert.Equal(t, "B2", bad.PropertyID)
	assert.False(t, bad.HasSalePrice())
	assert.True(t, bad.ExtractionDate.IsZero())
	_, ok := bad.PricePerArea()
	assert.False(t, ok)
}

func TestLoadListingsAcceptsFullScraperHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "full.csv",
		"\ufeff"+strings.Join(ListingHeader, ",")+"\n"+
			`77,apartamento,300000000,60,55,2,2,1,Medellín,Sur,El Poblado,,500000,ACME,Usado,"{'lon': -75.56, 'lat': 6.21}",/inmueble/77,Entre 5 y 10 años,6,2025-03-01`+"\n")

	listings, err := NewCSVListingReader(utils.NewDiscardLogger()).LoadListings([]string{path})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "77", listings[0].PropertyID)
	assert.Equal(t, 300000000.0, listings[0].SalePrice)
	assert.Equal(t, 60.0, listings[0].Area)
}

func TestLoadListingsMissingColumnIsSchemaError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noarea.csv", "propertyId,salePrice,Extraction Date,coordinates\nA,1,2025-01-01,\n")

	_, err := NewCSVListingReader(utils.NewDiscardLogger()).LoadListings([]string{path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), `"area"`)
}

func TestLoadListingsUnreadableFileAbortsRun(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.csv", header+"A,1,1,2025-01-01,\n")

	listings, err := NewCSVListingReader(utils.NewDiscardLogger()).
		LoadListings([]string{ok, filepath.Join(dir, "missing.csv")})

	require.Error(t, err)
	assert.Nil(t, listings, "no partial load is returned")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiscoverListingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "listings_data_m2_medellin_2025-02-01.csv", header)
	writeFile(t, dir, "listings_data_m2_medellin_2025-01-01.csv", header)
	writeFile(t, dir, "listings_data_m2_envigado_2025-01-01.csv", header)

	files, err := DiscoverListingFiles(dir, "listings_data_m2_medellin*.csv")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "listings_data_m2_medellin_2025-01-01.csv", filepath.Base(files[0]))

	_, err = DiscoverListingFiles(dir, "listings_data_m2_bello*.csv")
	assert.True(t, errors.Is(err, ErrNoFiles))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-31", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"2025-03-31 08:15:00", time.Date(2025, 3, 31, 8, 15, 0, 0, time.UTC)},
		{"2025-03-31T08:15:00Z", time.Date(2025, 3, 31, 8, 15, 0, 0, time.UTC)},
		{"31/03/2025", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %v; want %v", tt.in, got, tt.want)
	}
}

func TestCSVWriterRoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Apartments", "listings_data_m2_medellin_2025-01-15.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteRaw([]*models.RawListing{{
		PropertyID:     "3214-M1",
		SalePrice:      "520000000",
		Area:           "85",
		Coordinates:    `{"lon":-75.567,"lat":6.205}`,
		Link:           "https://www.metrocuadrado.com/inmueble/3214-M1",
		ExtractionDate: "2025-01-15",
	}}))
	assert.Equal(t, 1, w.Rows())
	require.NoError(t, w.Close())

	listings, err := NewCSVListingReader(utils.NewDiscardLogger()).LoadListings([]string{path})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "3214-M1", listings[0].PropertyID)
	assert.Equal(t, `{"lon":-75.567,"lat":6.205}`, listings[0].Coordinates)
}
