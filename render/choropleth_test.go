package render

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medellin-listings/models"
)

func median(v float64) models.RegionalStatistic {
	return models.RegionalStatistic{Count: 5, MedianPrice: &v}
}

func box(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}}
}

func testReport() *models.RegionReport {
	return &models.RegionReport{
		Title:        "El Poblado",
		Slug:         "ElPoblado",
		PropertyType: models.Offices,
		Year:         2024,
		Quarter:      4,
		Regions: []*models.BoundaryRegion{
			{Name: "Manila", Geometry: box(-75.58, 6.20, -75.57, 6.21), Stats: median(100e6)},
			{Name: "Astorga", Geometry: box(-75.57, 6.20, -75.56, 6.21), Stats: median(900e6)},
			{Name: "El Tesoro", Geometry: box(-75.575, 6.195, -75.565, 6.2), Stats: models.RegionalStatistic{Count: 2, Suppressed: true}},
		},
	}
}

func TestColorAt(t *testing.T) {
	st := DefaultStyle(960)

	assert.Equal(t, st.Palette[0], st.ColorAt(0))
	assert.Equal(t, st.Palette[0], st.ColorAt(-3))
	assert.Equal(t, st.Palette[2], st.ColorAt(0.5))
	assert.Equal(t, st.Palette[4], st.ColorAt(1))
	assert.Equal(t, color.RGBA{141, 139, 135, 255}, st.ColorAt(0.125))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "2024_Q4_median_price_Offices_ElPoblado_map.png", FileName(testReport()))
}

func TestChoroplethExport(t *testing.T) {
	dir := t.TempDir()
	path, err := NewChoropleth(dir, DefaultStyle(200)).Export(testReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024_Q4_median_price_Offices_ElPoblado_map.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 228, img.Bounds().Dx(), "map plus colour bar")
	assert.Equal(t, 200, img.Bounds().Dy())

	rgb := func(x, y int) (r, g, b uint32) {
		r, g, b, _ = img.At(x, y).RGBA()
		return r >> 8, g >> 8, b >> 8
	}
	// Interior pixels away from labels and the title.
	cheapR, _, cheapB := rgb(15, 110)
	dearR, _, dearB := rgb(185, 110)

	assert.Less(t, cheapR, uint32(255), "filled, not background")
	assert.Greater(t, cheapR, dearR, "low median is drawn grey, high median blue")
	assert.Greater(t, dearB, cheapB)
}

func TestChoroplethWithoutGeometry(t *testing.T) {
	_, err := NewChoropleth(t.TempDir(), DefaultStyle(200)).Draw(&models.RegionReport{
		Regions: []*models.BoundaryRegion{{Name: "Empty"}},
	})
	assert.True(t, errors.Is(err, ErrNothingToDraw))
}

func TestChoroplethWithoutAnyMedian(t *testing.T) {
	r := testReport()
	for _, region := range r.Regions {
		region.Stats = models.RegionalStatistic{}
	}
	dc, err := NewChoropleth(t.TempDir(), DefaultStyle(200)).Draw(r)
	require.NoError(t, err)
	assert.Equal(t, 228, dc.Width())
}
