package services

import (
	"testing"

	"medellin-listings/models"
	"medellin-listings/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"$ 450.000.000", 450000000},
		{"$1.250.000,50", 1250000.5},
		{"450000000", 450000000},
		{"COP 1,200,000", 1200000},
		{"$1.200", 1200},
		{"$350.000.000 - $400.000.000", 0},
		{"", 0},
		{"Consultar", 0},
	}

	for _, tt := range tests {
		got := ParsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"120 m²", 120},
		{"85,5 m2", 85.5},
		{"85.50", 85.5},
		{"85.125", 85.125},
		{"Área: 1.020 m²", 1020},
		{"1.020 m²", 1020},
		{"NaN", 0},
		{"", 0},
	}

	for _, tt := range tests {
		got := ParseArea(tt.raw)
		if got != tt.want {
			t.Errorf("ParseArea(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerDropsEmptyID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{PropertyID: "", SalePrice: "$100.000.000", Link: "/inmueble/x"},
		{PropertyID: "12", SalePrice: "$200.000.000", Link: "/inmueble/12"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing after dropping empty id, got %d", len(cleaned))
	}
	if cleaned[0].SalePrice != "200000000" {
		t.Errorf("SalePrice = %q; want plain decimal", cleaned[0].SalePrice)
	}
}

func TestCleanerKeepsPortalDecimals(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{PropertyID: "12345-M1", SalePrice: "450000000", Area: "85.125", AreaC: "72.58"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(cleaned))
	}
	if cleaned[0].Area != "85.125" {
		t.Errorf("Area = %q; want %q", cleaned[0].Area, "85.125")
	}
	if cleaned[0].AreaC != "72.58" {
		t.Errorf("AreaC = %q; want %q", cleaned[0].AreaC, "72.58")
	}
	if cleaned[0].SalePrice != "450000000" {
		t.Errorf("SalePrice = %q; want %q", cleaned[0].SalePrice, "450000000")
	}
}

func TestCleanerDeduplicatesID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{PropertyID: "12", SalePrice: "1", Neighborhood: "  El   Poblado "},
		{PropertyID: " 12", SalePrice: "2"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 listing after deduplication, got %d", len(cleaned))
	}
	if cleaned[0].Neighborhood != "El Poblado" {
		t.Errorf("Neighborhood = %q; want collapsed whitespace", cleaned[0].Neighborhood)
	}
	if raw[0].Neighborhood != "  El   Poblado " {
		t.Error("Clean must not modify its input")
	}
}

func TestCleanerDropsPriceRanges(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{{PropertyID: "9", SalePrice: "$300.000.000 - $320.000.000"}}

	if cleaned := c.Clean(raw); len(cleaned) != 0 {
		t.Errorf("expected range price to be dropped, got %d listings", len(cleaned))
	}
}
