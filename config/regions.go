package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Dataset points at a named-polygon boundary file.
type Dataset struct {
	Path      string `yaml:"path" validate:"required"`
	NameField string `yaml:"name_field"`
	// CRS of the file's coordinates, e.g. "EPSG:4326". Empty means detect
	// it from the shapefile .prj, or EPSG:4326 for GeoJSON.
	CRS string `yaml:"crs"`
	// Encoding of the shapefile attribute table: "utf-8" or "latin1".
	Encoding string `yaml:"encoding" validate:"omitempty,oneof=utf-8 latin1"`
}

// ParentRegion names the polygon whose interior defines the region of interest.
type ParentRegion struct {
	Dataset `yaml:",inline"`
	Name    string `yaml:"name" validate:"required"`
}

// RegionOfInterest selects the boundary regions a report covers: every
// boundary polygon within the parent, plus the AllowList names that are
// administratively grouped with the parent but lie outside its geometry.
type RegionOfInterest struct {
	Title      string       `yaml:"title"`
	Slug       string       `yaml:"slug" validate:"required"`
	Boundaries Dataset      `yaml:"boundaries"`
	Parent     ParentRegion `yaml:"parent"`
	AllowList  []string     `yaml:"allow_list" validate:"dive,required"`
}

// LoadRegionOfInterest reads a region-of-interest YAML file. Relative
// dataset paths are resolved against the file's directory.
func LoadRegionOfInterest(path string) (*RegionOfInterest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read regions file %q: %w", path, err)
	}

	var roi RegionOfInterest
	if err := yaml.UnmarshalStrict(data, &roi); err != nil {
		return nil, fmt.Errorf("%w: parse regions file %q: %v", ErrInvalid, path, err)
	}

	roi.applyDefaults()
	if err := roi.Validate(); err != nil {
		return nil, fmt.Errorf("regions file %q: %w", path, err)
	}

	base := filepath.Dir(path)
	roi.Boundaries.Path = resolve(base, roi.Boundaries.Path)
	roi.Parent.Path = resolve(base, roi.Parent.Path)
	return &roi, nil
}

// Validate checks the region-of-interest definition.
func (r *RegionOfInterest) Validate() error {
	return validateStruct(r, yamlName)
}

func (r *RegionOfInterest) applyDefaults() {
	if r.Boundaries.NameField == "" {
		r.Boundaries.NameField = "nombre"
	}
	if r.Parent.NameField == "" {
		r.Parent.NameField = "nombre"
	}
	if r.Boundaries.Encoding == "" {
		r.Boundaries.Encoding = "utf-8"
	}
	if r.Parent.Encoding == "" {
		r.Parent.Encoding = "utf-8"
	}
	if r.Title == "" {
		r.Title = r.Parent.Name
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
