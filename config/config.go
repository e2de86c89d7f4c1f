package config

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MDE"

// ErrInvalid marks configuration that was rejected before any processing.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration loaded from the environment.
type Config struct {
	// Report
	PropertyType    string `envconfig:"PROPERTY_TYPE" default:"Apartments" validate:"oneof=Apartments Houses Offices"`
	Year            int    `envconfig:"YEAR" default:"2025" validate:"min=1"`
	Quarter         int    `envconfig:"QUARTER" default:"1" validate:"min=1,max=4"`
	MinSampleSize   int    `envconfig:"MIN_SAMPLE_SIZE" default:"5" validate:"min=0"`
	DataDir         string `envconfig:"DATA_DIR" default:"./data" validate:"required"`
	ListingsPattern string `envconfig:"LISTINGS_PATTERN" default:"listings_data_m2_medellin*.csv" validate:"required"`
	RegionsFile     string `envconfig:"REGIONS_FILE" default:"./configs/el_poblado.yaml" validate:"required"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"./DataVisualisation" validate:"required"`
	ExportCSV       bool   `envconfig:"EXPORT_CSV" default:"true"`
	ExportGeoJSON   bool   `envconfig:"EXPORT_GEOJSON" default:"true"`
	ExportXLSX      bool   `envconfig:"EXPORT_XLSX" default:"true"`
	RenderMap       bool   `envconfig:"RENDER_MAP" default:"true"`
	MapSize         int    `envconfig:"MAP_SIZE" default:"960" validate:"min=200,max=8000"`

	// Scraping
	City           string        `envconfig:"CITY" default:"medellin" validate:"required"`
	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"3" validate:"min=1"`
	RateLimitMs    int           `envconfig:"RATE_LIMIT_MS" default:"2000" validate:"min=0"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=1"`
	PageTimeout    time.Duration `envconfig:"PAGE_TIMEOUT" default:"10s" validate:"min=1s"`
	ListTimeout    time.Duration `envconfig:"LIST_TIMEOUT" default:"120s" validate:"min=1s"`
	ListingLimit   int           `envconfig:"LISTING_LIMIT" default:"0" validate:"min=0"`
	ChromeBin      string        `envconfig:"CHROME_BIN"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// Load reads the .env file and applies MDE_* environment variables over
// the defaults. The result is not validated: callers apply their command
// line overrides first and then call Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field constraint and reports all violations at once,
// named after the environment variable that sets them.
func (c *Config) Validate() error {
	return validateStruct(c, envName)
}

func envName(fld reflect.StructField) string {
	name := fld.Tag.Get("envconfig")
	if name == "" {
		return fld.Name
	}
	return EnvPrefix + "_" + name
}

func yamlName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	if name == "" || name == "-" {
		return ""
	}
	return name
}

func validateStruct(v any, nameFn func(reflect.StructField) string) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(nameFn)

	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", name, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", name, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", name, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", name, fe.Tag())
	}
}
