// =============================================================================
// Retail Star Schema Pipeline - Configuration Module
// =============================================================================
//
// This module is responsible for loading the pipeline configuration file.
// Every setting has a default, so the pipeline runs without a config file
// using the fixed data/ layout:
//
//   data/raw/Inventory_raw.csv   -> data/clean/Inventory_clean.csv
//   data/raw/Sales_raw.csv       -> data/clean/Sales_clean.csv
//   data/clean/*                 -> data/model/DimProduct.csv, FactSales.csv
//
// CONFIGURATION SECTIONS:
//   paths      : input/output files of every stage
//   csv        : how raw extracts are read
//   inventory  : inventory cleaning policies
//   sales      : sales cleaning thresholds
//   model      : star schema build options
//   warehouse  : optional SQLite sink
//   metrics    : optional prometheus textfile
//   logging    : level and format
//   schedule   : cron expression for the schedule command
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// POLICY VALUES
// =============================================================================

// Duplicate SKU policies.
const (
	DuplicateKeepFirst = "keep-first"
	DuplicateKeepLast  = "keep-last"
	DuplicateReject    = "reject"
)

// Category policies for values without a ':' separator.
const (
	CategoryFallback = "fallback"
	CategoryDrop     = "drop"
)

// Fact join policies.
const (
	JoinInner = "inner"
	JoinLeft  = "left"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the complete pipeline configuration.
type Config struct {
	Paths     Paths           `yaml:"paths"`
	CSV       CSVSettings     `yaml:"csv"`
	Inventory InventoryConfig `yaml:"inventory"`
	Sales     SalesConfig     `yaml:"sales"`
	Model     ModelConfig     `yaml:"model"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// Paths lists the file of every stage. Each stage's output path is the next
// stage's input path.
type Paths struct {
	// RawInventory is the raw inventory extract (.csv or .xlsx).
	RawInventory string `yaml:"raw_inventory"`

	// RawSales is the raw sales extract (.csv or .xlsx).
	RawSales string `yaml:"raw_sales"`

	// CleanInventory is written by clean-inventory and read by every later stage.
	CleanInventory string `yaml:"clean_inventory"`

	// CleanSales is written by clean-sales and read by build-model.
	CleanSales string `yaml:"clean_sales"`

	// DimProduct and FactSales are written by build-model.
	DimProduct string `yaml:"dim_product"`
	FactSales  string `yaml:"fact_sales"`

	// ReportDir receives run summaries and issue logs.
	ReportDir string `yaml:"report_dir"`
}

// CSVSettings contains settings for reading raw extracts.
type CSVSettings struct {
	// Delimiter separates fields. Accepts a single character or the names
	// "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding of the raw files: "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Output files are always UTF-8.
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// Sheet is the worksheet read from .xlsx inputs. Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// InventoryConfig holds the inventory cleaning policies.
type InventoryConfig struct {
	// SKUSeparator is the character every well-formed SKU contains.
	// SKUs without it are reported, not removed.
	// Default: "-"
	SKUSeparator string `yaml:"sku_separator"`

	// DuplicatePolicy resolves SKU codes that appear more than once:
	// "keep-first", "keep-last" or "reject" (fails the stage).
	// Default: "keep-first"
	DuplicatePolicy string `yaml:"duplicate_policy"`

	// CategoryPolicy handles Category values without ':':
	// "fallback" keeps the row with CategoryName = CategoryFallback,
	// "drop" removes it.
	// Default: "fallback"
	CategoryPolicy string `yaml:"category_policy"`

	// CategoryFallback is the CategoryName used by the fallback policy.
	// Default: "UNKNOWN"
	CategoryFallback string `yaml:"category_fallback"`
}

// SalesConfig holds the sales cleaning thresholds.
type SalesConfig struct {
	// QuantityThreshold is the quantity above which a sale is reported as
	// unusually high. A negative value disables the check.
	// Default: 5000
	QuantityThreshold int `yaml:"quantity_threshold"`
}

// ModelConfig holds the star schema build options.
type ModelConfig struct {
	// FactJoin is "inner" (drop unmatched sales) or "left" (keep them with
	// an absent ProductKey).
	// Default: "inner"
	FactJoin string `yaml:"fact_join"`

	// WorkbookPath, when set, also exports DimProduct and FactSales as two
	// sheets of one .xlsx workbook.
	WorkbookPath string `yaml:"workbook_path"`
}

// WarehouseConfig configures the optional SQLite sink.
type WarehouseConfig struct {
	// Path is the SQLite database file. Empty disables the sink.
	Path string `yaml:"path"`

	// BatchSize is the number of rows per insert statement.
	// Default: 500
	BatchSize int `yaml:"batch_size"`
}

// MetricsConfig configures batch metrics.
type MetricsConfig struct {
	// Textfile is written in the prometheus text format after each run.
	// Empty disables metrics output.
	Textfile string `yaml:"textfile"`
}

// LoggingConfig configures the run logger.
type LoggingConfig struct {
	// Level: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// Format: "text" or "json". Default: "text"
	Format string `yaml:"format"`
}

// ScheduleConfig configures the schedule command.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression or a descriptor such
	// as "@daily".
	// Default: "@daily"
	Cron string `yaml:"cron"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads the configuration from a YAML file. A missing file is not an
// error: the defaults are returned.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run on defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	p := &cfg.Paths
	if p.RawInventory == "" {
		p.RawInventory = "data/raw/Inventory_raw.csv"
	}
	if p.RawSales == "" {
		p.RawSales = "data/raw/Sales_raw.csv"
	}
	if p.CleanInventory == "" {
		p.CleanInventory = "data/clean/Inventory_clean.csv"
	}
	if p.CleanSales == "" {
		p.CleanSales = "data/clean/Sales_clean.csv"
	}
	if p.DimProduct == "" {
		p.DimProduct = "data/model/DimProduct.csv"
	}
	if p.FactSales == "" {
		p.FactSales = "data/model/FactSales.csv"
	}
	if p.ReportDir == "" {
		p.ReportDir = "data/reports"
	}

	if cfg.CSV.Delimiter == "" {
		cfg.CSV.Delimiter = ","
	}
	if cfg.CSV.Encoding == "" {
		cfg.CSV.Encoding = "UTF-8"
	}

	if cfg.Inventory.SKUSeparator == "" {
		cfg.Inventory.SKUSeparator = "-"
	}
	if cfg.Inventory.DuplicatePolicy == "" {
		cfg.Inventory.DuplicatePolicy = DuplicateKeepFirst
	}
	if cfg.Inventory.CategoryPolicy == "" {
		cfg.Inventory.CategoryPolicy = CategoryFallback
	}
	if cfg.Inventory.CategoryFallback == "" {
		cfg.Inventory.CategoryFallback = "UNKNOWN"
	}

	if cfg.Sales.QuantityThreshold == 0 {
		cfg.Sales.QuantityThreshold = 5000
	}

	if cfg.Model.FactJoin == "" {
		cfg.Model.FactJoin = JoinInner
	}

	if cfg.Warehouse.BatchSize == 0 {
		cfg.Warehouse.BatchSize = 500
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "@daily"
	}
}

// Validate checks that every policy value is one the pipeline understands.
func (c *Config) Validate() error {
	var problems []string

	switch c.Inventory.DuplicatePolicy {
	case DuplicateKeepFirst, DuplicateKeepLast, DuplicateReject:
	default:
		problems = append(problems, fmt.Sprintf("inventory.duplicate_policy %q (want keep-first, keep-last or reject)", c.Inventory.DuplicatePolicy))
	}

	switch c.Inventory.CategoryPolicy {
	case CategoryFallback, CategoryDrop:
	default:
		problems = append(problems, fmt.Sprintf("inventory.category_policy %q (want fallback or drop)", c.Inventory.CategoryPolicy))
	}

	switch c.Model.FactJoin {
	case JoinInner, JoinLeft:
	default:
		problems = append(problems, fmt.Sprintf("model.fact_join %q (want inner or left)", c.Model.FactJoin))
	}

	switch strings.ToUpper(c.CSV.Encoding) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1", "WINDOWS-1252", "CP1252":
	default:
		problems = append(problems, fmt.Sprintf("csv.encoding %q is not supported", c.CSV.Encoding))
	}

	if c.Warehouse.BatchSize < 0 {
		problems = append(problems, "warehouse.batch_size must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
