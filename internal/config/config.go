package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tv-attribution/internal/domain"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Client     string           `yaml:"client"`
	Inputs     InputsConfig     `yaml:"inputs"`
	Dedupe     DedupeConfig     `yaml:"dedupe"`
	Revenue    RevenueConfig    `yaml:"revenue"`
	Output     OutputConfig     `yaml:"output"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// InputsConfig locates the weekly input files. Patterns are glob patterns
// resolved within Dir; the most recently modified match wins.
type InputsConfig struct {
	Dir             string `yaml:"dir"`
	SpendPattern    string `yaml:"spend_pattern"`
	ActionsPattern  string `yaml:"actions_pattern"`
	ResponsePattern string `yaml:"response_pattern"`
}

// DedupeConfig controls event deduplication.
type DedupeConfig struct {
	Mode string `yaml:"mode"` // with_action | session_only
}

// RevenueConfig controls the action revenue columns.
type RevenueConfig struct {
	Mode string `yaml:"mode"` // on | off | auto
}

// OutputConfig controls report files.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Workbook  string `yaml:"workbook"`   // .xlsx file name
	RunReport string `yaml:"run_report"` // .md file name
	WriteCSV  bool   `yaml:"write_csv"`  // also write one .csv per table
}

// WarehouseConfig holds the Postgres fact warehouse settings. Loading is
// skipped when DSN is empty.
type WarehouseConfig struct {
	DSN      string `yaml:"dsn"`
	LoadMode string `yaml:"load_mode"` // ReplaceWeeks | Append | ReplaceAll | Skip
}

// ClickHouseConfig holds the append-only analytics sink settings. Loading is
// skipped when DSN is empty.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// DedupeMode returns the configured mode as a domain value.
func (c DedupeConfig) DedupeMode() domain.DedupeMode { return domain.DedupeMode(c.Mode) }

// RevenueMode returns the configured mode as a domain value.
func (c RevenueConfig) RevenueMode() domain.RevenueMode { return domain.RevenueMode(c.Mode) }

// LoadModeValue returns the configured load mode as a domain value.
func (c WarehouseConfig) LoadModeValue() domain.LoadMode { return domain.LoadMode(c.LoadMode) }

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Inputs.Dir == "" {
		cfg.Inputs.Dir = "."
	}
	if cfg.Inputs.SpendPattern == "" {
		cfg.Inputs.SpendPattern = "Compile_*.xlsx"
	}
	if cfg.Inputs.ActionsPattern == "" {
		cfg.Inputs.ActionsPattern = "Actions-*.xlsx"
	}
	if cfg.Inputs.ResponsePattern == "" {
		cfg.Inputs.ResponsePattern = "Response-*.xlsx"
	}
	if cfg.Dedupe.Mode == "" {
		cfg.Dedupe.Mode = string(domain.DedupeWithAction)
	}
	if cfg.Revenue.Mode == "" {
		cfg.Revenue.Mode = string(domain.RevenueAuto)
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
	if cfg.Output.Workbook == "" {
		cfg.Output.Workbook = "performance.xlsx"
	}
	if cfg.Output.RunReport == "" {
		cfg.Output.RunReport = "run_report.md"
	}
	if cfg.Warehouse.LoadMode == "" {
		cfg.Warehouse.LoadMode = string(domain.LoadReplaceWeeks)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration and applies environment overrides. A .env
// file in the working directory is read first if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLIENT"); v != "" {
		cfg.Client = v
	}
	if v := os.Getenv("INPUT_DIR"); v != "" {
		cfg.Inputs.Dir = v
	}
	if v := os.Getenv("DEDUPE_MODE"); v != "" {
		cfg.Dedupe.Mode = v
	}
	if v := os.Getenv("ACTION_REVENUE_MODE"); v != "" {
		cfg.Revenue.Mode = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Warehouse.DSN = v
	}
	if v := os.Getenv("DB_LOAD_MODE"); v != "" {
		cfg.Warehouse.LoadMode = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickHouse.DSN = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Client == "" {
		return fmt.Errorf("config: client is required")
	}
	if !c.Dedupe.DedupeMode().Valid() {
		return fmt.Errorf("config: invalid dedupe mode %q", c.Dedupe.Mode)
	}
	if !c.Revenue.RevenueMode().Valid() {
		return fmt.Errorf("config: invalid revenue mode %q", c.Revenue.Mode)
	}
	if !c.Warehouse.LoadModeValue().Valid() {
		return fmt.Errorf("config: invalid warehouse load mode %q", c.Warehouse.LoadMode)
	}
	return nil
}
