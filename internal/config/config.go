package config

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config models renoline.yml: the subsidy program catalog with the price
// caps used when seeding intervention budgets.
type Config struct {
	Program struct {
		Name   string `yaml:"name"`
		Locale string `yaml:"locale"`
	} `yaml:"program"`
	Categories map[string]Category `yaml:"categories"`
}

// Category is one subsidized expense category. MaxUnitPrice and MaxAmount
// cap the seeded intervention budget: min(quantity * max_unit_price, max_amount).
type Category struct {
	Description  string  `yaml:"description"`
	Unit         string  `yaml:"unit"`
	MaxUnitPrice float64 `yaml:"max_unit_price"`
	MaxAmount    float64 `yaml:"max_amount"`
}

// Load reads and validates config from a workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with rl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Program.Locale != "" {
		if _, err := language.Parse(c.Program.Locale); err != nil {
			return fmt.Errorf("config.program.locale %q is not a valid BCP 47 tag", c.Program.Locale)
		}
	}
	for code, cat := range c.Categories {
		if code == "" {
			return fmt.Errorf("config.categories contains an empty category code")
		}
		if cat.MaxUnitPrice < 0 {
			return fmt.Errorf("category %s: max_unit_price must not be negative", code)
		}
		if cat.MaxAmount < 0 {
			return fmt.Errorf("category %s: max_amount must not be negative", code)
		}
	}
	return nil
}

// SortLocale resolves the configured collation locale, defaulting to Greek.
func (c *Config) SortLocale() language.Tag {
	if c == nil || c.Program.Locale == "" {
		return language.Greek
	}
	tag, err := language.Parse(c.Program.Locale)
	if err != nil {
		return language.Greek
	}
	return tag
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "renoline.yml")
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `program:
  name: Residential Renovation Subsidy
  locale: el

categories:
  "1.A1":
    description: "Κουφώματα - Πλαίσιο αλουμινίου με ενεργειακό υαλοπίνακα (I)"
    unit: "m²"
    max_unit_price: 440
    max_amount: 12000
  "1.B1":
    description: "Κουφώματα - Πλαίσιο ξύλου με ενεργειακό υαλοπίνακα (I)"
    unit: "m²"
    max_unit_price: 620
    max_amount: 12000
  "2.A1":
    description: "Θερμομόνωση δώματος εξωτερικά (II)"
    unit: "m²"
    max_unit_price: 59
    max_amount: 16000
  "2.B1":
    description: "Θερμομόνωση εξωτερικής τοιχοποιίας (II)"
    unit: "m²"
    max_unit_price: 75
    max_amount: 16000
  "3.A1":
    description: "Αντλία θερμότητας για θέρμανση και ψύξη (III)"
    unit: "kW"
    max_unit_price: 1150
    max_amount: 14000
  "3.B2":
    description: "Ηλιακός θερμοσίφωνας (III)"
    unit: "τεμ"
    max_unit_price: 1310
    max_amount: 1310
  "4.A1":
    description: "Συσκευή διαχείρισης ενέργειας - smart home (IV)"
    unit: "τεμ"
    max_unit_price: 1000
    max_amount: 1000
`
