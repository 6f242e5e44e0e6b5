package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// LoadServices reads and parses a Homepage services.yaml.
func LoadServices(path string) (ServicesConfig, error) {
	var cfg ServicesConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("services file: %w", err)
	}
	return cfg, nil
}

// LoadBookmarks reads and parses a Homepage bookmarks.yaml.
func LoadBookmarks(path string) (BookmarksConfig, error) {
	var cfg BookmarksConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("bookmarks file: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(stripTemplateVariables(data), out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// stripTemplateVariables removes Homepage template variables, which would
// otherwise break YAML parsing.
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
