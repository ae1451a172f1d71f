package normalizers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableOverride is the on-disk shape of a table override file. When Replace
// is set the override is used on its own instead of being merged over the
// defaults.
type TableOverride struct {
	Replace   bool `yaml:"replace"`
	TableSpec `yaml:",inline"`
}

// ParseOverride decodes a YAML table override
func ParseOverride(data []byte) (TableOverride, error) {
	var override TableOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return TableOverride{}, fmt.Errorf("failed to parse table override: %w", err)
	}
	return override, nil
}

// LoadOverride reads a YAML table override from disk
func LoadOverride(path string) (TableOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TableOverride{}, fmt.Errorf("failed to read table override %s: %w", path, err)
	}
	return ParseOverride(data)
}

// Apply layers the override over base
func (o TableOverride) Apply(base *Tables) *Tables {
	if o.Replace {
		return NewTables(o.TableSpec)
	}
	return base.Merge(o.TableSpec)
}

// LoadTables returns the default tables with the override at path applied.
// An empty path yields the defaults.
func LoadTables(path string) (*Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}
	override, err := LoadOverride(path)
	if err != nil {
		return nil, err
	}
	return override.Apply(tables), nil
}

// MarshalYAML renders the table content the way an override file expects it
func (t *Tables) MarshalYAML() (any, error) {
	return t.Snapshot(), nil
}
