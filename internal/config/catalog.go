package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// catalogFile is the on-disk asset catalog layout.
type catalogFile struct {
	Assets []domain.AssetMeta `yaml:"assets"`
}

// LoadCatalog reads asset display metadata from a YAML file and layers it
// over the built-in catalog. An empty path returns the built-in catalog.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.NewCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML asset catalog.
func ParseCatalog(data []byte) (*domain.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing asset catalog: %w", err)
	}
	for i, a := range f.Assets {
		if domain.NormalizeSymbol(a.Symbol) == "" {
			return nil, fmt.Errorf("asset catalog entry %d: symbol is required", i)
		}
	}
	return domain.NewCatalog(f.Assets...), nil
}
