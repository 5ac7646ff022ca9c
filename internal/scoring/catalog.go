package scoring

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var builtinCatalog embed.FS

// CatalogFile is the on-disk format accepted by LoadCatalogFile.
type CatalogFile struct {
	Assessments []TypeConfig `yaml:"assessments"`
}

// BuiltinCatalog returns the thyroid, menopause and dosha definitions
// shipped with the binary, ordered by file name.
func BuiltinCatalog() ([]TypeConfig, error) {
	names, err := fs.Glob(builtinCatalog, "catalog/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	configs := make([]TypeConfig, 0, len(names))
	for _, name := range names {
		data, err := builtinCatalog.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var cfg TypeConfig
		if err := decodeStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// LoadCatalogFile reads a catalog override from path.
func LoadCatalogFile(path string) ([]TypeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cf CatalogFile
	if err := decodeStrict(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cf.Assessments) == 0 {
		return nil, &ConfigurationError{Reason: "catalog " + path + " defines no assessments"}
	}
	return cf.Assessments, nil
}

// LoadRegistry builds a registry from path, or from the built-in catalog
// when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	var (
		configs []TypeConfig
		err     error
	)
	if path == "" {
		configs, err = BuiltinCatalog()
	} else {
		configs, err = LoadCatalogFile(path)
	}
	if err != nil {
		return nil, err
	}
	return NewRegistry(configs...)
}

func decodeStrict(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
