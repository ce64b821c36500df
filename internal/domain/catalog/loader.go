package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed sports.yaml
var embeddedCatalog []byte

// Option configures Load.
type Option func(*loadSettings)

type loadSettings struct {
	path string
}

// WithFile replaces the embedded catalog with a YAML file.
func WithFile(path string) Option {
	return func(s *loadSettings) {
		s.path = path
	}
}

// bytesProvider feeds raw bytes to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]any, error) {
	return nil, errors.New("bytes provider does not support Read")
}

// Load parses the catalog. Without options the embedded data is used.
func Load(opts ...Option) (*Catalog, error) {
	var s loadSettings
	for _, opt := range opts {
		opt(&s)
	}

	var provider koanf.Provider = bytesProvider(embeddedCatalog)
	if s.path != "" {
		provider = file.Provider(s.path)
	}

	k := koanf.New(".")
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return newCatalog(doc)
}

// MustDefault loads the embedded catalog and panics if it is broken.
func MustDefault() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}
