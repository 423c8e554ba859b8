package templates

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var catalogTOML []byte

// catalogNamespace derives stable IDs for built-in templates so that seeding
// a persistent store twice is a no-op.
var catalogNamespace = uuid.MustParse("6f1c7a52-3f0e-4d8b-9a51-2f4f3c8d9e10")

// CatalogID returns the ID a built-in template with the given section and
// slug is stored under.
func CatalogID(section, slug string) string {
	return uuid.NewSHA1(catalogNamespace, []byte(section+"/"+slug)).String()
}

type catalogFile struct {
	Templates []*Template `toml:"templates"`
}

// Catalog decodes the built-in exercise templates. Each call returns fresh
// copies.
func Catalog() ([]*Template, error) {
	return decodeCatalog(catalogTOML)
}

func decodeCatalog(data []byte) ([]*Template, error) {
	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for _, t := range f.Templates {
		t.ID = CatalogID(t.Section, t.Slug)
		t.Active = true
	}
	return f.Templates, nil
}
