// Package catalog supplies the typed attribute definitions that rule
// conditions reference.
//
// The catalog is read-only to the rest of the system. StaticCatalog serves a
// fixed category list loaded from YAML; the built-in default mirrors the
// product/customer/order/payment attributes shipped with the application.
package catalog

import (
	"context"
	_ "embed"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var validate = validator.New()

// Catalog lists attribute categories.
type Catalog interface {
	ListCategories(ctx context.Context) ([]types.AttributeCategory, error)
	ListCategoriesByEntityType(ctx context.Context, entityType types.EntityType) ([]types.AttributeCategory, error)
}

// file is the on-disk catalog layout.
type file struct {
	Categories []types.AttributeCategory `yaml:"categories" validate:"required,min=1,dive"`
}

// StaticCatalog serves a fixed, validated category list.
type StaticCatalog struct {
	categories []types.AttributeCategory
}

// New validates categories and returns a catalog serving copies of them.
// Category ids and attribute ids must be unique across the whole catalog.
func New(categories []types.AttributeCategory) (*StaticCatalog, error) {
	f := file{Categories: categories}
	if err := validate.Struct(f); err != nil {
		return nil, errors.Wrap(err, "invalid catalog")
	}

	categoryIDs := make(map[string]struct{}, len(categories))
	attributeIDs := make(map[string]struct{})
	for _, c := range categories {
		if _, dup := categoryIDs[c.ID]; dup {
			return nil, errors.Errorf("duplicate category %s", c.ID)
		}
		categoryIDs[c.ID] = struct{}{}
		for _, a := range c.Attributes {
			if _, dup := attributeIDs[a.ID]; dup {
				return nil, errors.Errorf("duplicate attribute %s", a.ID)
			}
			attributeIDs[a.ID] = struct{}{}
			if err := rules.CheckAttribute(a); err != nil {
				return nil, errors.Wrapf(err, "category %s", c.ID)
			}
		}
	}
	return &StaticCatalog{categories: cloneCategories(categories)}, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*StaticCatalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return New(f.Categories)
}

// Load reads a YAML catalog file.
func Load(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *StaticCatalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic("built-in catalog: " + err.Error())
	}
	return c
}

// Open loads path, or returns the built-in catalog when path is empty.
func Open(path string) (*StaticCatalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ListCategories returns every category in catalog order.
func (c *StaticCatalog) ListCategories(ctx context.Context) ([]types.AttributeCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneCategories(c.categories), nil
}

// ListCategoriesByEntityType returns the categories describing entityType.
func (c *StaticCatalog) ListCategoriesByEntityType(ctx context.Context, entityType types.EntityType) ([]types.AttributeCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.AttributeCategory
	for _, cat := range c.categories {
		if cat.EntityType == entityType {
			out = append(out, cloneCategory(cat))
		}
	}
	return out, nil
}

func cloneCategories(in []types.AttributeCategory) []types.AttributeCategory {
	out := make([]types.AttributeCategory, len(in))
	for i, c := range in {
		out[i] = cloneCategory(c)
	}
	return out
}

func cloneCategory(c types.AttributeCategory) types.AttributeCategory {
	out := c
	out.Attributes = make([]types.Attribute, len(c.Attributes))
	for i, a := range c.Attributes {
		out.Attributes[i] = a
		if a.Options != nil {
			out.Attributes[i].Options = append([]string(nil), a.Options...)
		}
	}
	return out
}
