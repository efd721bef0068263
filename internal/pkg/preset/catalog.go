// Package preset holds the named plan bundles a plan can be opened from.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// file is the on-disk layout of a preset catalog
type file struct {
	Presets map[string]bundle `yaml:"presets"`
}

// bundle keeps amounts as strings so they parse into exact decimals
type bundle struct {
	Name         string `yaml:"name"`
	Price        string `yaml:"price"`
	YearlyPrice  string `yaml:"yearly_price"`
	MembersLimit *int   `yaml:"members_limit"`
}

// Catalog is a read-only set of named plan attributes
type Catalog struct {
	presets map[string]plan.PlanAttributes
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return parse(defaultPresets)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	return parse(data)
}

// Load reads a catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, errors.New("preset catalog is empty")
	}

	c := &Catalog{presets: make(map[string]plan.PlanAttributes, len(f.Presets))}
	for name, b := range f.Presets {
		attrs, err := b.attributes()
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		c.presets[name] = attrs
	}
	return c, nil
}

func (b bundle) attributes() (plan.PlanAttributes, error) {
	attrs := plan.PlanAttributes{Name: b.Name, MembersLimit: b.MembersLimit}

	if b.Price != "" {
		price, err := decimal.NewFromString(b.Price)
		if err != nil {
			return attrs, fmt.Errorf("invalid price: %w", err)
		}
		attrs.Price = &price
	}
	if b.YearlyPrice != "" {
		yearly, err := decimal.NewFromString(b.YearlyPrice)
		if err != nil {
			return attrs, fmt.Errorf("invalid yearly_price: %w", err)
		}
		attrs.YearlyPrice = &yearly
	}

	if err := attrs.Validate(); err != nil {
		return attrs, err
	}
	return attrs, nil
}

// Names lists the preset names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Attributes returns the attributes of a preset.
func (c *Catalog) Attributes(name string) (plan.PlanAttributes, error) {
	attrs, ok := c.presets[name]
	if !ok {
		return plan.PlanAttributes{}, fmt.Errorf("%w: %s", plan.ErrUnknownPreset, name)
	}
	return attrs, nil
}

// FromPreset builds an unsaved active plan from a preset. The returned plan
// has no owner; callers attach one before saving.
func (c *Catalog) FromPreset(name string) (plan.Plan, error) {
	attrs, err := c.Attributes(name)
	if err != nil {
		return plan.Plan{}, err
	}
	return plan.NewPlan(attrs, plan.Owner{}), nil
}
