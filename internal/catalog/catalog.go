package catalog

import (
	_ "embed"
	"sync"

	"github.com/go-playground/validator/v10"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// PropertyKind is the value type of a configurable service property.
type PropertyKind string

const (
	PropertyText    PropertyKind = "text"
	PropertyNumber  PropertyKind = "number"
	PropertyBoolean PropertyKind = "boolean"
	PropertySelect  PropertyKind = "select"
)

// PropertySpec describes one configurable property of a service.
type PropertySpec struct {
	Name    string       `yaml:"name" json:"name" validate:"required"`
	Label   string       `yaml:"label" json:"label"`
	Kind    PropertyKind `yaml:"kind" json:"kind" validate:"required,oneof=text number boolean select"`
	Default any          `yaml:"default" json:"default"`
	Options []string     `yaml:"options" json:"options,omitempty"`
}

// SubnetRule restricts which subnet variants a service may be placed in.
// A nil rule on the definition means placement is unrestricted.
type SubnetRule struct {
	Public  bool `yaml:"public" json:"public"`
	Private bool `yaml:"private" json:"private"`
}

// ContainerSpec marks a definition as a container node and carries its
// canvas geometry defaults.
type ContainerSpec struct {
	Width        float64 `yaml:"width" json:"width" validate:"gt=0"`
	Height       float64 `yaml:"height" json:"height" validate:"gt=0"`
	HeaderHeight float64 `yaml:"header_height" json:"header_height" validate:"gte=0"`
	ZIndex       int     `yaml:"z_index" json:"z_index"`
}

// ServiceDefinition is one immutable catalog entry.
type ServiceDefinition struct {
	ID       string `yaml:"id" json:"id" validate:"required"`
	Name     string `yaml:"name" json:"name" validate:"required"`
	Category string `yaml:"category" json:"category" validate:"required,oneof=network compute database storage"`
	Color    string `yaml:"color" json:"color"`
	Icon     string `yaml:"icon" json:"icon"`

	// TerraformType is the provider resource type the generators emit
	// for this service (e.g. aws_instance).
	TerraformType string `yaml:"terraform_type" json:"terraform_type" validate:"required"`

	Properties []PropertySpec `yaml:"properties" json:"properties"`

	// ConnectsTo lists service ids this service may be wired to.
	ConnectsTo []string `yaml:"connects_to" json:"connects_to,omitempty"`

	// RequiredParent names the only container type this service may nest in.
	RequiredParent string `yaml:"required_parent" json:"required_parent,omitempty"`

	// SubnetRole marks a container as a public or private subnet so
	// placement rules can tell the variants apart.
	SubnetRole string `yaml:"subnet_role" json:"subnet_role,omitempty" validate:"omitempty,oneof=public private"`

	// Subnet, when set, limits which subnet variants may host this service.
	Subnet *SubnetRule `yaml:"subnet" json:"subnet,omitempty"`

	// Container, when set, makes nodes of this service containers.
	Container *ContainerSpec `yaml:"container" json:"container,omitempty"`
}

// IsContainer reports whether nodes of this definition host children.
func (d ServiceDefinition) IsContainer() bool { return d.Container != nil }

// Property returns the named property spec.
func (d ServiceDefinition) Property(name string) (PropertySpec, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}

// Catalog is the immutable set of available service definitions.
type Catalog struct {
	services map[string]ServiceDefinition
	ordered  []ServiceDefinition
}

type catalogFile struct {
	Services []ServiceDefinition `yaml:"services" validate:"required,min=1"`
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	return loadFrom(catalogYAML)
}

func loadFrom(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode catalog yaml")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	c := &Catalog{services: make(map[string]ServiceDefinition, len(f.Services))}
	for _, def := range f.Services {
		if err := validate.Struct(def); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "invalid service definition").WithMeta("service", def.ID)
		}
		if _, dup := c.services[def.ID]; dup {
			return nil, appErr.Newf(appErr.CodeConflict, "duplicate service id %q", def.ID)
		}
		for _, p := range def.Properties {
			if p.Kind == PropertySelect && len(p.Options) == 0 {
				return nil, appErr.Newf(appErr.CodeInternal, "service %q: select property %q has no options", def.ID, p.Name)
			}
		}
		c.services[def.ID] = def
		c.ordered = append(c.ordered, def)
	}

	// Cross-reference checks after all ids are known.
	for _, def := range c.ordered {
		if def.RequiredParent != "" {
			parent, ok := c.services[def.RequiredParent]
			if !ok {
				return nil, appErr.Newf(appErr.CodeInternal, "service %q: unknown required parent %q", def.ID, def.RequiredParent)
			}
			if !parent.IsContainer() {
				return nil, appErr.Newf(appErr.CodeInternal, "service %q: required parent %q is not a container", def.ID, def.RequiredParent)
			}
		}
		for _, target := range def.ConnectsTo {
			if _, ok := c.services[target]; !ok {
				return nil, appErr.Newf(appErr.CodeInternal, "service %q: unknown connection target %q", def.ID, target)
			}
		}
		if def.SubnetRole != "" && !def.IsContainer() {
			return nil, appErr.Newf(appErr.CodeInternal, "service %q: subnet role on a non-container", def.ID)
		}
	}

	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the catalog built from the embedded definitions.
// The embedded data is compile-time fixed, so a load failure is a bug.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			panic("catalog: embedded definitions invalid: " + err.Error())
		}
		defaultCat = c
	})
	return defaultCat
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (ServiceDefinition, bool) {
	def, ok := c.services[id]
	return def, ok
}

// Services returns all definitions in catalog order.
func (c *Catalog) Services() []ServiceDefinition {
	out := make([]ServiceDefinition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Containers returns the container definitions in catalog order.
func (c *Catalog) Containers() []ServiceDefinition {
	var out []ServiceDefinition
	for _, def := range c.ordered {
		if def.IsContainer() {
			out = append(out, def)
		}
	}
	return out
}

// CanConnect reports whether a service of type aID lists bID as an
// allowed connection target. Directional: callers check both ways.
func (c *Catalog) CanConnect(aID, bID string) bool {
	def, ok := c.services[aID]
	if !ok {
		return false
	}
	for _, target := range def.ConnectsTo {
		if target == bID {
			return true
		}
	}
	return false
}
