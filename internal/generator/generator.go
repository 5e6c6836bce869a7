// Package generator turns a design graph into ready-to-run
// infrastructure-as-code projects. Generators are pure: the same graph
// always yields byte-identical file sets, so exports diff cleanly.
package generator

import (
	"sort"
	"strings"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// File is one generated project file. Path uses forward slashes and is
// relative to the project root.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// FileSet is a generator's complete output, sorted by path.
type FileSet []File

// Sort orders files by path so output order never depends on build
// internals.
func (fs FileSet) Sort() {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Path < fs[j].Path })
}

// Paths returns the sorted file paths.
func (fs FileSet) Paths() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Path
	}
	return out
}

// Lookup returns the file at path.
func (fs FileSet) Lookup(path string) (File, bool) {
	for _, f := range fs {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Generator renders one target IaC tool from a design graph.
type Generator interface {
	// Name identifies the target (terraform, pulumi).
	Name() string
	// Generate renders the graph. An empty graph yields a minimal
	// valid project, never an error.
	Generate(g design.Graph, cat *catalog.Catalog) (FileSet, error)
}

// ResourceName converts a node id into an identifier the target
// languages accept (node ids use dashes, identifiers use underscores).
func ResourceName(nodeID string) string {
	return strings.ReplaceAll(nodeID, "-", "_")
}

// nodeProp returns the node's value for a property, falling back to
// the catalog default when the node carries none. Malformed or missing
// values never fail generation.
func nodeProp(def catalog.ServiceDefinition, n design.Node, name string) design.PropertyValue {
	spec, ok := def.Property(name)
	if !ok {
		return design.PropertyValue{}
	}
	if v, has := n.Properties[name]; has && v.Matches(spec) == nil {
		return v
	}
	v, err := design.DefaultValue(spec)
	if err != nil {
		return design.PropertyValue{Kind: spec.Kind}
	}
	return v
}

func propText(def catalog.ServiceDefinition, n design.Node, name string) string {
	return nodeProp(def, n, name).Text
}

func propNumber(def catalog.ServiceDefinition, n design.Node, name string) float64 {
	return nodeProp(def, n, name).Number
}

func propBool(def catalog.ServiceDefinition, n design.Node, name string) bool {
	return nodeProp(def, n, name).Bool
}

// sortedNodes returns the graph nodes ordered by id for deterministic
// emission, skipping nodes whose service id is not in the catalog.
func sortedNodes(g design.Graph, cat *catalog.Catalog) []design.Node {
	out := make([]design.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := cat.Get(n.ServiceID); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortedEdges orders edges by source then target, dropping edges whose
// endpoints left the graph.
func sortedEdges(g design.Graph) []design.Edge {
	out := make([]design.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if g.NodeByID(e.Source) != nil && g.NodeByID(e.Target) != nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// ForTarget returns the generator for a target name.
func ForTarget(target, language string) (Generator, error) {
	switch target {
	case "terraform":
		return NewTerraform(), nil
	case "pulumi":
		lang, err := ParseLanguage(language)
		if err != nil {
			return nil, err
		}
		return NewPulumi(lang), nil
	default:
		return nil, appErr.Newf(appErr.CodeUnsupported, "unknown generation target %q", target)
	}
}
