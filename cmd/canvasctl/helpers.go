package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/internal/export"
	"github.com/stackcanvas/engine/internal/generator"
)

// loadGraph reads a graph snapshot from disk and checks it against the
// catalog. Generators silently drop nodes with unknown service ids, so
// the check here is what turns a typo into a readable error.
func loadGraph(path string, cat *catalog.Catalog) (design.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return design.Graph{}, fmt.Errorf("read graph file: %w", err)
	}

	var g design.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return design.Graph{}, fmt.Errorf("parse graph file %s: %w", path, err)
	}

	for _, n := range g.Nodes {
		if _, ok := cat.Get(n.ServiceID); !ok {
			return design.Graph{}, fmt.Errorf("node %q references unknown service %q", n.ID, n.ServiceID)
		}
	}
	for _, e := range g.Edges {
		if g.NodeByID(e.Source) == nil || g.NodeByID(e.Target) == nil {
			return design.Graph{}, fmt.Errorf("edge %q references a missing node", e.ID)
		}
	}

	return g, nil
}

// projectNameFor picks the project name: the explicit flag if given,
// otherwise the graph file's base name.
func projectNameFor(flag, graphPath string) string {
	if flag != "" {
		return flag
	}
	base := filepath.Base(graphPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// renderProject loads a graph file and runs the chosen generator over
// it, naming the Pulumi project the same way the engine's export
// pipeline does.
func renderProject(graphPath, target, language, project string) (generator.FileSet, error) {
	cat := catalog.Default()
	g, err := loadGraph(graphPath, cat)
	if err != nil {
		return nil, err
	}

	gen, err := generator.ForTarget(target, language)
	if err != nil {
		return nil, err
	}
	if p, ok := gen.(*generator.Pulumi); ok {
		p.ProjectName = export.SanitizeProjectName(project)
	}
	return gen.Generate(g, cat)
}
