package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/engine/internal/catalog"
)

const testGraph = `{
  "nodes": [
    {"id": "vpc-1", "service_id": "vpc", "position": {"x": 40, "y": 40}},
    {"id": "public_subnet-1", "service_id": "public_subnet", "position": {"x": 30, "y": 50}, "parent_id": "vpc-1"},
    {"id": "alb-1", "service_id": "alb", "position": {"x": 20, "y": 60}, "parent_id": "public_subnet-1"},
    {"id": "ec2-1", "service_id": "ec2", "position": {"x": 80, "y": 60}, "parent_id": "public_subnet-1"}
  ],
  "edges": [
    {"id": "edge-1", "source": "alb-1", "target": "ec2-1"}
  ]
}`

func writeGraphFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGraphRejectsUnknownService(t *testing.T) {
	path := writeGraphFile(t, `{"nodes":[{"id":"n-1","service_id":"mainframe","position":{"x":0,"y":0}}],"edges":[]}`)

	_, err := loadGraph(path, catalog.Default())
	require.ErrorContains(t, err, "unknown service")
}

func TestLoadGraphRejectsDanglingEdge(t *testing.T) {
	path := writeGraphFile(t, `{"nodes":[{"id":"ec2-1","service_id":"ec2","position":{"x":0,"y":0}}],"edges":[{"id":"edge-1","source":"ec2-1","target":"gone"}]}`)

	_, err := loadGraph(path, catalog.Default())
	require.ErrorContains(t, err, "missing node")
}

func TestProjectNameFor(t *testing.T) {
	require.Equal(t, "web-app", projectNameFor("web-app", "design.json"))
	require.Equal(t, "design", projectNameFor("", "/tmp/designs/design.json"))
}

func TestGenerateCommandWritesTerraformProject(t *testing.T) {
	graphPath := writeGraphFile(t, testGraph)
	outDir := filepath.Join(t.TempDir(), "out")

	generateTarget = "terraform"
	generateLanguage = "typescript"
	generateOut = outDir

	require.NoError(t, runGenerate(generateCmd, []string{graphPath}))

	for _, p := range []string{
		"main.tf",
		"variables.tf",
		"versions.tf",
		"modules/network/main.tf",
		"modules/compute/main.tf",
	} {
		require.FileExists(t, filepath.Join(outDir, filepath.FromSlash(p)))
	}
}

func TestExportCommandWritesArchive(t *testing.T) {
	graphPath := writeGraphFile(t, testGraph)
	outDir := t.TempDir()

	exportTarget = "terraform"
	exportLanguage = "typescript"
	exportProject = "web-app"
	exportOut = outDir

	require.NoError(t, runExport(exportCmd, []string{graphPath}))

	data, err := os.ReadFile(filepath.Join(outDir, "web-app-terraform.zip"))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	require.True(t, names["main.tf"])
	require.True(t, names["modules/network/main.tf"])
}
