package preview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/engine/internal/generator"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestWriteFilesCreatesNestedLayout(t *testing.T) {
	dir := t.TempDir()
	files := generator.FileSet{
		{Path: "main.tf", Content: []byte("# root\n")},
		{Path: "modules/network/main.tf", Content: []byte("# network\n")},
		{Path: "modules/network/outputs.tf", Content: []byte("# outputs\n")},
	}

	require.NoError(t, writeFiles(dir, files))

	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		require.NoError(t, err)
		require.Equal(t, string(f.Content), string(b))
	}
}

func TestPreviewRejectsEmptyFileSet(t *testing.T) {
	p := NewTerraform(t.TempDir())

	_, err := p.Preview(context.Background(), nil)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestDisabledPreviewer(t *testing.T) {
	_, err := Disabled{}.Preview(context.Background(), generator.FileSet{{Path: "main.tf"}})
	require.True(t, appErr.IsCode(err, appErr.CodeUnsupported))
}
