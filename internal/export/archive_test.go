package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/engine/internal/generator"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

func TestSanitizeProjectName(t *testing.T) {
	cases := map[string]string{
		"My Startup Stack":   "my-startup-stack",
		"  prod (v2)  ":      "prod-v2",
		"Already-clean-123":  "already-clean-123",
		"---":                "project",
		"":                   "project",
		"Ärger & Öl":         "rger-l",
		"api.gateway/v1":     "api-gateway-v1",
	}
	for in, want := range cases {
		require.Equal(t, want, SanitizeProjectName(in), "input %q", in)
	}
}

func TestFilename(t *testing.T) {
	require.Equal(t, "my-stack-terraform.zip", Filename("My Stack", "terraform", ""))
	require.Equal(t, "my-stack-pulumi-ts.zip", Filename("My Stack", "pulumi", generator.LangTypeScript))
	require.Equal(t, "my-stack-pulumi-py.zip", Filename("My Stack", "pulumi", generator.LangPython))
}

func TestArchiveRoundTrip(t *testing.T) {
	files := generator.FileSet{
		{Path: "main.tf", Content: []byte(`resource "aws_vpc" "vpc_1" {}`)},
		{Path: "modules/network/main.tf", Content: []byte("# network")},
		{Path: "modules/network/outputs.tf", Content: []byte("# outputs")},
	}

	blob, err := Archive(files)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	got := make(map[string]string, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		got[zf.Name] = string(content)
	}
	require.Equal(t, `resource "aws_vpc" "vpc_1" {}`, got["main.tf"])
	require.Equal(t, "# network", got["modules/network/main.tf"])
	require.Equal(t, "# outputs", got["modules/network/outputs.tf"])
}

func TestArchiveDeterministic(t *testing.T) {
	files := generator.FileSet{
		{Path: "a.txt", Content: []byte("same")},
		{Path: "nested/b.txt", Content: []byte("bytes")},
	}

	first, err := Archive(files)
	require.NoError(t, err)
	second, err := Archive(files)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestArchiveRejectsEmptyFileSet(t *testing.T) {
	_, err := Archive(nil)
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestArchiveRejectsEscapingPaths(t *testing.T) {
	_, err := Archive(generator.FileSet{{Path: "../outside.txt", Content: []byte("x")}})
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestArchivePreservesEmptyFiles(t *testing.T) {
	blob, err := Archive(generator.FileSet{
		{Path: "components/__init__.py", Content: []byte{}},
		{Path: "requirements.txt", Content: []byte("pulumi>=3.0.0\n")},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "components/__init__.py", zr.File[0].Name)
	require.Zero(t, zr.File[0].UncompressedSize64)
}
