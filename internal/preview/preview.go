package preview

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/terraform-exec/tfexec"
	tfjson "github.com/hashicorp/terraform-json"
	"github.com/stackcanvas/engine/internal/generator"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
	"go.uber.org/zap"
)

// Diagnostic is one finding from terraform validate.
type Diagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// Result is the outcome of validating a generated file set.
type Result struct {
	Valid        bool         `json:"valid"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
}

// Previewer validates generated IaC files without touching any cloud account.
type Previewer interface {
	Preview(ctx context.Context, files generator.FileSet) (*Result, error)
}

// Terraform runs `terraform init -backend=false` and `terraform validate`
// against the file set in a throwaway working directory. Validation needs
// no credentials, so previews are safe on any machine with the binary.
type Terraform struct {
	baseDir string
}

// NewTerraform builds a previewer. baseDir is where per-preview working
// directories are created; empty means the system temp dir.
func NewTerraform(baseDir string) *Terraform {
	return &Terraform{baseDir: baseDir}
}

var _ Previewer = (*Terraform)(nil)

func (p *Terraform) Preview(ctx context.Context, files generator.FileSet) (*Result, error) {
	if len(files) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "nothing to preview")
	}

	workDir, err := os.MkdirTemp(p.baseDir, "stackcanvas-preview-*")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create preview workdir failed")
	}
	defer os.RemoveAll(workDir)

	if err := writeFiles(workDir, files); err != nil {
		return nil, err
	}

	tfPath, err := exec.LookPath("terraform")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnsupported, "terraform not found in PATH")
	}
	tf, err := tfexec.NewTerraform(workDir, tfPath)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create terraform executor failed")
	}

	logger.L().Info("running terraform init", zap.String("working_dir", workDir))
	if err := tf.Init(ctx, tfexec.Backend(false)); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "terraform init failed")
	}

	logger.L().Info("running terraform validate", zap.String("working_dir", workDir))
	out, err := tf.Validate(ctx)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "terraform validate failed")
	}

	return resultFrom(out), nil
}

func writeFiles(workDir string, files generator.FileSet) error {
	for _, f := range files {
		path := filepath.Join(workDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("create dir for %s failed", f.Path))
		}
		if err := os.WriteFile(path, f.Content, 0644); err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("write %s failed", f.Path))
		}
	}
	return nil
}

func resultFrom(out *tfjson.ValidateOutput) *Result {
	res := &Result{
		Valid:        out.Valid,
		ErrorCount:   out.ErrorCount,
		WarningCount: out.WarningCount,
	}
	for _, d := range out.Diagnostics {
		diag := Diagnostic{
			Severity: string(d.Severity),
			Summary:  d.Summary,
			Detail:   d.Detail,
		}
		if d.Range != nil {
			diag.File = d.Range.Filename
			diag.Line = d.Range.Start.Line
		}
		res.Diagnostics = append(res.Diagnostics, diag)
	}
	return res
}

// Disabled is wired in when previews are turned off in configuration.
type Disabled struct{}

var _ Previewer = Disabled{}

func (Disabled) Preview(ctx context.Context, files generator.FileSet) (*Result, error) {
	return nil, appErr.New(appErr.CodeUnsupported, "terraform preview is disabled")
}
