package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/internal/export"
	"github.com/stackcanvas/engine/internal/generator"
	"github.com/stackcanvas/engine/internal/models"
	"github.com/stackcanvas/engine/internal/repository"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
	"go.uber.org/zap"
)

var (
	exportsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_requested_total",
			Help: "Total number of export requests by target",
		},
		[]string{"target"},
	)

	exportBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_builds_total",
			Help: "Total number of export builds by outcome",
		},
		[]string{"outcome"},
	)
)

// Export service interface and DTOs
type ExportService interface {
	// Artifact lifecycle
	RequestExport(ctx context.Context, designID uuid.UUID, input *ExportInput) (*models.ExportArtifact, error)
	GetArtifact(ctx context.Context, artifactID uuid.UUID) (*models.ExportArtifact, error)
	ListArtifacts(ctx context.Context, designID uuid.UUID) ([]models.ExportArtifact, error)
	DownloadArtifact(ctx context.Context, artifactID uuid.UUID) (string, []byte, error)

	// Build is invoked by the worker for enqueued artifacts.
	BuildArtifact(ctx context.Context, artifactID uuid.UUID) error

	// GenerateFromGraph renders IaC files without persisting anything.
	GenerateFromGraph(g design.Graph, target, language, projectName string) (generator.FileSet, error)
}

type ExportInput struct {
	Target   string
	Language string
}

type exportService struct {
	cat          *catalog.Catalog
	designRepo   repository.DesignRepository
	revisionRepo repository.RevisionRepository
	artifactRepo repository.ArtifactRepository
	asynqClient  *asynq.Client
}

func NewExportService(cat *catalog.Catalog, designRepo repository.DesignRepository, revisionRepo repository.RevisionRepository, artifactRepo repository.ArtifactRepository, client *asynq.Client) ExportService {
	return &exportService{
		cat:          cat,
		designRepo:   designRepo,
		revisionRepo: revisionRepo,
		artifactRepo: artifactRepo,
		asynqClient:  client,
	}
}

var _ ExportService = (*exportService)(nil)

// RequestExport records a pending artifact for the design's current revision
// and enqueues its build.
func (s *exportService) RequestExport(ctx context.Context, designID uuid.UUID, input *ExportInput) (*models.ExportArtifact, error) {
	// Reject unsupported targets before anything is persisted.
	if _, err := generator.ForTarget(input.Target, input.Language); err != nil {
		return nil, err
	}

	var d models.Design
	if err := s.designRepo.GetByID(ctx, designID, &d); err != nil {
		return nil, err
	}

	var rev models.DesignRevision
	if err := s.revisionRepo.GetCurrentByDesign(ctx, designID, &rev); err != nil {
		return nil, err
	}

	var lang generator.Language
	if input.Target == "pulumi" {
		lang, _ = generator.ParseLanguage(input.Language)
	}

	a := &models.ExportArtifact{
		DesignID:   designID,
		RevisionID: rev.ID,
		Target:     input.Target,
		Language:   string(lang),
		Filename:   export.Filename(d.Name, input.Target, lang),
		Status:     "pending",
	}
	if err := s.artifactRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	exportsRequested.WithLabelValues(input.Target).Inc()

	payload := map[string]string{"artifact_id": a.ID.String()}
	pb, _ := json.Marshal(payload)
	task := asynq.NewTask("export:build", pb)
	if s.asynqClient == nil {
		logger.L().Warn("asynq client not configured, skipping enqueue", zap.String("artifact_id", a.ID.String()))
	} else {
		if _, err := s.asynqClient.EnqueueContext(ctx, task); err != nil {
			logger.L().Error("enqueue export task failed", zap.Error(err), zap.String("artifact_id", a.ID.String()))
			_ = s.artifactRepo.MarkFailed(ctx, a.ID, "enqueue failed")
			return nil, appErr.Wrap(err, appErr.CodeInternal, "enqueue export task failed")
		}
	}

	logger.L().Info("export requested",
		zap.String("artifact_id", a.ID.String()),
		zap.String("design_id", designID.String()),
		zap.String("target", input.Target))
	return a, nil
}

func (s *exportService) GetArtifact(ctx context.Context, artifactID uuid.UUID) (*models.ExportArtifact, error) {
	var a models.ExportArtifact
	if err := s.artifactRepo.GetByID(ctx, artifactID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *exportService) ListArtifacts(ctx context.Context, designID uuid.UUID) ([]models.ExportArtifact, error) {
	return s.artifactRepo.ListByDesign(ctx, designID)
}

// DownloadArtifact returns the archive filename and bytes for a completed
// artifact.
func (s *exportService) DownloadArtifact(ctx context.Context, artifactID uuid.UUID) (string, []byte, error) {
	var a models.ExportArtifact
	if err := s.artifactRepo.GetByID(ctx, artifactID, &a); err != nil {
		return "", nil, err
	}
	if a.Status != "completed" {
		return "", nil, appErr.Newf(appErr.CodeConflict, "artifact is %s, not completed", a.Status)
	}
	return a.Filename, a.Archive, nil
}

// BuildArtifact renders the artifact's revision into an archive. Already
// completed artifacts are left alone so task retries stay idempotent.
func (s *exportService) BuildArtifact(ctx context.Context, artifactID uuid.UUID) error {
	var a models.ExportArtifact
	if err := s.artifactRepo.GetByID(ctx, artifactID, &a); err != nil {
		return err
	}
	if a.Status == "completed" {
		logger.L().Info("artifact already built", zap.String("artifact_id", artifactID.String()))
		return nil
	}

	if err := s.artifactRepo.UpdateStatus(ctx, artifactID, "building"); err != nil {
		return err
	}

	var rev models.DesignRevision
	if err := s.revisionRepo.GetByID(ctx, a.RevisionID, &rev); err != nil {
		_ = s.artifactRepo.MarkFailed(ctx, artifactID, "revision not found")
		exportBuilds.WithLabelValues("failed").Inc()
		return err
	}
	g, err := decodeRevisionGraph(&rev)
	if err != nil {
		_ = s.artifactRepo.MarkFailed(ctx, artifactID, err.Error())
		exportBuilds.WithLabelValues("failed").Inc()
		return err
	}

	projectName := ""
	var d models.Design
	if err := s.designRepo.GetByID(ctx, a.DesignID, &d); err == nil {
		projectName = d.Name
	}

	files, err := s.GenerateFromGraph(g, a.Target, a.Language, projectName)
	if err != nil {
		_ = s.artifactRepo.MarkFailed(ctx, artifactID, err.Error())
		exportBuilds.WithLabelValues("failed").Inc()
		return err
	}
	archive, err := export.Archive(files)
	if err != nil {
		_ = s.artifactRepo.MarkFailed(ctx, artifactID, err.Error())
		exportBuilds.WithLabelValues("failed").Inc()
		return err
	}

	if err := s.artifactRepo.MarkCompleted(ctx, artifactID, archive); err != nil {
		return err
	}
	exportBuilds.WithLabelValues("completed").Inc()

	logger.L().Info("artifact built",
		zap.String("artifact_id", artifactID.String()),
		zap.String("target", a.Target),
		zap.Int("files", len(files)),
		zap.Int("size_bytes", len(archive)))
	return nil
}

func (s *exportService) GenerateFromGraph(g design.Graph, target, language, projectName string) (generator.FileSet, error) {
	gen, err := generator.ForTarget(target, language)
	if err != nil {
		return nil, err
	}
	if p, ok := gen.(*generator.Pulumi); ok && projectName != "" {
		p.ProjectName = export.SanitizeProjectName(projectName)
	}
	return gen.Generate(g, s.cat)
}
