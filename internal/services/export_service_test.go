package services

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/internal/models"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// Mock implementations

type mockDesignRepo struct {
	mock.Mock
}

func (m *mockDesignRepo) Create(ctx context.Context, obj *models.Design) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockDesignRepo) GetByID(ctx context.Context, id any, dest *models.Design) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockDesignRepo) Update(ctx context.Context, obj *models.Design) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockDesignRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDesignRepo) Exists(ctx context.Context, id any) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockDesignRepo) List(ctx context.Context) ([]models.Design, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Design), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDesignRepo) Archive(ctx context.Context, designID uuid.UUID) error {
	return m.Called(ctx, designID).Error(0)
}

type mockRevisionRepo struct {
	mock.Mock
}

func (m *mockRevisionRepo) Create(ctx context.Context, obj *models.DesignRevision) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockRevisionRepo) GetByID(ctx context.Context, id any, dest *models.DesignRevision) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockRevisionRepo) Update(ctx context.Context, obj *models.DesignRevision) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockRevisionRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRevisionRepo) Exists(ctx context.Context, id any) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRevisionRepo) GetCurrentByDesign(ctx context.Context, designID uuid.UUID, dest *models.DesignRevision) error {
	return m.Called(ctx, designID, dest).Error(0)
}

func (m *mockRevisionRepo) GetByVersion(ctx context.Context, designID uuid.UUID, version int, dest *models.DesignRevision) error {
	return m.Called(ctx, designID, version, dest).Error(0)
}

func (m *mockRevisionRepo) ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.DesignRevision, error) {
	args := m.Called(ctx, designID)
	if v := args.Get(0); v != nil {
		return v.([]models.DesignRevision), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRevisionRepo) SaveNewVersion(ctx context.Context, rev *models.DesignRevision) error {
	return m.Called(ctx, rev).Error(0)
}

func (m *mockRevisionRepo) SetCurrent(ctx context.Context, designID uuid.UUID, version int) error {
	return m.Called(ctx, designID, version).Error(0)
}

type mockArtifactRepo struct {
	mock.Mock
}

func (m *mockArtifactRepo) Create(ctx context.Context, obj *models.ExportArtifact) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockArtifactRepo) GetByID(ctx context.Context, id any, dest *models.ExportArtifact) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockArtifactRepo) Update(ctx context.Context, obj *models.ExportArtifact) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockArtifactRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockArtifactRepo) Exists(ctx context.Context, id any) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockArtifactRepo) ListByDesign(ctx context.Context, designID uuid.UUID) ([]models.ExportArtifact, error) {
	args := m.Called(ctx, designID)
	if v := args.Get(0); v != nil {
		return v.([]models.ExportArtifact), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArtifactRepo) UpdateStatus(ctx context.Context, artifactID uuid.UUID, status string) error {
	return m.Called(ctx, artifactID, status).Error(0)
}

func (m *mockArtifactRepo) MarkCompleted(ctx context.Context, artifactID uuid.UUID, archive []byte) error {
	return m.Called(ctx, artifactID, archive).Error(0)
}

func (m *mockArtifactRepo) MarkFailed(ctx context.Context, artifactID uuid.UUID, reason string) error {
	return m.Called(ctx, artifactID, reason).Error(0)
}

// newExportFixture wires an export service with fresh mocks and no queue
// client; RequestExport logs and skips the enqueue in that case.
func newExportFixture() (ExportService, *mockDesignRepo, *mockRevisionRepo, *mockArtifactRepo) {
	designRepo := &mockDesignRepo{}
	revisionRepo := &mockRevisionRepo{}
	artifactRepo := &mockArtifactRepo{}
	svc := NewExportService(catalog.Default(), designRepo, revisionRepo, artifactRepo, nil)
	return svc, designRepo, revisionRepo, artifactRepo
}

func TestRequestExportRejectsUnknownTarget(t *testing.T) {
	svc, designRepo, _, artifactRepo := newExportFixture()

	_, err := svc.RequestExport(context.Background(), uuid.New(), &ExportInput{Target: "cloudformation"})
	require.True(t, appErr.IsCode(err, appErr.CodeUnsupported))

	designRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	artifactRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestExportCreatesPendingArtifact(t *testing.T) {
	svc, designRepo, revisionRepo, artifactRepo := newExportFixture()
	designID := uuid.New()
	revID := uuid.New()

	designRepo.On("GetByID", mock.Anything, designID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Design) = models.Design{ID: designID, Name: "Web App"}
		}).Return(nil).Once()
	revisionRepo.On("GetCurrentByDesign", mock.Anything, designID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.DesignRevision) = models.DesignRevision{ID: revID, DesignID: designID, Version: 3}
		}).Return(nil).Once()
	artifactRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	a, err := svc.RequestExport(context.Background(), designID, &ExportInput{Target: "terraform"})
	require.NoError(t, err)
	require.Equal(t, "pending", a.Status)
	require.Equal(t, revID, a.RevisionID)
	require.Equal(t, "web-app-terraform.zip", a.Filename)

	mock.AssertExpectationsForObjects(t, designRepo, revisionRepo, artifactRepo)
}

func TestRequestExportDesignNotFound(t *testing.T) {
	svc, designRepo, _, artifactRepo := newExportFixture()
	designID := uuid.New()

	designRepo.On("GetByID", mock.Anything, designID, mock.Anything).
		Return(appErr.New(appErr.CodeNotFound, "entity not found")).Once()

	_, err := svc.RequestExport(context.Background(), designID, &ExportInput{Target: "terraform"})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	artifactRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBuildArtifactCompletes(t *testing.T) {
	svc, designRepo, revisionRepo, artifactRepo := newExportFixture()
	designID := uuid.New()
	revID := uuid.New()
	artifactID := uuid.New()

	artifactRepo.On("GetByID", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.ExportArtifact) = models.ExportArtifact{
				ID: artifactID, DesignID: designID, RevisionID: revID,
				Target: "terraform", Status: "pending",
			}
		}).Return(nil).Once()
	artifactRepo.On("UpdateStatus", mock.Anything, artifactID, "building").Return(nil).Once()
	revisionRepo.On("GetByID", mock.Anything, revID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.DesignRevision) = models.DesignRevision{
				ID: revID, DesignID: designID, Version: 1,
				Nodes: datatypes.JSON(`[{"id":"ec2-1","service_id":"ec2","position":{"x":0,"y":0}}]`),
				Edges: datatypes.JSON(`[]`),
			}
		}).Return(nil).Once()
	designRepo.On("GetByID", mock.Anything, designID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Design) = models.Design{ID: designID, Name: "Web App"}
		}).Return(nil).Once()

	var archived []byte
	artifactRepo.On("MarkCompleted", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			archived = args.Get(2).([]byte)
		}).Return(nil).Once()

	require.NoError(t, svc.BuildArtifact(context.Background(), artifactID))

	zr, err := zip.NewReader(bytes.NewReader(archived), int64(len(archived)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "main.tf")
	require.Contains(t, names, "modules/compute/main.tf")

	mock.AssertExpectationsForObjects(t, designRepo, revisionRepo, artifactRepo)
}

func TestBuildArtifactSkipsCompleted(t *testing.T) {
	svc, _, _, artifactRepo := newExportFixture()
	artifactID := uuid.New()

	artifactRepo.On("GetByID", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.ExportArtifact) = models.ExportArtifact{ID: artifactID, Status: "completed"}
		}).Return(nil).Once()

	require.NoError(t, svc.BuildArtifact(context.Background(), artifactID))

	// Retries of an already built artifact must not rebuild it.
	artifactRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	artifactRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildArtifactMarksFailedWhenRevisionMissing(t *testing.T) {
	svc, _, revisionRepo, artifactRepo := newExportFixture()
	revID := uuid.New()
	artifactID := uuid.New()

	artifactRepo.On("GetByID", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.ExportArtifact) = models.ExportArtifact{
				ID: artifactID, RevisionID: revID, Target: "terraform", Status: "pending",
			}
		}).Return(nil).Once()
	artifactRepo.On("UpdateStatus", mock.Anything, artifactID, "building").Return(nil).Once()
	revisionRepo.On("GetByID", mock.Anything, revID, mock.Anything).
		Return(appErr.New(appErr.CodeNotFound, "revision not found")).Once()
	artifactRepo.On("MarkFailed", mock.Anything, artifactID, "revision not found").Return(nil).Once()

	err := svc.BuildArtifact(context.Background(), artifactID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	mock.AssertExpectationsForObjects(t, revisionRepo, artifactRepo)
}

func TestDownloadArtifactRequiresCompleted(t *testing.T) {
	svc, _, _, artifactRepo := newExportFixture()
	artifactID := uuid.New()

	artifactRepo.On("GetByID", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.ExportArtifact) = models.ExportArtifact{ID: artifactID, Status: "building"}
		}).Return(nil).Once()

	_, _, err := svc.DownloadArtifact(context.Background(), artifactID)
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))
}

func TestDownloadArtifactReturnsArchive(t *testing.T) {
	svc, _, _, artifactRepo := newExportFixture()
	artifactID := uuid.New()

	artifactRepo.On("GetByID", mock.Anything, artifactID, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.ExportArtifact) = models.ExportArtifact{
				ID: artifactID, Status: "completed",
				Filename: "web-app-terraform.zip", Archive: []byte("zipbytes"),
			}
		}).Return(nil).Once()

	name, data, err := svc.DownloadArtifact(context.Background(), artifactID)
	require.NoError(t, err)
	require.Equal(t, "web-app-terraform.zip", name)
	require.Equal(t, []byte("zipbytes"), data)
}

func TestGenerateFromGraphNamesPulumiProject(t *testing.T) {
	svc, _, _, _ := newExportFixture()

	files, err := svc.GenerateFromGraph(design.Graph{}, "pulumi", "python", "My App!")
	require.NoError(t, err)

	manifest, ok := files.Lookup("Pulumi.yaml")
	require.True(t, ok)
	require.True(t, strings.Contains(string(manifest.Content), "name: my-app"))
}
