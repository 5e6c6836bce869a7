package tasks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stackcanvas/engine/internal/services"
	"github.com/stackcanvas/engine/pkg/logger"
	"go.uber.org/zap"
)

// ExportPayload is the task payload for export build tasks.
type ExportPayload struct {
	ArtifactID string `json:"artifact_id"`
}

// ExportTaskHandler builds queued export artifacts.
type ExportTaskHandler struct {
	exportSvc services.ExportService
}

func NewExportTaskHandler(exportSvc services.ExportService) *ExportTaskHandler {
	return &ExportTaskHandler{exportSvc: exportSvc}
}

func (h *ExportTaskHandler) HandleExportBuild(ctx context.Context, t *asynq.Task) error {
	var p ExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid export task payload", zap.Error(err))
		return err
	}
	id, err := uuid.Parse(p.ArtifactID)
	if err != nil {
		logger.L().Error("invalid artifact id in task", zap.Error(err))
		return err
	}

	logger.L().Info("handling export build task", zap.String("artifact_id", id.String()))

	if err := h.exportSvc.BuildArtifact(ctx, id); err != nil {
		logger.L().Error("export build failed", zap.Error(err), zap.String("artifact_id", id.String()))
		return err
	}

	logger.L().Info("export build task done", zap.String("artifact_id", id.String()))
	return nil
}
