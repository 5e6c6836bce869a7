package types

import "github.com/stackcanvas/engine/internal/design"

type DesignCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type DesignUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type SessionOpenRequest struct {
	DesignID string `json:"design_id" validate:"omitempty,uuid4"`
}

type DropRequest struct {
	Payload string  `json:"payload" validate:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type ConnectRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type MoveRequest struct {
	NodeID string  `json:"node_id" validate:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type UpdatePropertyRequest struct {
	Name  string               `json:"name" validate:"required"`
	Value design.PropertyValue `json:"value"`
}

type SelectRequest struct {
	NodeID string `json:"node_id"`
	EdgeID string `json:"edge_id"`
}

type RestoreRevisionRequest struct {
	Version int `json:"version" validate:"required,gte=1"`
}

type ExportCreateRequest struct {
	Target   string `json:"target" validate:"required,oneof=terraform pulumi"`
	Language string `json:"language" validate:"omitempty,oneof=typescript python"`
}
