package types

import "github.com/stackcanvas/engine/internal/design"

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// SessionState is the full canvas state returned to clients.
type SessionState struct {
	SessionID    string       `json:"session_id"`
	DesignID     string       `json:"design_id,omitempty"`
	Graph        design.Graph `json:"graph"`
	SelectedNode string       `json:"selected_node,omitempty"`
	SelectedEdge string       `json:"selected_edge,omitempty"`
	Dirty        bool         `json:"dirty"`
}

// GeneratedFile is one rendered IaC file for the code panel.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GeneratedCode is the code panel payload for one target.
type GeneratedCode struct {
	Target   string          `json:"target"`
	Language string          `json:"language,omitempty"`
	Files    []GeneratedFile `json:"files"`
}
