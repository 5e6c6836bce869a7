package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/api/types"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/internal/generator"
	"github.com/stackcanvas/engine/internal/services"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
	"go.uber.org/zap"
)

// SessionsHandler exposes live canvas sessions: opening and closing them,
// the drop/connect/move gestures, and the generated-code panel.
type SessionsHandler struct {
	svc       services.DesignService
	exportSvc services.ExportService
	validate  interface{ Struct(any) error }
}

func NewSessionsHandler(svc services.DesignService, exportSvc services.ExportService, v interface{ Struct(any) error }) *SessionsHandler {
	return &SessionsHandler{svc: svc, exportSvc: exportSvc, validate: v}
}

func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req types.SessionOpenRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	designID := uuid.Nil
	if req.DesignID != "" {
		id, err := uuid.Parse(req.DesignID)
		if err != nil {
			writeInvalid(w, "invalid design id")
			return
		}
		designID = id
	}

	sess, err := h.svc.OpenSession(r.Context(), designID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: sessionState(sess)})
}

func (h *SessionsHandler) State(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sessionState(sess)})
}

func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

// Drop places a palette service onto the canvas.
func (h *SessionsHandler) Drop(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req types.DropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	node, ok := sess.Controller.HandleDrop(req.Payload, design.Position{X: req.X, Y: req.Y})
	if !ok {
		writeAppError(w, appErr.New(appErr.CodeInvalid, "drop rejected by placement rules"))
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: node})
}

// Connect draws an edge between two placed nodes.
func (h *SessionsHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req types.ConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	edge, ok := sess.Controller.HandleConnect(req.SourceID, req.TargetID)
	if !ok {
		writeAppError(w, appErr.New(appErr.CodeInvalid, "connection rejected"))
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: edge})
}

// Move drags a node to a new absolute position, reparenting as needed.
func (h *SessionsHandler) Move(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req types.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	if !sess.Controller.HandleMove(req.NodeID, design.Position{X: req.X, Y: req.Y}) {
		writeAppError(w, appErr.New(appErr.CodeInvalid, "move rejected"))
		return
	}
	node, _ := sess.Controller.Store().Node(req.NodeID)
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: node})
}

func (h *SessionsHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	if !sess.Controller.HandleRemove(nodeID) {
		writeAppError(w, appErr.Newf(appErr.CodeNotFound, "node %q not on canvas", nodeID))
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *SessionsHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	edgeID := chi.URLParam(r, "edgeID")
	if !sess.Controller.HandleRemoveEdge(edgeID) {
		writeAppError(w, appErr.Newf(appErr.CodeNotFound, "edge %q not on canvas", edgeID))
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *SessionsHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req types.UpdatePropertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	if !sess.Controller.HandleUpdateProperty(nodeID, req.Name, req.Value) {
		writeAppError(w, appErr.New(appErr.CodeInvalid, "property update rejected"))
		return
	}
	node, _ := sess.Controller.Store().Node(nodeID)
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: node})
}

func (h *SessionsHandler) Select(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req types.SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.EdgeID != "" {
		sess.Controller.HandleSelectEdge(req.EdgeID)
	} else {
		sess.Controller.HandleSelectNode(req.NodeID)
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sessionState(sess)})
}

func (h *SessionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	sess.Controller.HandleClear()
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sessionState(sess)})
}

// Save snapshots the canvas as the next revision of the bound design.
func (h *SessionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.SaveSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: rev})
}

// Restore loads a stored revision onto the canvas, replacing its contents.
func (h *SessionsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req types.RestoreRevisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	if err := h.svc.RestoreRevision(r.Context(), chi.URLParam(r, "id"), req.Version); err != nil {
		writeAppError(w, err)
		return
	}
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: sessionState(sess)})
}

// Code renders the current canvas for the code panel without persisting
// anything. Target defaults to terraform.
func (h *SessionsHandler) Code(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	target := r.URL.Query().Get("target")
	if target == "" {
		target = "terraform"
	}
	language := r.URL.Query().Get("language")

	files, err := h.exportSvc.GenerateFromGraph(sess.Controller.Store().Graph(), target, language, "")
	if err != nil {
		writeAppError(w, err)
		return
	}

	code := types.GeneratedCode{Target: target, Language: language, Files: toGeneratedFiles(files)}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: code})
}

// Events streams store mutations over a WebSocket until the client leaves.
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	events, cancel := sess.Controller.Store().Subscribe()
	defer cancel()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // canvas UI is served from a different origin in dev
	})
	if err != nil {
		logger.L().Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.CloseNow()

	// CloseRead processes the client's control frames (including the
	// close handshake) and cancels the context when the client leaves.
	ctx := ws.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				ws.Close(websocket.StatusNormalClosure, "")
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				logger.L().Warn("marshal canvas event failed", zap.Error(err))
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, b); err != nil {
				return
			}
		}
	}
}

func sessionState(sess *services.Session) types.SessionState {
	store := sess.Controller.Store()
	nodeID, edgeID := store.Selection()
	state := types.SessionState{
		SessionID:    sess.ID,
		Graph:        store.Graph(),
		SelectedNode: nodeID,
		SelectedEdge: edgeID,
		Dirty:        store.Dirty(),
	}
	if sess.DesignID != uuid.Nil {
		state.DesignID = sess.DesignID.String()
	}
	return state
}

func toGeneratedFiles(files generator.FileSet) []types.GeneratedFile {
	out := make([]types.GeneratedFile, 0, len(files))
	for _, f := range files {
		out = append(out, types.GeneratedFile{Path: f.Path, Content: string(f.Content)})
	}
	return out
}
