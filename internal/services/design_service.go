package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stackcanvas/engine/internal/canvas"
	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/internal/models"
	"github.com/stackcanvas/engine/internal/repository"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Service interface and related DTOs
type DesignService interface {
	// Design CRUD
	CreateDesign(ctx context.Context, input *CreateDesignInput) (*models.Design, error)
	GetDesign(ctx context.Context, designID uuid.UUID) (*models.Design, error)
	ListDesigns(ctx context.Context) ([]models.Design, error)
	UpdateDesign(ctx context.Context, designID uuid.UUID, updates *UpdateDesignInput) (*models.Design, error)
	ArchiveDesign(ctx context.Context, designID uuid.UUID) error

	// Live canvas sessions
	OpenSession(ctx context.Context, designID uuid.UUID) (*Session, error)
	GetSession(sessionID string) (*Session, error)
	CloseSession(sessionID string) error
	SweepIdleSessions(idleFor time.Duration) int

	// Revision management
	SaveSnapshot(ctx context.Context, sessionID string) (*models.DesignRevision, error)
	RestoreRevision(ctx context.Context, sessionID string, version int) error
	SetCurrentRevision(ctx context.Context, designID uuid.UUID, version int) error
	GetCurrentRevision(ctx context.Context, designID uuid.UUID) (*models.DesignRevision, error)
	GetRevision(ctx context.Context, designID uuid.UUID, version int) (*models.DesignRevision, error)
	ListRevisions(ctx context.Context, designID uuid.UUID) ([]models.DesignRevision, error)
}

type CreateDesignInput struct {
	Name        string
	Description string
}

type UpdateDesignInput struct {
	Name        *string
	Description *string
}

// Session is a live canvas bound to at most one design. All drop, connect,
// and move gestures flow through its controller; nothing touches the
// database until a snapshot is saved.
type Session struct {
	ID         string
	DesignID   uuid.UUID
	Controller *canvas.Controller

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen reports when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type designService struct {
	cat          *catalog.Catalog
	designRepo   repository.DesignRepository
	revisionRepo repository.RevisionRepository

	sessMu   sync.RWMutex
	sessions map[string]*Session
}

func NewDesignService(cat *catalog.Catalog, designRepo repository.DesignRepository, revisionRepo repository.RevisionRepository) DesignService {
	return &designService{
		cat:          cat,
		designRepo:   designRepo,
		revisionRepo: revisionRepo,
		sessions:     make(map[string]*Session),
	}
}

var _ DesignService = (*designService)(nil)

func (s *designService) CreateDesign(ctx context.Context, input *CreateDesignInput) (*models.Design, error) {
	if input.Name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "design name is required")
	}

	d := &models.Design{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.designRepo.Create(ctx, d); err != nil {
		return nil, err
	}

	logger.L().Info("design created", zap.String("design_id", d.ID.String()), zap.String("name", d.Name))
	return d, nil
}

func (s *designService) GetDesign(ctx context.Context, designID uuid.UUID) (*models.Design, error) {
	var d models.Design
	if err := s.designRepo.GetByID(ctx, designID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *designService) ListDesigns(ctx context.Context) ([]models.Design, error) {
	return s.designRepo.List(ctx)
}

func (s *designService) UpdateDesign(ctx context.Context, designID uuid.UUID, updates *UpdateDesignInput) (*models.Design, error) {
	var d models.Design
	if err := s.designRepo.GetByID(ctx, designID, &d); err != nil {
		return nil, err
	}

	if updates.Name != nil {
		if *updates.Name == "" {
			return nil, appErr.New(appErr.CodeInvalid, "design name cannot be empty")
		}
		d.Name = *updates.Name
	}
	if updates.Description != nil {
		d.Description = *updates.Description
	}

	if err := s.designRepo.Update(ctx, &d); err != nil {
		return nil, err
	}

	logger.L().Info("design updated", zap.String("design_id", designID.String()))
	return &d, nil
}

func (s *designService) ArchiveDesign(ctx context.Context, designID uuid.UUID) error {
	if err := s.designRepo.Archive(ctx, designID); err != nil {
		return err
	}

	// Drop live sessions bound to the archived design.
	s.sessMu.Lock()
	for id, sess := range s.sessions {
		if sess.DesignID == designID {
			delete(s.sessions, id)
		}
	}
	s.sessMu.Unlock()

	logger.L().Info("design archived", zap.String("design_id", designID.String()))
	return nil
}

// OpenSession starts a live canvas. A zero designID opens a scratch session;
// otherwise the design's current revision (if any) is loaded onto the canvas.
func (s *designService) OpenSession(ctx context.Context, designID uuid.UUID) (*Session, error) {
	store := design.NewStore(s.cat)

	if designID != uuid.Nil {
		var d models.Design
		if err := s.designRepo.GetByID(ctx, designID, &d); err != nil {
			return nil, err
		}

		var rev models.DesignRevision
		err := s.revisionRepo.GetCurrentByDesign(ctx, designID, &rev)
		switch {
		case err == nil:
			g, decErr := decodeRevisionGraph(&rev)
			if decErr != nil {
				return nil, decErr
			}
			store.Load(g)
		case appErr.IsCode(err, appErr.CodeNotFound):
			// fresh design, empty canvas
		default:
			return nil, err
		}
	}

	sess := &Session{
		ID:         uuid.NewString(),
		DesignID:   designID,
		Controller: canvas.NewController(s.cat, store),
		lastSeen:   time.Now(),
	}

	s.sessMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessMu.Unlock()

	logger.L().Info("session opened", zap.String("session_id", sess.ID), zap.String("design_id", designID.String()))
	return sess, nil
}

func (s *designService) GetSession(sessionID string) (*Session, error) {
	s.sessMu.RLock()
	sess, ok := s.sessions[sessionID]
	s.sessMu.RUnlock()
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "session not found")
	}
	sess.Touch()
	return sess, nil
}

func (s *designService) CloseSession(sessionID string) error {
	s.sessMu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.sessMu.Unlock()
	if !ok {
		return appErr.New(appErr.CodeNotFound, "session not found")
	}
	logger.L().Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// SweepIdleSessions drops sessions unused for longer than idleFor and
// returns how many were removed.
func (s *designService) SweepIdleSessions(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	s.sessMu.Lock()
	swept := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			swept++
		}
	}
	s.sessMu.Unlock()

	if swept > 0 {
		logger.L().Info("idle sessions swept", zap.Int("count", swept))
	}
	return swept
}

// SaveSnapshot persists the session's canvas as the next revision of its
// design and clears the canvas dirty flag.
func (s *designService) SaveSnapshot(ctx context.Context, sessionID string) (*models.DesignRevision, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.DesignID == uuid.Nil {
		return nil, appErr.New(appErr.CodeInvalid, "session is not bound to a design")
	}

	g := sess.Controller.Store().Graph()
	nodesB, err := json.Marshal(g.Nodes)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal nodes failed")
	}
	edgesB, err := json.Marshal(g.Edges)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal edges failed")
	}

	rev := &models.DesignRevision{
		DesignID: sess.DesignID,
		Nodes:    datatypes.JSON(nodesB),
		Edges:    datatypes.JSON(edgesB),
	}
	if err := s.revisionRepo.SaveNewVersion(ctx, rev); err != nil {
		return nil, err
	}
	sess.Controller.Store().MarkSaved()

	logger.L().Info("snapshot saved",
		zap.String("design_id", sess.DesignID.String()),
		zap.Int("version", rev.Version),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)))
	return rev, nil
}

// RestoreRevision replaces the session's canvas with a stored revision.
// The design's current pointer is untouched; saving afterwards creates a
// new version on top.
func (s *designService) RestoreRevision(ctx context.Context, sessionID string, version int) error {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.DesignID == uuid.Nil {
		return appErr.New(appErr.CodeInvalid, "session is not bound to a design")
	}

	var rev models.DesignRevision
	if err := s.revisionRepo.GetByVersion(ctx, sess.DesignID, version, &rev); err != nil {
		return err
	}
	g, err := decodeRevisionGraph(&rev)
	if err != nil {
		return err
	}
	sess.Controller.Store().Load(g)

	logger.L().Info("revision restored", zap.String("session_id", sessionID), zap.Int("version", version))
	return nil
}

func (s *designService) SetCurrentRevision(ctx context.Context, designID uuid.UUID, version int) error {
	if err := s.revisionRepo.SetCurrent(ctx, designID, version); err != nil {
		return err
	}
	logger.L().Info("current revision changed", zap.String("design_id", designID.String()), zap.Int("version", version))
	return nil
}

func (s *designService) GetCurrentRevision(ctx context.Context, designID uuid.UUID) (*models.DesignRevision, error) {
	var rev models.DesignRevision
	if err := s.revisionRepo.GetCurrentByDesign(ctx, designID, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *designService) GetRevision(ctx context.Context, designID uuid.UUID, version int) (*models.DesignRevision, error) {
	var rev models.DesignRevision
	if err := s.revisionRepo.GetByVersion(ctx, designID, version, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *designService) ListRevisions(ctx context.Context, designID uuid.UUID) ([]models.DesignRevision, error) {
	return s.revisionRepo.ListByDesign(ctx, designID)
}

// decodeRevisionGraph rebuilds a canvas graph from a revision's stored JSON.
func decodeRevisionGraph(rev *models.DesignRevision) (design.Graph, error) {
	var g design.Graph
	if len(rev.Nodes) > 0 {
		if err := json.Unmarshal(rev.Nodes, &g.Nodes); err != nil {
			return design.Graph{}, appErr.Wrap(err, appErr.CodeInternal, "decode revision nodes failed")
		}
	}
	if len(rev.Edges) > 0 {
		if err := json.Unmarshal(rev.Edges, &g.Edges); err != nil {
			return design.Graph{}, appErr.Wrap(err, appErr.CodeInternal, "decode revision edges failed")
		}
	}
	return g, nil
}
