package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	appErr "github.com/stackcanvas/engine/pkg/errors"
	"github.com/stackcanvas/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// Scratch sessions (zero design id) never touch the repositories, so the
// registry can be exercised without a database.
func newScratchService() DesignService {
	return NewDesignService(catalog.Default(), nil, nil)
}

func TestOpenScratchSessionStartsEmpty(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, uuid.Nil, sess.DesignID)

	nodes, edges := sess.Controller.Store().Counts()
	require.Zero(t, nodes)
	require.Zero(t, edges)
	require.False(t, sess.Controller.Store().Dirty())
}

func TestGetSessionReturnsLiveCanvas(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	def, ok := catalog.Default().Get("vpc")
	require.True(t, ok)
	payload, err := catalog.EncodePayload(def)
	require.NoError(t, err)
	_, placed := sess.Controller.HandleDrop(payload, design.Position{X: 100, Y: 100})
	require.True(t, placed)

	got, err := svc.GetSession(sess.ID)
	require.NoError(t, err)
	nodes, _ := got.Controller.Store().Counts()
	require.Equal(t, 1, nodes)
	require.True(t, got.Controller.Store().Dirty())
}

func TestGetSessionUnknownID(t *testing.T) {
	svc := newScratchService()

	_, err := svc.GetSession("nope")
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestCloseSessionRemovesIt(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	require.NoError(t, svc.CloseSession(sess.ID))

	_, err = svc.GetSession(sess.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	err = svc.CloseSession(sess.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestSweepIdleSessions(t *testing.T) {
	svc := newScratchService()

	stale, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)
	fresh, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	// Backdate the stale session past any cutoff.
	stale.mu.Lock()
	stale.lastSeen = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	swept := svc.SweepIdleSessions(30 * time.Minute)
	require.Equal(t, 1, swept)

	_, err = svc.GetSession(stale.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = svc.GetSession(fresh.ID)
	require.NoError(t, err)
}

func TestSweepKeepsRecentlyTouchedSessions(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	sess.mu.Lock()
	sess.lastSeen = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	// GetSession counts as activity.
	_, err = svc.GetSession(sess.ID)
	require.NoError(t, err)

	require.Zero(t, svc.SweepIdleSessions(30*time.Minute))
}

func TestSaveSnapshotRequiresBoundDesign(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	_, err = svc.SaveSnapshot(context.Background(), sess.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestRestoreRevisionRequiresBoundDesign(t *testing.T) {
	svc := newScratchService()

	sess, err := svc.OpenSession(context.Background(), uuid.Nil)
	require.NoError(t, err)

	err = svc.RestoreRevision(context.Background(), sess.ID, 1)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}
