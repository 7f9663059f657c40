package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/metrics"
)

func setupApplications(t *testing.T) (*Service, *memStore, *recordingNotifier, *metrics.Metrics, *db.Profile, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	poster := store.addProfile(100, "poster")
	n := &recordingNotifier{}
	svc, m := newTestService(store, n, 1)

	result, err := svc.Post(context.Background(), validRequest(poster.ID, poster.FID, uuid.NewString()))
	require.NoError(t, err)
	return svc, store, n, m, poster, result.JobID
}

func TestApply_NotifiesPoster(t *testing.T) {
	svc, store, n, m, poster, jobID := setupApplications(t)
	dev := store.addProfile(7, "dev")

	app, err := svc.Apply(context.Background(), jobID, dev, "I can build this")
	require.NoError(t, err)
	assert.Equal(t, db.ApplicationStatusSubmitted, app.Status)

	require.Equal(t, []int64{poster.FID}, n.sent)
	got := n.payloads[0]
	assert.Equal(t, "New applicant", got.Title)
	assert.Equal(t, "@dev applied to Build a mini app", got.Body)
	assert.Equal(t, appURL+"/jobs/"+jobID.String(), got.TargetURL)
	assert.Equal(t, app.ID.String(), got.UUID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.KindNewApplicant, "success")))
}

func TestApply_Rules(t *testing.T) {
	svc, store, _, _, poster, jobID := setupApplications(t)
	dev := store.addProfile(7, "dev")

	_, err := svc.Apply(context.Background(), uuid.New(), dev, "")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.Apply(context.Background(), jobID, poster, "")
	assert.ErrorIs(t, err, ErrSelfApplication)

	_, err = svc.Apply(context.Background(), jobID, dev, "first")
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), jobID, dev, "second")
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	_, err = svc.Transition(context.Background(), jobID, poster.ID, EventFill)
	require.NoError(t, err)
	other := store.addProfile(8, "other")
	_, err = svc.Apply(context.Background(), jobID, other, "")
	assert.ErrorIs(t, err, ErrJobNotOpen)
}

func TestApplications_PosterOnly(t *testing.T) {
	svc, store, _, _, poster, jobID := setupApplications(t)
	dev := store.addProfile(7, "dev")
	_, err := svc.Apply(context.Background(), jobID, dev, "hello")
	require.NoError(t, err)

	_, err = svc.Applications(context.Background(), jobID, dev.ID)
	assert.ErrorIs(t, err, ErrNotPoster)

	_, err = svc.Applications(context.Background(), uuid.New(), poster.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	apps, err := svc.Applications(context.Background(), jobID, poster.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "hello", apps[0].Message)
}
