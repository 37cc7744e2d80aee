package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/model"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/pkg/testdb"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/blob"
	"genstudio-be/pkg/events"
	"genstudio-be/pkg/ledgerevents"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type reconcileFixture struct {
	db       *gorm.DB
	rec      *Reconciler
	recorder *ledgerevents.Recorder
	clock    time.Time
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	db := testdb.New(t)
	dir := t.TempDir()
	store, err := blob.NewLocalStore(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)
	log := logger.NewFileLogger(filepath.Join(dir, "app.log"))
	recorder := ledgerevents.NewRecorder()

	f := &reconcileFixture{
		db:       db,
		recorder: recorder,
		clock:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.rec = NewReconciler(
		unitofwork.NewRepositoryFactory(db),
		store,
		NewClassifier(nil),
		ledgerevents.NewNatsPublisher(recorder, log),
		log,
	)
	f.rec.now = func() time.Time { return f.clock }
	return f
}

func (f *reconcileFixture) creations(t *testing.T) []model.Creation {
	t.Helper()
	var rows []model.Creation
	require.NoError(t, f.db.Order("created_at asc").Find(&rows).Error)
	return rows
}

func TestReconcile_SyncSessionWindow(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	result := map[string]interface{}{"image_data": pngDataURL}

	first, err := f.rec.Reconcile(ctx, Input{UserID: "u1", CorrelationID: "tx-1", Meta: RequestMeta{Prompt: "a"}, Result: result})
	require.NoError(t, err)
	require.True(t, first.Created)

	f.clock = f.clock.Add(3 * time.Minute)
	second, err := f.rec.Reconcile(ctx, Input{UserID: "u1", CorrelationID: "tx-2", Meta: RequestMeta{Prompt: "b"}, Result: result})
	require.NoError(t, err)
	assert.Equal(t, first.Creation.SessionId, second.Creation.SessionId)

	f.clock = f.clock.Add(6 * time.Minute)
	third, err := f.rec.Reconcile(ctx, Input{UserID: "u1", CorrelationID: "tx-3", Meta: RequestMeta{Prompt: "c"}, Result: result})
	require.NoError(t, err)
	assert.NotEqual(t, first.Creation.SessionId, third.Creation.SessionId)

	other, err := f.rec.Reconcile(ctx, Input{UserID: "u2", CorrelationID: "tx-4", Meta: RequestMeta{Prompt: "d"}, Result: result})
	require.NoError(t, err)
	assert.NotEqual(t, third.Creation.SessionId, other.Creation.SessionId)

	assert.Len(t, f.creations(t), 4)
	assert.Len(t, f.recorder.OfType(events.TypeCreationSaved), 4)
}

func TestReconcile_PersistsBlobsAndMetadata(t *testing.T) {
	f := newReconcileFixture(t)
	negative := "blurry"
	guidance := 7.5

	out, err := f.rec.Reconcile(context.Background(), Input{
		UserID: "u1",
		Meta: RequestMeta{
			Prompt:         "character reference sheet of a knight",
			NegativePrompt: &negative,
			AspectRatio:    "16:9",
			ImageSize:      "2K",
			GuidanceScale:  &guidance,
			Images:         []string{pngDataURL, "/uploads/already.png"},
			ImageURL:       "https://cdn.example.com/ref.jpg",
		},
		Result: map[string]interface{}{"image_data": pngDataURL},
	})
	require.NoError(t, err)

	rows := f.creations(t)
	require.Len(t, rows, 1)
	c := out.Creation
	assert.Equal(t, rows[0].Id, c.Id)
	assert.Equal(t, entity.CreationTypeExtraction, c.CreationType)
	assert.Equal(t, entity.CreationStatusSuccess, c.Status)
	assert.Equal(t, "16:9", c.AspectRatio)
	assert.Equal(t, "blurry", *c.Negative)
	assert.Equal(t, 7.5, *c.Guidance)
	assert.Regexp(t, `^/uploads/.+\.png$`, c.OutputImageUrl)
	require.Len(t, c.InputImageUrls, 3)
	assert.Regexp(t, `^/uploads/.+\.png$`, c.InputImageUrls[0])
	assert.Equal(t, "/uploads/already.png", c.InputImageUrls[1])
	assert.Equal(t, "https://cdn.example.com/ref.jpg", c.InputImageUrls[2])
}

func TestReconcile_SyncDefersDigitalHuman(t *testing.T) {
	f := newReconcileFixture(t)

	out, err := f.rec.Reconcile(context.Background(), Input{
		UserID: "u1",
		Meta:   RequestMeta{Prompt: "digital human, best quality"},
		Result: map[string]interface{}{"image_data": pngDataURL},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.CreationTypeStandard, out.Creation.CreationType)
}

func TestReconcile_AsyncIsIdempotentPerTask(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()
	in := Input{
		UserID: "u1",
		TaskID: "task-42",
		Mode:   ModeAsync,
		Meta:   RequestMeta{Prompt: "digital human"},
		Result: map[string]interface{}{"image_data": pngDataURL},
	}

	first, err := f.rec.Reconcile(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "task-42", first.Creation.SessionId)
	assert.Equal(t, entity.CreationTypeDigitalHuman, first.Creation.CreationType)

	for i := 0; i < 3; i++ {
		again, err := f.rec.Reconcile(ctx, in)
		require.NoError(t, err)
		assert.False(t, again.Created)
		assert.Equal(t, first.Creation.Id, again.Creation.Id)
	}

	assert.Len(t, f.creations(t), 1)
	assert.Len(t, f.recorder.OfType(events.TypeCreationSaved), 1)
}

func TestReconcile_NoImage(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.rec.Reconcile(context.Background(), Input{UserID: "u1", Result: map[string]interface{}{"status": "ok"}})

	assert.ErrorIs(t, err, ErrNoImage)
	assert.Empty(t, f.creations(t))
}

func TestReconcile_BadImageLeavesNoRecord(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.rec.Reconcile(context.Background(), Input{
		UserID: "u1",
		Result: map[string]interface{}{"image_data": "data:image/png;base64,%%%"},
	})

	assert.Error(t, err)
	assert.Empty(t, f.creations(t))
}
