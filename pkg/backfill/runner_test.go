package backfill

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"genstudio-be/internal/model"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/pkg/testdb"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/blob"
	"genstudio-be/pkg/ledgerevents"
	"genstudio-be/pkg/reconcile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func seedCreation(t *testing.T, db *gorm.DB, userID, prompt, sessionID, creationType string, at time.Time) uuid.UUID {
	t.Helper()
	c := model.Creation{
		Id:             uuid.New(),
		UserId:         userID,
		Prompt:         prompt,
		InputImageUrls: datatypes.JSON("[]"),
		OutputImageUrl: "/uploads/x.png",
		Status:         "SUCCESS",
		SessionId:      sessionID,
		CreationType:   creationType,
		CreatedAt:      at,
	}
	require.NoError(t, db.Create(&c).Error)
	return c.Id
}

func loadAll(t *testing.T, db *gorm.DB) map[uuid.UUID]model.Creation {
	t.Helper()
	var rows []model.Creation
	require.NoError(t, db.Find(&rows).Error)
	out := make(map[uuid.UUID]model.Creation, len(rows))
	for _, r := range rows {
		out[r.Id] = r
	}
	return out
}

func TestRunner_RunTwiceIsStructurallyIdempotent(t *testing.T) {
	db := testdb.New(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sheet := seedCreation(t, db, "u1", "Horizontal character sheet of Ava", "s1", "standard", base)
	portrait := seedCreation(t, db, "u1", "Digital human portrait, best quality", "s1", "standard", base.Add(time.Minute))
	plain := seedCreation(t, db, "u2", "a mountain lake", "", "digital_human", base)
	grid := seedCreation(t, db, "u2", "2x2 grid image", "s9", "standard", base.Add(time.Hour))

	runner := NewRunner(
		unitofwork.NewRepositoryFactory(db),
		reconcile.NewClassifier(nil),
		logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log")),
	)

	var previous map[uuid.UUID]model.Creation
	for run := 0; run < 2; run++ {
		report, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, report.TotalProcessed)
		// Each record is its own session, so no standard record shares one with an extraction.
		assert.Zero(t, report.UpgradedToDigitalHuman)
		assert.Equal(t, 2, report.ExtractionSessions)

		rows := loadAll(t, db)
		sessions := map[string]struct{}{}
		for _, r := range rows {
			_, dup := sessions[r.SessionId]
			assert.False(t, dup, "session ids must be unique per record")
			sessions[r.SessionId] = struct{}{}
		}

		assert.Equal(t, "extraction", rows[sheet].CreationType)
		assert.Equal(t, "standard", rows[portrait].CreationType)
		assert.Equal(t, "standard", rows[plain].CreationType)
		assert.Equal(t, "extraction", rows[grid].CreationType)

		if previous != nil {
			for id, r := range rows {
				assert.Equal(t, previous[id].CreationType, r.CreationType)
				assert.NotEqual(t, previous[id].SessionId, r.SessionId)
			}
		}
		previous = rows
	}
}

func TestRunner_EmptyLibrary(t *testing.T) {
	db := testdb.New(t)
	runner := NewRunner(
		unitofwork.NewRepositoryFactory(db),
		reconcile.NewClassifier(nil),
		logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log")),
	)

	report, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.TotalProcessed)
}

func TestRunner_KeepsTypeDerivedFromEchoedPrompt(t *testing.T) {
	db := testdb.New(t)
	dir := t.TempDir()
	log := logger.NewFileLogger(filepath.Join(dir, "app.log"))
	store, err := blob.NewLocalStore(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)
	factory := unitofwork.NewRepositoryFactory(db)
	classifier := reconcile.NewClassifier(nil)

	rec := reconcile.NewReconciler(factory, store, classifier, ledgerevents.NewNatsPublisher(nil, log), log)
	out, err := rec.Reconcile(context.Background(), reconcile.Input{
		UserID: "u1",
		Meta:   reconcile.RequestMeta{Prompt: "Ava"},
		Result: map[string]interface{}{
			"image_data": "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=",
			"prompt":     "Character reference sheet of Ava",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "extraction", string(out.Creation.CreationType))

	_, err = NewRunner(factory, classifier, log).Run(context.Background())
	require.NoError(t, err)

	rows := loadAll(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, "extraction", rows[out.Creation.Id].CreationType)
	assert.Equal(t, "Character reference sheet of Ava", rows[out.Creation.Id].Prompt)
}
