package telemetry

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/roadwatch/internal/logger"
)

func testSnapshot(detectorID string) *TickSnapshot {
	return &TickSnapshot{
		Timestamp:    time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
		EntityID:     "driver-1",
		DetectorID:   detectorID,
		Status:       "warning",
		Findings:     1,
		AlertEmitted: true,
	}
}

func TestRecordBuffersUntilBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	// BatchTimeout 0 disables the background flusher; flushes happen only
	// on batch-size pressure.
	repo := newRepositoryWithDB(db, Config{BatchSize: 3, BatchTimeout: 0}, logger.Default())

	require.NoError(t, repo.Record(testSnapshot("behavior")))
	require.NoError(t, repo.Record(testSnapshot("fatigue")))
	require.NoError(t, mock.ExpectationsWereMet(), "no writes before the batch fills")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO ticks")
	for _, detectorID := range []string{"behavior", "fatigue", "collision"} {
		prep.ExpectExec().
			WithArgs(int64(1768032000), "driver-1", detectorID, "warning", int64(1), int64(1)).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Record(testSnapshot("collision")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseFlushesPendingBuffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	// A long batch timeout keeps the periodic flusher idle; the shutdown
	// path performs the final flush.
	repo := newRepositoryWithDB(db, Config{BatchSize: 10, BatchTimeout: 3600}, logger.Default())

	require.NoError(t, repo.Record(testSnapshot("behavior")))

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO ticks").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("PRAGMA wal_checkpoint").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	require.NoError(t, repo.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFlushFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newRepositoryWithDB(db, Config{BatchSize: 1, BatchTimeout: 0}, logger.Default())

	mock.ExpectBegin().WillReturnError(assert.AnError)

	err = repo.Record(testSnapshot("behavior"))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateAndUpdateSchemaInitializesFreshDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Fresh database: no schema_versions table yet.
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("schema_versions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_versions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_versions").
		WithArgs(SchemaVersion).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ValidateAndUpdateSchema(db, logger.Default()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateAndUpdateSchemaRejectsNewerVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("schema_versions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(SchemaVersion + 1))

	err = ValidateAndUpdateSchema(db, logger.Default())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(), "disabled telemetry never requires a path")

	cfg.Enabled = true
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg.DBPath = "/tmp/roadwatch-test.db"
	assert.NoError(t, cfg.Validate())
}
