package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.Current(ctx, KindPackage, "Google")
	assert.ErrorIs(t, err, errNotOpened)
	_, err = store.Supersede(ctx, Record{Kind: KindPackage, Name: "Google"})
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, store.RecordEvent(ctx, Event{}), errNotOpened)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Supersede(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	current, err := store.Current(ctx, KindPackage, "Google")
	require.NoError(t, err)
	assert.Nil(t, current)

	first, err := store.Supersede(ctx, Record{
		Kind: KindPackage, Name: "Google", Version: "v0.6.0",
		Origin: "https://example.com/Google.zip", Checksum: "aaa", InstalledAt: base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := store.Supersede(ctx, Record{
		Kind: KindPackage, Name: "Google", Version: "v0.7.0",
		Origin: "https://example.com/Google.zip", Checksum: "bbb", InstalledAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	current, err = store.Current(ctx, KindPackage, "Google")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, "v0.7.0", current.Version)
	assert.Nil(t, current.SupersededAt)

	history, err := store.History(ctx, KindPackage, "Google")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	require.NotNil(t, history[1].SupersededAt)
	assert.True(t, history[1].SupersededAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, second.ID, history[1].SupersededBy)
}

func TestSQLiteStore_Installed(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for _, rec := range []Record{
		{Kind: KindPackage, Name: "write-good", Version: "v0.4.0"},
		{Kind: KindPackage, Name: "Google", Version: "v0.6.0"},
		{Kind: KindBinary, Name: "vale", Version: "3.9.0"},
		{Kind: KindPackage, Name: "Google", Version: "v0.7.0"},
	} {
		_, err := store.Supersede(ctx, rec)
		require.NoError(t, err)
	}

	pkgs, err := store.Installed(ctx, KindPackage)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "Google", pkgs[0].Name)
	assert.Equal(t, "v0.7.0", pkgs[0].Version)
	assert.Equal(t, "write-good", pkgs[1].Name)

	bins, err := store.Installed(ctx, KindBinary)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, "3.9.0", bins[0].Version)
}

func TestSQLiteStore_Events(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordEvent(ctx, Event{
		Op: "install", Ref: "Google", Status: StatusSucceeded,
		StartedAt: base, FinishedAt: base.Add(time.Second),
	}))
	require.NoError(t, store.RecordEvent(ctx, Event{
		Op: "install", Ref: "Nope", Status: StatusFailed, Error: "transfer failed",
		StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute),
	}))

	events, err := store.Events(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Nope", events[0].Ref)
	assert.Equal(t, "transfer failed", events[0].Error)
	assert.Equal(t, StatusSucceeded, events[1].Status)
	assert.Empty(t, events[1].Error)

	events, err = store.Events(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteStore_SupersedeFailures(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("locked"))
			},
			wantErr: "failed to begin transaction",
		},
		{
			name: "insert fails rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE packages SET superseded_at").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO packages").WillReturnError(errors.New("constraint failed"))
				mock.ExpectRollback()
			},
			wantErr: "failed to record package Google",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE packages SET superseded_at").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO packages").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("UPDATE packages SET superseded_by").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit().WillReturnError(errors.New("disk full"))
			},
			wantErr: "failed to commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setupMock(mock)
			store := NewWithDB(db, nil)

			_, err = store.Supersede(context.Background(), Record{Kind: KindPackage, Name: "Google", Version: "v1"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
