package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prompt-lab/plab/internal/assets"
	"github.com/prompt-lab/plab/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "plab.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	rec := Record{
		ID:   1693400000000,
		Name: "solar system",
		History: []session.VersionRecord{
			{Prompt: "P1", Analysis: "a1", Changes: "c1", Instructions: "i1", Document: "<p>v1</p>"},
			{Prompt: "P2", Analysis: "a2", Changes: "c2", Instructions: "i2", Document: "<p>v2</p>"},
		},
		Assets: []assets.Asset{
			{FileName: "logo.png", Data: []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff}, MimeType: "image/png"},
			{FileName: "data.bin", Data: []byte{0, 1, 2, 3, 254, 255}, MimeType: "application/octet-stream"},
		},
		SavedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Save(rec))

	got, err := db.Get(rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.History, got.History)
	require.Len(t, got.Assets, 2)
	assert.Equal(t, rec.Assets[0].Data, got.Assets[0].Data, "asset payloads are byte-identical")
	assert.Equal(t, rec.Assets[1].Data, got.Assets[1].Data)
	assert.Equal(t, rec.Assets[0].MimeType, got.Assets[0].MimeType)
	assert.True(t, rec.SavedAt.Equal(got.SavedAt))
}

func TestSaveIsUpsertByID(t *testing.T) {
	db := openTestDB(t)

	rec := Record{ID: 7, Name: "first", SavedAt: time.Now()}
	require.NoError(t, db.Save(rec))
	rec.Name = "renamed"
	rec.History = []session.VersionRecord{{Prompt: "P1"}}
	require.NoError(t, db.Save(rec))

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := db.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.Len(t, got.History, 1)
}

func TestGetMissingID(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersBySavedAtDescending(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Save(Record{ID: 1, Name: "oldest", SavedAt: base}))
	require.NoError(t, db.Save(Record{ID: 2, Name: "newest", SavedAt: base.Add(48 * time.Hour)}))
	require.NoError(t, db.Save(Record{ID: 3, Name: "middle", SavedAt: base.Add(24 * time.Hour)}))

	got, err := db.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].Name)
	assert.Equal(t, "middle", got[1].Name)
	assert.Equal(t, "oldest", got[2].Name)
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Save(Record{ID: 5, Name: "x", SavedAt: time.Now()}))

	require.NoError(t, db.Delete(5))
	_, err := db.Get(5)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.Delete(5), ErrNotFound)
}

func TestMalformedAssetSkippedOnLoad(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Save(Record{ID: 9, Name: "broken", SavedAt: time.Now()}))

	// Corrupt the second asset in place; the first must still load.
	_, err := db.db.Exec(
		`UPDATE sessions SET assets = ? WHERE id = 9`,
		`[{"fileName":"ok.txt","data":"aGVsbG8=","type":"text/plain"},{"fileName":"","data":"xx"}]`,
	)
	require.NoError(t, err)

	got, err := db.Get(9)
	require.NoError(t, err)
	require.Len(t, got.Assets, 1)
	assert.Equal(t, "ok.txt", got.Assets[0].FileName)
	assert.Equal(t, []byte("hello"), got.Assets[0].Data)
}
