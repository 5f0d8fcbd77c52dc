package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalint/internal/apperr"
	"datalint/internal/database"
)

// fakeStore records batches in memory and injects failures.
type fakeStore struct {
	database.Store // unused methods panic

	failBeginAt  int // 1-based batch number, 0 = never
	failCommitAt int
	failRow      func(rec *database.ImageRecord) error

	begun     int
	committed [][]int64
	nextID    int64
}

type fakeBatch struct {
	store *fakeStore
	ids   []int64
}

func (s *fakeStore) BeginBatch(context.Context) (database.Batch, error) {
	s.begun++
	if s.begun == s.failBeginAt {
		return nil, errors.New("database is locked")
	}
	return &fakeBatch{store: s}, nil
}

func (b *fakeBatch) InsertImage(_ context.Context, rec *database.ImageRecord) (int64, error) {
	if b.store.failRow != nil {
		if err := b.store.failRow(rec); err != nil {
			return 0, err
		}
	}
	b.store.nextID++
	rec.ID = b.store.nextID
	b.ids = append(b.ids, rec.ID)
	return rec.ID, nil
}

func (b *fakeBatch) Commit() error {
	if b.store.begun == b.store.failCommitAt {
		return errors.New("disk I/O error")
	}
	b.store.committed = append(b.store.committed, b.ids)
	return nil
}

func (b *fakeBatch) Rollback() error { return nil }

func makeRecords(n int) []database.ImageRecord {
	recs := make([]database.ImageRecord, n)
	for i := range recs {
		recs[i] = database.ImageRecord{
			Name:         fmt.Sprintf("img%02d", i),
			Filename:     fmt.Sprintf("img%02d.png", i),
			Extension:    "png",
			RelativePath: "train",
			Split:        database.SplitTrain,
			FileHash:     fmt.Sprintf("%016x", i),
		}
	}
	return recs
}

func TestWriterBatchesContiguously(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	records := makeRecords(25)

	res, err := NewWriter(store, 10).Write(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 25, res.Inserted)
	assert.Empty(t, res.RowErrors)
	require.Len(t, store.committed, 3)
	assert.Len(t, store.committed[0], 10)
	assert.Len(t, store.committed[1], 10)
	assert.Len(t, store.committed[2], 5)

	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.ID, "record %d keeps input order", i)
	}
}

func TestWriterDefaultBatchSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBatchSize, NewWriter(&fakeStore{}, 0).BatchSize())
	assert.Equal(t, DefaultBatchSize, NewWriter(&fakeStore{}, -3).BatchSize())
	assert.Equal(t, 7, NewWriter(&fakeStore{}, 7).BatchSize())
}

func TestWriterEmptyInput(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	res, err := NewWriter(store, 10).Write(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Batches)
	assert.Zero(t, store.begun, "no transaction for an empty write")
}

func TestWriterCollectsRowErrors(t *testing.T) {
	t.Parallel()

	dup := apperr.New(apperr.KindDuplicate, "insert image", "", errors.New("UNIQUE constraint failed"))
	store := &fakeStore{failRow: func(rec *database.ImageRecord) error {
		switch rec.Name {
		case "img03", "img07", "img08", "img09", "img11", "img12", "img13":
			return dup
		}
		return nil
	}}

	res, err := NewWriter(store, 10).Write(context.Background(), makeRecords(15))
	require.NoError(t, err, "row failures are not fatal")

	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 8, res.Inserted)
	require.Len(t, res.RowErrors, 7)
	assert.Equal(t, 3, res.RowErrors[0].Index)
	assert.Equal(t, "train/img03.png", res.RowErrors[0].Path)
	assert.ErrorIs(t, res.RowErrors[0], apperr.ErrDuplicate)
	assert.Equal(t, 13, res.RowErrors[6].Index)
}

func TestWriterBeginFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failBeginAt: 2}
	res, err := NewWriter(store, 10).Write(context.Background(), makeRecords(25))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, 1, res.Batches, "first batch stays committed")
	assert.Equal(t, 10, res.Inserted)
	assert.Equal(t, 2, store.begun, "no batch attempted after the failure")
}

func TestWriterCommitFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failCommitAt: 2}
	records := makeRecords(25)
	res, err := NewWriter(store, 10).Write(context.Background(), records)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, 10, res.Inserted)
	assert.Len(t, store.committed, 1)
	assert.Zero(t, records[15].ID, "records of the failed batch have no id")
	assert.NotZero(t, records[5].ID)
}

func TestWriterStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeStore{failRow: func(rec *database.ImageRecord) error {
		if rec.Name == "img09" {
			cancel()
		}
		return nil
	}}

	res, err := NewWriter(store, 10).Write(ctx, makeRecords(30))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Batches, "the batch in flight completes")
}

func TestRowErrorMessage(t *testing.T) {
	t.Parallel()

	re := RowError{Index: 4, Path: "val/x.png", Err: errors.New("boom")}
	assert.Equal(t, "record 4 (val/x.png): boom", re.Error())
}
