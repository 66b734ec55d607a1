package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filevault/internal/model"
	"filevault/internal/repository"
	repoMocks "filevault/internal/repository/mocks"
	"filevault/internal/storage"
	storeMocks "filevault/internal/storage/mocks"
)

func TestReconciler_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * time.Hour)

	const (
		orphanID  = "11111111-1111-4111-8111-111111111111"
		youngID   = "22222222-2222-4222-8222-222222222222"
		indexedID = "33333333-3333-4333-8333-333333333333"
		lookupID  = "44444444-4444-4444-8444-444444444444"
		stuckID   = "55555555-5555-4555-8555-555555555555"
		staleID   = "66666666-6666-4666-8666-666666666666"
	)
	objs := []storage.ObjectInfo{
		{Key: model.BlobKey("u1", orphanID, "a.txt"), LastModified: old},
		{Key: model.BlobKey("u1", youngID, "b.txt"), LastModified: now.Add(-time.Minute)},
		{Key: model.BlobKey("u1", indexedID, "c.txt"), LastModified: old},
		{Key: "backups/not-ours.tar", LastModified: old},
		{Key: model.BlobKey("u2", lookupID, "d.txt"), LastModified: old},
		{Key: model.BlobKey("u2", stuckID, "e.txt"), LastModified: old},
		{Key: model.BlobKey("u2", staleID, "old-name.txt"), LastModified: old},
	}

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockFileRepository)
	mStore.On("List", ctx, "").Return(objs, nil)

	mRepo.On("Get", ctx, "u1", orphanID).Return(nil, repository.ErrNotFound)
	mStore.On("Delete", ctx, objs[0].Key).Return(nil).Once()

	mRepo.On("Get", ctx, "u1", indexedID).Return(&model.FileRecord{BlobKey: objs[2].Key}, nil)
	mRepo.On("Get", ctx, "u2", lookupID).Return(nil, errors.New("throttled"))

	mRepo.On("Get", ctx, "u2", stuckID).Return(nil, repository.ErrNotFound)
	mStore.On("Delete", ctx, objs[5].Key).Return(errors.New("denied")).Once()

	// record exists but points at a different blob
	mRepo.On("Get", ctx, "u2", staleID).Return(&model.FileRecord{BlobKey: model.BlobKey("u2", staleID, "new-name.txt")}, nil)
	mStore.On("Delete", ctx, objs[6].Key).Return(nil).Once()

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	r := NewReconciler(mStore, mRepo, time.Minute, time.Hour, nil, m)
	r.now = func() time.Time { return now }

	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 7, Removed: 2, Failed: 2}, res)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.reconcileRemoved))

	mRepo.AssertNotCalled(t, "Get", mock.Anything, "u1", youngID)
	mStore.AssertNotCalled(t, "Delete", mock.Anything, objs[2].Key)
	mStore.AssertNotCalled(t, "Delete", mock.Anything, "backups/not-ours.tar")
	mRepo.AssertExpectations(t)
	mStore.AssertExpectations(t)
}

func TestReconciler_SweepListFailure(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mStore.On("List", mock.Anything, "").Return(nil, errors.New("bucket gone"))

	r := NewReconciler(mStore, new(repoMocks.MockFileRepository), time.Minute, time.Hour, nil, nil)
	_, err := r.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestReconciler_Run(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	swept := make(chan struct{}, 1)
	mStore.On("List", mock.Anything, "").Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	}).Return([]storage.ObjectInfo{}, nil)

	r := NewReconciler(mStore, new(repoMocks.MockFileRepository), 5*time.Millisecond, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler never swept")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}

func TestReconciler_RunDisabled(t *testing.T) {
	r := NewReconciler(new(storeMocks.MockStorage), new(repoMocks.MockFileRepository), 0, 0, nil, nil)
	r.Run(context.Background())
}
