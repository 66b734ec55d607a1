package mocks

import (
	"context"

	"filevault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Put(ctx context.Context, rec *model.FileRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockFileRepository) Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	args := m.Called(ctx, ownerID, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.FileRecord, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileRepository) Delete(ctx context.Context, ownerID, fileID string) error {
	args := m.Called(ctx, ownerID, fileID)
	return args.Error(0)
}

func (m *MockFileRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
