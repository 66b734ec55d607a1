package mocks

import (
	"context"

	"filevault/internal/model"
	"filevault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, id model.Identity, f model.UploadedFile, _ ...service.UploadOption) (*service.UploadResult, error) {
	args := m.Called(ctx, id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, id model.Identity) ([]model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileService) GetDownload(ctx context.Context, id model.Identity, fileID string) (*service.DownloadResult, error) {
	args := m.Called(ctx, id, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadResult), args.Error(1)
}

func (m *MockFileService) Delete(ctx context.Context, id model.Identity, fileID string) error {
	args := m.Called(ctx, id, fileID)
	return args.Error(0)
}
