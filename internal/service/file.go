package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"filevault/internal/auth"
	"filevault/internal/model"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrFileRequired = fmt.Errorf("%w: file is required", ErrValidation)
	ErrIDRequired   = fmt.Errorf("%w: file id is required", ErrValidation)
	ErrNotFound     = errors.New("file not found")
	ErrUpstream     = errors.New("upstream store failure")
)

// UpstreamError reports a blob or metadata backend failure at Step.
// It matches both ErrUpstream and the underlying cause with errors.Is.
type UpstreamError struct {
	Step string
	Err  error
}

func (e *UpstreamError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

func upstream(step string, err error) error {
	return &UpstreamError{Step: step, Err: err}
}

// UploadResult is returned after a file has been stored and indexed.
type UploadResult struct {
	FileID  string
	FileURL string
	Record  *model.FileRecord
}

// DownloadResult carries a presigned URL for one file.
type DownloadResult struct {
	URL         string
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// FileService defines the use cases of the storage gateway. Every call is scoped to the owner
// named by the verified identity; client-supplied owner ids are never consulted.
type FileService interface {
	// Upload stages the payload locally, writes the blob, then writes its metadata record.
	Upload(ctx context.Context, id model.Identity, f model.UploadedFile, opts ...UploadOption) (*UploadResult, error)

	// List returns the caller's file records.
	List(ctx context.Context, id model.Identity) ([]model.FileRecord, error)

	// GetDownload issues a presigned URL for one of the caller's files.
	GetDownload(ctx context.Context, id model.Identity, fileID string) (*DownloadResult, error)

	// Delete removes the blob, then the metadata record, of one of the caller's files.
	Delete(ctx context.Context, id model.Identity, fileID string) error
}

// Options configure the file service.
type Options struct {
	PresignTTL time.Duration
	StagingDir string
	// Compensate deletes the just-written blob when the metadata write fails.
	Compensate bool
}

type fileService struct {
	store   storage.Storage
	repo    repository.FileRepository
	opts    Options
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, repo repository.FileRepository, opts Options, log *zap.Logger, m *Metrics) FileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &fileService{
		store:   store,
		repo:    repo,
		opts:    opts,
		log:     log.Named("file_service"),
		metrics: m,
		now:     time.Now,
	}
}

func (s *fileService) Upload(ctx context.Context, id model.Identity, f model.UploadedFile, opts ...UploadOption) (*UploadResult, error) {
	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := &progress{ch: o.progress}
	defer p.close()

	res, err := s.upload(ctx, id, f, p)
	if err != nil {
		p.emit(StageFailed, err)
		return nil, err
	}
	return res, nil
}

func (s *fileService) upload(ctx context.Context, id model.Identity, f model.UploadedFile, p *progress) (*UploadResult, error) {
	if id.SubjectID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if f.Content == nil {
		return nil, ErrFileRequired
	}
	name := model.SanitizeFilename(f.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	// Once started the sequence runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	fileID := uuid.NewString()
	p.fileID = fileID
	log := s.log.With(zap.String("owner_id", id.SubjectID), zap.String("file_id", fileID))
	p.emit(StageReceived, nil)

	staged, err := stage(s.opts.StagingDir, fileID, f.Content)
	if err != nil {
		return nil, err
	}
	removeStaging := func() {
		if err := staged.Remove(); err != nil {
			log.Warn("remove staging file", zap.String("path", staged.Name()), zap.Error(err))
		}
	}
	defer removeStaging()
	p.staged = staged.Size
	p.emit(StageStaged, nil)

	key := model.BlobKey(id.SubjectID, fileID, name)
	info, err := s.store.Put(ctx, key, staged.File, storage.PutObjectOptions{
		Size:        staged.Size,
		ContentType: mimeType,
		Metadata:    map[string]string{"file-id": fileID},
	})
	if err != nil {
		log.Error("blob write failed", zap.String("blob_key", key), zap.Error(err))
		return nil, upstream("blob put", err)
	}
	p.emit(StageBlobWritten, nil)

	now := s.now().UTC()
	rec := &model.FileRecord{
		OwnerID:      id.SubjectID,
		FileID:       fileID,
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    staged.Size,
		BlobKey:      key,
		BlobURL:      info.Location,
		UploadedAt:   now,
		OwnerEmail:   id.Email,
		LastModified: now,
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		s.handleIndexFailure(ctx, log, key, err)
		return nil, upstream("metadata put", err)
	}
	p.emit(StageIndexed, nil)

	removeStaging()
	p.emit(StageComplete, nil)
	log.Info("file uploaded", zap.String("blob_key", key), zap.Int64("size_bytes", staged.Size))

	return &UploadResult{FileID: fileID, FileURL: info.Location, Record: rec}, nil
}

// handleIndexFailure records the orphan left by a failed metadata write, deleting the blob if configured.
func (s *fileService) handleIndexFailure(ctx context.Context, log *zap.Logger, key string, cause error) {
	log = log.With(zap.String("blob_key", key))
	if s.opts.Compensate {
		err := s.store.Delete(ctx, key)
		if err == nil {
			log.Warn("metadata write failed, blob removed", zap.Error(cause))
			return
		}
		log.Error("compensating blob delete failed", zap.Error(err))
	}
	s.metrics.orphaned(OrphanIndexFailed)
	log.Error("metadata write failed, blob orphaned", zap.Error(cause))
}

func (s *fileService) List(ctx context.Context, id model.Identity) ([]model.FileRecord, error) {
	if id.SubjectID == "" {
		return nil, auth.ErrUnauthenticated
	}
	items, err := s.repo.ListByOwner(ctx, id.SubjectID)
	if err != nil {
		return nil, upstream("metadata query", err)
	}
	if items == nil {
		items = []model.FileRecord{}
	}
	return items, nil
}

func (s *fileService) GetDownload(ctx context.Context, id model.Identity, fileID string) (*DownloadResult, error) {
	rec, err := s.lookup(ctx, id, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.store.PresignGet(ctx, rec.BlobKey, s.opts.PresignTTL, storage.PresignOptions{Filename: rec.OriginalName})
	if err != nil {
		return nil, upstream("presign", err)
	}
	return &DownloadResult{
		URL:         url,
		Filename:    rec.OriginalName,
		ContentType: rec.MimeType,
		ExpiresAt:   s.now().Add(s.opts.PresignTTL).UTC(),
	}, nil
}

// Delete removes the blob first. A failed blob delete does not stop the metadata delete;
// the orphan is counted and left for the reconciliation sweep.
func (s *fileService) Delete(ctx context.Context, id model.Identity, fileID string) error {
	rec, err := s.lookup(ctx, id, fileID)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	log := s.log.With(zap.String("owner_id", rec.OwnerID), zap.String("file_id", rec.FileID))

	if err := s.store.Delete(ctx, rec.BlobKey); err != nil {
		s.metrics.orphaned(OrphanDeleteFailed)
		log.Error("blob delete failed, blob orphaned", zap.String("blob_key", rec.BlobKey), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, rec.OwnerID, rec.FileID); err != nil {
		log.Error("metadata delete failed", zap.Error(err))
		return upstream("metadata delete", err)
	}
	removeStaged(s.opts.StagingDir, rec.FileID, log)

	log.Info("file deleted", zap.String("blob_key", rec.BlobKey))
	return nil
}

// lookup returns the caller's record for fileID. Absent and foreign records both yield ErrNotFound.
func (s *fileService) lookup(ctx context.Context, id model.Identity, fileID string) (*model.FileRecord, error) {
	if id.SubjectID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if fileID == "" {
		return nil, ErrIDRequired
	}
	if _, err := uuid.Parse(fileID); err != nil || len(fileID) != 36 {
		return nil, ErrNotFound
	}

	rec, err := s.repo.Get(ctx, id.SubjectID, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstream("metadata get", err)
	}
	if rec.OwnerID != id.SubjectID {
		return nil, ErrNotFound
	}
	return rec, nil
}
