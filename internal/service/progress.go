package service

// Stage is a step of the upload sequence.
type Stage string

const (
	StageReceived    Stage = "received"
	StageStaged      Stage = "staged"
	StageBlobWritten Stage = "blob_written"
	StageIndexed     Stage = "indexed"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// ProgressEvent reports that an upload reached Stage. Err is set only for StageFailed.
type ProgressEvent struct {
	Stage       Stage
	FileID      string
	BytesStaged int64
	Err         error
}

type uploadOptions struct {
	progress chan<- ProgressEvent
}

// UploadOption customises a single Upload call.
type UploadOption func(*uploadOptions)

// WithProgress subscribes ch to the upload's progress events.
// Sends never block: events are dropped when ch is full. Upload closes ch before returning.
func WithProgress(ch chan<- ProgressEvent) UploadOption {
	return func(o *uploadOptions) {
		o.progress = ch
	}
}

type progress struct {
	ch     chan<- ProgressEvent
	fileID string
	staged int64
}

func (p *progress) emit(stage Stage, err error) {
	if p.ch == nil {
		return
	}
	select {
	case p.ch <- ProgressEvent{Stage: stage, FileID: p.fileID, BytesStaged: p.staged, Err: err}:
	default:
	}
}

func (p *progress) close() {
	if p.ch != nil {
		close(p.ch)
	}
}
