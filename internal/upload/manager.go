// Package upload decompresses gzip-compressed coordinate uploads in the background.
package upload

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/google/uuid"
)

// Status represents the upload processing status.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusDecompressing Status = "decompressing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// ErrTooLarge is returned when a file decompresses past the configured limit.
var ErrTooLarge = errors.New("decompressed file exceeds size limit")

// Job represents an async decompression job.
type Job struct {
	ID             string           `json:"id"`
	SourceID       string           `json:"sourceId"` // stored compressed file
	FileName       string           `json:"fileName"`
	CompressedSize int64            `json:"compressedSize"`
	Status         Status           `json:"status"`
	Progress       float64          `json:"progress"`
	Stage          string           `json:"stage"`
	FileInfo       *models.FileInfo `json:"fileInfo,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}

// Store defines the interface needed from storage layer.
type Store interface {
	Save(name string, kind models.FileKind, r io.Reader) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
	Delete(id string) error
}

// Manager handles async upload processing.
type Manager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	store   Store
	maxSize int64 // decompressed bytes, 0 = unlimited
}

// NewManager creates a new upload processing manager.
func NewManager(store Store, maxSize int64) *Manager {
	return &Manager{
		jobs:    make(map[string]*Job),
		store:   store,
		maxSize: maxSize,
	}
}

// StartJob begins decompressing a stored gzip file. The compressed source is
// removed once the job finishes, whatever the outcome.
func (m *Manager) StartJob(source *models.FileInfo) *Job {
	job := &Job{
		ID:             uuid.New().String(),
		SourceID:       source.ID,
		FileName:       strings.TrimSuffix(source.Name, ".gz"),
		CompressedSize: source.Size,
		Status:         StatusProcessing,
		Stage:          "preparing",
		CreatedAt:      time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.processJob(job)

	snapshot := *job
	return &snapshot
}

// GetJob returns a snapshot of a job.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

func (m *Manager) processJob(job *Job) {
	fmt.Printf("[UploadJob %s] Decompressing %s (%d bytes)\n", job.ID[:8], job.FileName, job.CompressedSize)

	defer func() {
		if err := m.store.Delete(job.SourceID); err != nil {
			fmt.Printf("[UploadJob %s] Warning: failed to remove compressed source: %v\n", job.ID[:8], err)
		}
	}()

	info, err := m.decompress(job)
	if err != nil {
		m.markJobError(job, fmt.Sprintf("failed to decompress: %v", err))
		return
	}

	m.markJobComplete(job, info)
	fmt.Printf("[UploadJob %s] Processing complete: %s (%d bytes)\n", job.ID[:8], info.ID, info.Size)
}

func (m *Manager) decompress(job *Job) (*models.FileInfo, error) {
	path, err := m.store.GetFilePath(job.SourceID)
	if err != nil {
		return nil, err
	}

	compressedFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer compressedFile.Close()

	counted := &progressReader{r: compressedFile, onRead: func(n int64) {
		if job.CompressedSize > 0 {
			m.updateJobStatus(job, StatusDecompressing, "decompressing file", float64(n)*100/float64(job.CompressedSize))
		}
	}}

	reader, err := gzip.NewReader(counted)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var src io.Reader = reader
	if m.maxSize > 0 {
		src = &limitReader{r: reader, remaining: m.maxSize}
	}

	return m.store.Save(job.FileName, models.FileKindCoords, src)
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string, stageProgress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stageProgress > 99 {
		stageProgress = 99
	}
	job.Status = status
	job.Stage = stage
	job.Progress = stageProgress
}

func (m *Manager) markJobComplete(job *Job, info *models.FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Stage = "complete"
	job.Progress = 100
	job.FileInfo = info
	now := time.Now()
	job.CompletedAt = &now
}

func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	fmt.Printf("[UploadJob %s] Error: %s\n", job.ID[:8], errMsg)
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

type progressReader struct {
	r      io.Reader
	read   int64
	onRead func(total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.onRead(p.read)
	}
	return n, err
}

type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(b []byte) (int, error) {
	n, err := l.r.Read(b)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
