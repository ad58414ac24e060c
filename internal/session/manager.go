package session

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/coords-visualizer/backend/internal/export"
	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/parser"
	"github.com/google/uuid"
)

// DefaultMaxSessions limits retained sessions when Settings leaves it unset.
const DefaultMaxSessions = 20

// StatusRecorder receives file status transitions. storage.Store satisfies it.
type StatusRecorder interface {
	SetStatus(id string, status string) error
}

// Settings configure how the manager converts files.
type Settings struct {
	Options        parser.Options
	ParserName     string // empty = auto-detect per file
	Properties     models.ShapeProperties
	DropDegenerate bool
	MaxSessions    int
}

// Request describes one conversion.
type Request struct {
	FileID     string
	FilePath   string
	ParserName string                  // overrides Settings.ParserName
	StyleID    string                  // informational, echoed in the session
	Properties *models.ShapeProperties // overrides Settings.Properties
}

// Manager handles conversion sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *parser.Registry
	settings Settings
	recorder StatusRecorder
}

// SessionState holds the session metadata and its export.
type SessionState struct {
	Session      *models.ConvertSession
	Drawing      *models.Drawing
	Exporter     *export.Exporter
	Result       []byte // compact JSON export
	LastAccessed time.Time
}

// NewManager creates a new session manager.
func NewManager(settings Settings) *Manager {
	if settings.MaxSessions <= 0 {
		settings.MaxSessions = DefaultMaxSessions
	}
	if settings.Properties == (models.ShapeProperties{}) {
		settings.Properties = models.DefaultShapeProperties
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: parser.NewRegistry(settings.Options),
		settings: settings,
	}
}

// SetStatusRecorder makes the manager report file status changes.
func (m *Manager) SetStatusRecorder(r StatusRecorder) {
	m.recorder = r
}

// ParserNames lists the parsers a request may name.
func (m *Manager) ParserNames() []string {
	return m.registry.Names()
}

func (m *Manager) exporter(props *models.ShapeProperties) *export.Exporter {
	e := export.New()
	e.Properties = m.settings.Properties
	if props != nil {
		e.Properties = *props
	}
	if m.settings.DropDegenerate {
		e.Degenerate = export.DegenerateDrop
	}
	return e
}

func (m *Manager) parserFor(name, filePath string) (parser.Parser, error) {
	if name == "" {
		name = m.settings.ParserName
	}
	if name != "" {
		return m.registry.GetParserByName(name)
	}
	return m.registry.FindParser(filePath)
}

// StartSession begins converting a stored file in the background.
func (m *Manager) StartSession(req Request) (*models.ConvertSession, error) {
	p, err := m.parserFor(req.ParserName, req.FilePath)
	if err != nil {
		return nil, err
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	session := models.NewConvertSession(sessionID, req.FileID)
	session.Status = models.SessionStatusConverting
	session.ParserName = p.Name()
	session.StyleID = req.StyleID
	session.StartTime = time.Now().UnixMilli()

	state := &SessionState{
		Session:      session,
		Exporter:     m.exporter(req.Properties),
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	m.mu.Unlock()

	m.recordStatus(req.FileID, "converting")

	go m.runConvert(sessionID, req, p, state.Exporter)

	snapshot := *session
	return &snapshot, nil
}

func (m *Manager) runConvert(sessionID string, req Request, p parser.Parser, exp *export.Exporter) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Convert %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.updateSessionError(sessionID, req.FileID, fmt.Sprintf("conversion panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Convert %s] Starting %s conversion of %s\n", sessionID[:8], p.Name(), req.FilePath)

	progressCb := func(lines int, bytesRead, totalBytes int64) {
		var progress float64
		if totalBytes > 0 {
			progress = float64(bytesRead) * 90.0 / float64(totalBytes)
		}
		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = progress
		}
		m.mu.Unlock()
	}

	drawing, warnings, err := p.ParseWithProgress(req.FilePath, progressCb)
	if err != nil {
		fmt.Printf("[Convert %s] ERROR: parse failed: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, req.FileID, err.Error())
		return
	}

	result, err := exp.JSON(drawing)
	if err != nil {
		fmt.Printf("[Convert %s] ERROR: export failed: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, req.FileID, err.Error())
		return
	}

	summary := export.Summarize(drawing)
	elapsed := time.Since(start)

	m.recordStatus(req.FileID, "converted")

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Drawing = drawing
		state.Result = result
		s := state.Session
		s.Status = models.SessionStatusComplete
		s.Progress = 100
		s.PointCount = summary.PointCount
		s.ShapeCount = summary.ShapeCount
		s.ShapeTypes = summary.ShapeTypes
		s.ProcessingTimeMs = elapsed.Milliseconds()
		s.EndTime = time.Now().UnixMilli()
		for _, w := range warnings {
			s.Warnings = append(s.Warnings, *w)
		}
	}
	m.mu.Unlock()

	fmt.Printf("[Convert %s] Complete: %d points, %d shapes, %d warnings in %v\n",
		sessionID[:8], summary.PointCount, summary.ShapeCount, len(warnings), elapsed.Round(time.Millisecond))
}

// ConvertResult is the outcome of a synchronous conversion.
type ConvertResult struct {
	JSON     []byte
	Drawing  *models.Drawing
	Summary  export.Summary
	Warnings []*models.ParseError
}

// ConvertReader converts an in-memory source without creating a session.
func (m *Manager) ConvertReader(r io.Reader, parserName string, props *models.ShapeProperties) (*ConvertResult, error) {
	if parserName == "" {
		parserName = m.settings.ParserName
	}
	if parserName == "" {
		parserName = "coords"
	}
	p, err := m.registry.GetParserByName(parserName)
	if err != nil {
		return nil, err
	}

	drawing, warnings, err := p.ParseReader(r)
	if err != nil {
		return nil, err
	}

	data, err := m.exporter(props).JSON(drawing)
	if err != nil {
		return nil, err
	}

	return &ConvertResult{
		JSON:     data,
		Drawing:  drawing,
		Summary:  export.Summarize(drawing),
		Warnings: warnings,
	}, nil
}

func (m *Manager) recordStatus(fileID, status string) {
	if m.recorder == nil || fileID == "" {
		return
	}
	if err := m.recorder.SetStatus(fileID, status); err != nil {
		fmt.Printf("[Manager] Failed to record status %q for file %s: %v\n", status, fileID, err)
	}
}

func (m *Manager) updateSessionError(sessionID, fileID, reason string) {
	m.recordStatus(fileID, "error")

	m.mu.Lock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Status = models.SessionStatusError
		state.Session.Error = reason
		state.Session.EndTime = time.Now().UnixMilli()
	}
	m.mu.Unlock()
}

// cleanupOldSessionsIfNeeded evicts the least recently used finished sessions
// once the session limit is reached.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.settings.MaxSessions {
		return
	}

	var finished []string
	for id, state := range m.sessions {
		if isFinished(state.Session.Status) {
			finished = append(finished, id)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return m.sessions[finished[i]].LastAccessed.Before(m.sessions[finished[j]].LastAccessed)
	})

	toFree := len(m.sessions) - m.settings.MaxSessions + 1
	for i := 0; i < toFree && i < len(finished); i++ {
		delete(m.sessions, finished[i])
		fmt.Printf("[Manager] Cleaned up old session %s to stay under limit\n", finished[i][:8])
	}
}

// CleanupOldSessions removes finished sessions not accessed within maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, state := range m.sessions {
		if !isFinished(state.Session.Status) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
				id[:8], time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}

func isFinished(status models.SessionStatus) bool {
	return status == models.SessionStatusComplete || status == models.SessionStatusError
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(id string) (*models.ConvertSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.Session
	snapshot.Warnings = append([]models.ParseError(nil), state.Session.Warnings...)
	return &snapshot, true
}

// TouchSession marks a session as recently used.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetResult returns the JSON export of a completed session.
func (m *Manager) GetResult(id string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok || state.Session.Status != models.SessionStatusComplete {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Result, true
}

// GetResultMsgpack encodes the export of a completed session as msgpack.
func (m *Manager) GetResultMsgpack(id string) ([]byte, bool, error) {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if !ok || state.Session.Status != models.SessionStatusComplete {
		m.mu.Unlock()
		return nil, false, nil
	}
	state.LastAccessed = time.Now()
	drawing, exp := state.Drawing, state.Exporter
	m.mu.Unlock()

	data, err := exp.Msgpack(drawing)
	return data, true, err
}

// DeleteSession removes a session and its result.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// DeleteSessionsForFile removes every session converting the given file.
func (m *Manager) DeleteSessionsForFile(fileID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, state := range m.sessions {
		if state.Session.FileID == fileID {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
