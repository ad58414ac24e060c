package models

// SessionStatus represents the status of a conversion session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusConverting SessionStatus = "converting"
	SessionStatusComplete   SessionStatus = "complete"
	SessionStatusError      SessionStatus = "error"
)

// ConvertSession represents a file conversion session.
type ConvertSession struct {
	ID               string         `json:"id"`
	FileID           string         `json:"fileId"`
	StyleID          string         `json:"styleId,omitempty"`
	Status           SessionStatus  `json:"status"`
	Progress         float64        `json:"progress"` // 0-100
	ParserName       string         `json:"parserName,omitempty"`
	PointCount       int            `json:"pointCount,omitempty"`
	ShapeCount       int            `json:"shapeCount,omitempty"`
	ShapeTypes       map[string]int `json:"shapeTypes,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs,omitempty"`
	StartTime        int64          `json:"startTime,omitempty"` // Unix ms
	EndTime          int64          `json:"endTime,omitempty"`   // Unix ms
	Error            string         `json:"error,omitempty"`
	Warnings         []ParseError   `json:"warnings,omitempty"`
}

// ParseError describes a problem found on a single input line.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewConvertSession creates a new ConvertSession in pending status.
func NewConvertSession(id, fileID string) *ConvertSession {
	return &ConvertSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
		Warnings: make([]ParseError, 0),
	}
}
