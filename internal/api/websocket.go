package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coords-visualizer/backend/internal/export"
	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/upload"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the convert protocol
const (
	// Client -> Server messages
	MsgTypeConvert = "convert"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// DefaultWSMaxMessageSize caps a single inbound message when no limit is configured.
const DefaultWSMaxMessageSize = 32 * 1024 * 1024

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ConvertPayload carries a whole coordinate file in one message.
type ConvertPayload struct {
	Name     string `json:"name"`
	Data     string `json:"data"`               // Base64 encoded file
	Encoding string `json:"encoding,omitempty"` // "gzip", "none"
	Parser   string `json:"parser,omitempty"`
	StyleID  string `json:"styleId,omitempty"`
}

// WSProgressResponse reports the stage a conversion has reached.
type WSProgressResponse struct {
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage"`
	Message  string  `json:"message,omitempty"`
}

// WSCompleteResponse carries the export and its summary.
type WSCompleteResponse struct {
	Name     string               `json:"name,omitempty"`
	Summary  export.Summary       `json:"summary"`
	Warnings []*models.ParseError `json:"warnings,omitempty"`
	Result   json.RawMessage      `json:"result"`
}

// WSErrorResponse describes a failed request.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler converts files sent over a websocket connection.
type WebSocketHandler struct {
	sessionMgr     SessionManager
	styles         StyleLookup
	upgrader       websocket.Upgrader
	maxMessageSize int64
	maxInflated    int64 // 0 = unlimited
}

// NewWebSocketHandler creates a new websocket convert handler. maxInflated caps
// the decompressed size of gzip payloads; 0 disables the cap.
func NewWebSocketHandler(sessionMgr SessionManager, styles StyleLookup, maxMessageSize, maxInflated int64) *WebSocketHandler {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultWSMaxMessageSize
	}
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		styles:     styles,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMessageSize: maxMessageSize,
		maxInflated:    maxInflated,
	}
}

// HandleWebSocket upgrades the connection and serves the convert protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.maxMessageSize)

	fmt.Println("[WebSocket] Client connected for convert")

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeConvert:
			wsh.handleConvert(ws, msg)
		default:
			wsh.sendError(ws, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	fmt.Println("[WebSocket] Client disconnected")
	return nil
}

func (wsh *WebSocketHandler) handleConvert(ws *websocket.Conn, msg WSMessage) {
	var payload ConvertPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, msg.ID, "Invalid convert payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		wsh.sendError(ws, msg.ID, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	if payload.Encoding == "gzip" {
		wsh.sendProgress(ws, msg.ID, 10, "decompressing", "")
		data, err = decompressGzip(data, wsh.maxInflated)
		if errors.Is(err, upload.ErrTooLarge) {
			wsh.sendError(ws, msg.ID, err.Error(), "TOO_LARGE")
			return
		}
		if err != nil {
			wsh.sendError(ws, msg.ID, "Failed to decompress: "+err.Error(), "DECOMPRESS_ERROR")
			return
		}
	}

	var props *models.ShapeProperties
	if payload.StyleID != "" {
		style, ok := lookupStyle(wsh.styles, payload.StyleID)
		if !ok {
			wsh.sendError(ws, msg.ID, "Style not found: "+payload.StyleID, "NOT_FOUND")
			return
		}
		props = &style.Properties
	}

	wsh.sendProgress(ws, msg.ID, 30, "parsing", fmt.Sprintf("%d bytes", len(data)))

	start := time.Now()
	res, err := wsh.sessionMgr.ConvertReader(bytes.NewReader(data), payload.Parser, props)
	if err != nil {
		apiErr := conversionError(err)
		fmt.Printf("[WebSocket] Convert of %q failed: %v\n", payload.Name, err)
		wsh.sendError(ws, msg.ID, err.Error(), apiErr.Code)
		return
	}

	fmt.Printf("[WebSocket] Converted %q: %d shapes in %v\n",
		payload.Name, res.Summary.ShapeCount, time.Since(start).Round(time.Millisecond))

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeComplete,
		ID:        msg.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSCompleteResponse{
			Name:     payload.Name,
			Summary:  res.Summary,
			Warnings: res.Warnings,
			Result:   res.JSON,
		}),
	})
}

func (wsh *WebSocketHandler) sendProgress(ws *websocket.Conn, id string, progress float64, stage, message string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeProgress,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSProgressResponse{
			Progress: progress,
			Stage:    stage,
			Message:  message,
		}),
	})
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, id, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Message: message,
			Code:    code,
		}),
	})
}

func lookupStyle(styles StyleLookup, id string) (*models.StyleInfo, bool) {
	if styles == nil {
		return nil, false
	}
	return styles.GetStyle(id)
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func decompressGzip(data []byte, max int64) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	if max <= 0 {
		return io.ReadAll(reader)
	}
	out, err := io.ReadAll(io.LimitReader(reader, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > max {
		return nil, upload.ErrTooLarge
	}
	return out, nil
}
