package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LogLevel is the severity of a method audit entry. Unknown levels are kept as-is.
type LogLevel string

const (
	LevelTrace LogLevel = "TRACE"
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

func (l LogLevel) Known() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// EventPhase marks where in a call's lifecycle an entry was written.
type EventPhase string

const (
	PhaseStart EventPhase = "START"
	PhaseEnd   EventPhase = "END"
)

func (p EventPhase) Known() bool {
	return p == PhaseStart || p == PhaseEnd
}

// Direction tells whether a request was received by or sent from the audited service.
type Direction string

const (
	DirectionIncoming  Direction = "Incoming"
	DirectionOutcoming Direction = "Outcoming"
)

func (d Direction) Known() bool {
	return d == DirectionIncoming || d == DirectionOutcoming
}

// RecordKind selects one of the two audit streams.
type RecordKind string

const (
	KindMethod  RecordKind = "method"
	KindRequest RecordKind = "request"
)

// ParseRecordKind accepts "method"/"methods" and "request"/"requests".
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "method", "methods":
		return KindMethod, nil
	case "request", "requests":
		return KindRequest, nil
	}
	return "", fmt.Errorf("unknown record kind: %q", s)
}

// MethodRecord is one method-call audit entry. A call normally produces a
// START and an END entry sharing the same correlation id.
type MethodRecord struct {
	ID            string     `json:"id"`
	Timestamp     Timestamp  `json:"timestamp"`
	Level         LogLevel   `json:"logLevel"`
	CorrelationID string     `json:"correlationId"`
	MethodName    string     `json:"methodName"`
	Args          string     `json:"args"`
	EventType     EventPhase `json:"logType"`
	Result        string     `json:"result"`
	Extra         string     `json:"extra,omitempty"` // reserved
}

// RequestRecord is one HTTP request/response audit entry.
type RequestRecord struct {
	ID           string    `json:"id"`
	Timestamp    Timestamp `json:"timestamp"`
	Direction    Direction `json:"requestType"`
	Method       string    `json:"method"`
	StatusCode   string    `json:"statusCode"` // string on purpose: "007", "2xx"
	Path         string    `json:"path"`
	RequestBody  string    `json:"requestBody"`
	ResponseBody string    `json:"responseBody"`
}

// DecodeMethodRecords accepts either a single JSON object or an array of them.
func DecodeMethodRecords(data []byte) ([]MethodRecord, error) {
	return decodeOneOrMany[MethodRecord](data)
}

// DecodeRequestRecords accepts either a single JSON object or an array of them.
func DecodeRequestRecords(data []byte) ([]RequestRecord, error) {
	return decodeOneOrMany[RequestRecord](data)
}

func decodeOneOrMany[T any](data []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []T{one}, nil
}
