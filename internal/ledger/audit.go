package ledger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── Audit Logging ──────────────────────────────────────────────────────────
// Every ledger mutation (and every rejection) emits one structured JSON
// line. The writer is injected so tests and custom sinks can capture the
// stream.

// AuditType categorizes an audit event.
type AuditType string

const (
	AuditMutation AuditType = "MUTATION"
	AuditRejected AuditType = "REJECTED"
)

// AuditEvent is one structured audit record.
type AuditEvent struct {
	ID        string                 `json:"id"`
	TraceID   string                 `json:"trace_id"`
	Type      AuditType              `json:"type"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Timestamp time.Time              `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// Auditor records audit events.
type Auditor interface {
	Record(event AuditEvent)
}

// jsonAuditor writes one JSON line per event.
type jsonAuditor struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewAuditor creates an Auditor writing to os.Stdout.
func NewAuditor() Auditor {
	return NewAuditorWithWriter(os.Stdout)
}

// NewAuditorWithWriter creates an Auditor writing to the given writer.
func NewAuditorWithWriter(w io.Writer) Auditor {
	if w == nil {
		w = os.Stdout
	}
	return &jsonAuditor{writer: w}
}

func (a *jsonAuditor) Record(event AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(event)
	if err != nil {
		return // audit must never take the ledger down
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.writer.Write(append(line, '\n'))
}

// NopAuditor discards every event.
type NopAuditor struct{}

// Record implements Auditor.
func (NopAuditor) Record(AuditEvent) {}
