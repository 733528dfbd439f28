package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// auditTimestamp matches the historical record layout consumed by
// downstream log tooling. Local time, second precision.
const auditTimestamp = "2006-01-02 15:04:05"

// AuditLog implements ports.AuditLog by appending human-readable records
// to a log file. Each exchange is framed so the file stays greppable:
//
//	=== AI Response at 2024-01-31 18:04:05 ===
//	Prompt: ...
//	Response: ...
//	=== End Response ===
//
// The file is opened once in append mode and held until Close.
type AuditLog struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	now func() time.Time
}

// NewAuditLog opens (or creates) the log file at path in append mode.
func NewAuditLog(path string) (*AuditLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &AuditLog{f: f, w: bufio.NewWriter(f), now: time.Now}, nil
}

// Record appends one prompt/response exchange and flushes it to disk, so
// a crash right after a model call still leaves the exchange on record.
func (a *AuditLog) Record(ctx context.Context, prompt, response string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.f == nil {
		return fmt.Errorf("audit log is closed")
	}

	ts := a.now().Format(auditTimestamp)
	if _, err := fmt.Fprintf(a.w, "=== AI Response at %s ===\n", ts); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	fmt.Fprintf(a.w, "Prompt: %s\n", prompt)
	fmt.Fprintf(a.w, "Response: %s\n", response)
	fmt.Fprintf(a.w, "=== End Response ===\n\n")

	if err := a.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit record: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the file.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.f == nil {
		return nil
	}
	flushErr := a.w.Flush()
	closeErr := a.f.Close()
	a.f = nil
	a.w = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
