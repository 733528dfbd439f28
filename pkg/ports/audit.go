package ports

import "context"

// AuditLog records every prompt/response exchange with the model, verbatim.
// Failed exchanges are recorded too; callers pass the error text as the
// response. Audit failures must not abort generation, so implementations
// should be forgiving and callers should log rather than propagate.
type AuditLog interface {
	// Record appends one exchange to the log.
	Record(ctx context.Context, prompt, response string) error

	// Close flushes and releases the underlying destination.
	Close() error
}

// NopAudit discards all exchanges. It is the default when no audit
// destination is configured.
type NopAudit struct{}

func (NopAudit) Record(ctx context.Context, prompt, response string) error { return nil }

func (NopAudit) Close() error { return nil }
