package sb

import "context"

// AuditSink receives the JSON manifest of a completed run. Publishing is
// advisory: a sink failure is reported as a warning and never changes the
// run's outcome.
type AuditSink interface {
	Publish(ctx context.Context, runID string, manifest []byte) error
}

// NopSink discards manifests. The default when auditing is not configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, []byte) error { return nil }
