package audit

import (
	"context"
	"testing"
)

func TestMemorySink_Publish(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	if got := sink.Manifest("run-1"); got != nil {
		t.Errorf("Manifest() before publish = %s, want nil", got)
	}

	manifest := []byte(`{"run_id":"run-1"}`)
	if err := sink.Publish(ctx, "run-1", manifest); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := sink.Manifest("run-1"); string(got) != string(manifest) {
		t.Errorf("Manifest() = %s, want %s", got, manifest)
	}

	// The sink stores a copy, not the caller's buffer.
	manifest[0] = 'X'
	if got := sink.Manifest("run-1"); got[0] != '{' {
		t.Error("Manifest() shares the caller's buffer")
	}
}
