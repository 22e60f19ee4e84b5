package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSbHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 3, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "20260315T143045Z",
			level:   slog.LevelInfo,
			message: "run finished",
			want:    "2026-03-15T14:30:45Z\tINFO\t20260315T143045Z\trun finished\n",
		},
		{
			name:    "warn level",
			opID:    "20260315T143045Z",
			level:   slog.LevelWarn,
			message: "verification found missing objects",
			want:    "2026-03-15T14:30:45Z\tWARN\t20260315T143045Z\tverification found missing objects\n",
		},
		{
			name:    "with record attrs",
			opID:    "20260315T143045Z",
			level:   slog.LevelInfo,
			message: "transfer finished",
			attrs:   []slog.Attr{slog.String("node", "stor03"), slog.Int("objects", 42)},
			want:    "2026-03-15T14:30:45Z\tINFO\t20260315T143045Z\ttransfer finished\tnode=stor03\tobjects=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &sbHandler{w: &buf, opID: tt.opID, minLevel: slog.LevelDebug}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestSbHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &sbHandler{w: &buf, opID: "op-1", minLevel: slog.LevelDebug}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "dispatcher")}).(*sbHandler)

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "transfer started", 0)
	r.AddAttrs(slog.String("node", "stor01"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=dispatcher") {
		t.Errorf("expected pre-set attr component=dispatcher, got: %q", got)
	}
	if !strings.Contains(got, "node=stor01") {
		t.Errorf("expected record attr node=stor01, got: %q", got)
	}
}

func TestSbHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &sbHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*sbHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestSbHandler_Enabled(t *testing.T) {
	t.Run("default threshold hides debug", func(t *testing.T) {
		h := &sbHandler{minLevel: slog.LevelInfo}
		if h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(DEBUG) = true, want false at info threshold")
		}
		for _, level := range []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			if !h.Enabled(context.Background(), level) {
				t.Errorf("Enabled(%v) = false, want true", level)
			}
		}
	})

	t.Run("verbose threshold shows debug", func(t *testing.T) {
		h := &sbHandler{minLevel: slog.LevelDebug}
		if !h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(DEBUG) = false, want true at debug threshold")
		}
	})
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-op", false)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
