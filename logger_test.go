package vhs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/vhs/render/rendertest"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("WithAttrs did not return nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("WithGroup did not return nopHandler")
	}
}

func TestLoggerDefaultIsSilent(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })

	fx, err := New(WithBackend(rendertest.New()))
	if err != nil {
		t.Fatal(err)
	}
	_ = fx.Close()

	out := buf.String()
	for _, want := range []string{"effect created", "backend=recording", "effect closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore silence")
	}
}

type logRecorder struct {
	mu     sync.Mutex
	logger *slog.Logger
}

func (r *logRecorder) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

func (r *logRecorder) get() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

func TestSetLoggerPropagates(t *testing.T) {
	rec := &logRecorder{}
	register(rec)
	defer unregister(rec)

	if rec.get() != Logger() {
		t.Error("register did not pass the current logger")
	}
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(l)
	t.Cleanup(func() { SetLogger(nil) })
	if rec.get() != l {
		t.Error("SetLogger did not propagate")
	}

	unregister(rec)
	SetLogger(nil)
	if rec.get() != l {
		t.Error("unregistered object still receives loggers")
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		}()
		go func() {
			defer wg.Done()
			_ = Logger()
		}()
	}
	wg.Wait()
}
