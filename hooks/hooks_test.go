package hooks_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
	"github.com/Skryldev/webpio/hooks"
)

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	logger := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	h := hooks.NewLoggingHook(logger)
	info := core.CallInfo{Op: "decode", Backend: "go", InputBytes: 10}

	h.BeforeCall(context.Background(), info)
	h.AfterCall(context.Background(), info, time.Millisecond, nil)
	h.AfterCall(context.Background(), info, time.Millisecond,
		apperrors.New(apperrors.StatusNotEnoughData, "decode", nil))

	out := buf.String()
	for _, want := range []string{"bridge.call.start", "bridge.call.done", "bridge.call.error", "status=not_enough_data"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsHook(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	h := hooks.NewMetricsHook(m)
	ctx := context.Background()

	h.AfterCall(ctx, core.CallInfo{Op: "encode", InputBytes: 400, OutputBytes: 40}, 2*time.Millisecond, nil)
	h.AfterCall(ctx, core.CallInfo{Op: "encode"}, time.Millisecond,
		apperrors.New(apperrors.StatusOutOfMemory, "encode", nil))
	h.AfterCall(ctx, core.CallInfo{Op: "decode"}, time.Millisecond, errors.New("corrupt"))

	snap := m.Snapshot()
	if snap.Calls["encode"] != 2 || snap.Calls["decode"] != 1 {
		t.Errorf("calls = %v", snap.Calls)
	}
	if snap.Errors["encode.out_of_memory"] != 1 || snap.Errors["decode.codec"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
	if snap.BytesIn != 400 || snap.BytesOut != 40 {
		t.Errorf("bytes = %d in, %d out", snap.BytesIn, snap.BytesOut)
	}

	// Snapshots are copies.
	snap.Calls["encode"] = 99
	if m.Snapshot().Calls["encode"] != 2 {
		t.Error("snapshot aliases collector state")
	}
}
