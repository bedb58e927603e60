// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCtxCarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(Config{}) })

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"abc12345"`) {
		t.Errorf("log output missing correlation id: %s", out)
	}
}

func TestCtxEventChain(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Init(Config{})
	})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	Ctx(ctx).Debug().
		Str("method", "GET").
		Str("path", "/accounts/7/profiles").
		Msg("api request")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("log output missing request id: %s", out)
	}
	if !strings.Contains(out, `"path":"/accounts/7/profiles"`) {
		t.Errorf("log output missing chained field: %s", out)
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("correlation id length = %d, want 8", len(id))
	}

	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context produced correlation id %q", got)
	}
}

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	slogger := slog.New(handler)

	slogger.Info("service started", "service", "realtime")

	out := buf.String()
	if !strings.Contains(out, "service started") {
		t.Errorf("missing message in output: %s", out)
	}
	if !strings.Contains(out, `"service":"realtime"`) {
		t.Errorf("missing attribute in output: %s", out)
	}
}

func TestSlogHandlerGroupsFlattenToDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	slogger := slog.New(handler).WithGroup("bridge")

	slogger.Warn("reconnecting", "attempt", int64(3))

	out := buf.String()
	if !strings.Contains(out, `"bridge.attempt":3`) {
		t.Errorf("grouped attribute not flattened: %s", out)
	}
}
