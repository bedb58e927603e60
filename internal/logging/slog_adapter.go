// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// SlogHandler implements slog.Handler using zerolog as the backend.
// It lets libraries that require slog.Logger (sutureslog) write through the
// client's zerolog configuration.
//
//	slogger := slog.New(logging.NewSlogHandler())
type SlogHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	groups []string
}

// NewSlogHandler creates a slog.Handler wrapping the global zerolog logger.
func NewSlogHandler() *SlogHandler {
	return &SlogHandler{logger: Logger()}
}

// NewSlogHandlerWithLogger creates a slog.Handler with a specific logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSlogHandlerWithLogger(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= slogToZerologLevel(level)
}

// Handle handles the record.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	var event *zerolog.Event

	switch {
	case record.Level >= slog.LevelError:
		event = h.logger.Error()
	case record.Level >= slog.LevelWarn:
		event = h.logger.Warn()
	case record.Level >= slog.LevelInfo:
		event = h.logger.Info()
	default:
		event = h.logger.Debug()
	}

	for _, attr := range h.attrs {
		event = addAttr(event, attr, h.groups)
	}
	record.Attrs(func(attr slog.Attr) bool {
		event = addAttr(event, attr, h.groups)
		return true
	})

	event.Msg(record.Message)
	return nil
}

// WithAttrs returns a new handler with the given attributes appended.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	return &SlogHandler{logger: h.logger, attrs: merged, groups: h.groups}
}

// WithGroup returns a new handler with the given group name appended.
// Groups flatten into dotted key prefixes on the zerolog side.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)

	return &SlogHandler{logger: h.logger, attrs: h.attrs, groups: groups}
}

// addAttr adds a slog attribute to a zerolog event, prefixing grouped
// attributes with their dotted group path.
func addAttr(event *zerolog.Event, attr slog.Attr, groups []string) *zerolog.Event {
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return event.Str(key, value.String())
	case slog.KindInt64:
		return event.Int64(key, value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, value.Float64())
	case slog.KindBool:
		return event.Bool(key, value.Bool())
	case slog.KindDuration:
		return event.Dur(key, value.Duration())
	case slog.KindTime:
		return event.Time(key, value.Time())
	default:
		return event.Interface(key, value.Any())
	}
}

// slogToZerologLevel maps slog levels onto zerolog levels.
func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
