// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/homelab-ops/homestead/internal/logging"
)

// watermillLogger adapts the shared zerolog logger to watermill.LoggerAdapter
// so bus internals log in the same format as the rest of the process.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Str("component", "events").Msg(msg)
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), msg, fields)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Info(), msg, fields)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	lg := logging.Logger()
	l.event(lg.Trace(), msg, fields)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &watermillLogger{fields: merged}
}
