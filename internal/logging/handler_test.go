// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/greatwyrm/greatwyrm/internal/logging"
)

func TestNew_JSONIncludesServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{
		Service: "greatwyrm",
		Version: "1.2.3",
		Format:  "json",
		Writer:  &buf,
	})
	require.NoError(t, err)

	logger.Info("hello", "player", "alice")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "greatwyrm", record["service"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, "alice", record["player"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{
		Service: "greatwyrm",
		Format:  "text",
		Writer:  &buf,
	})
	require.NoError(t, err)

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "service=greatwyrm")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{
		Format: "json",
		Level:  "warn",
		Writer: &buf,
	})
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := logging.New(logging.Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestNew_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	require.NoError(t, err)

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
}

func TestNew_NoTraceContextOmitsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info("untraced")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "span_id")
}
