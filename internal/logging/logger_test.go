package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	l := New("test_component", "debug", "json")
	var buf bytes.Buffer
	l.SetOutput(&buf)
	return l, &buf
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l := New("x", "not-a-level", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestWithContext_PropagatesTraceSessionAgentIDs(t *testing.T) {
	l, buf := newTestLogger(t)
	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithAgentID(ctx, "agent-1")

	l.WithContext(ctx).Info("hello")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "trace-1", decoded["trace_id"])
	assert.Equal(t, "sess-1", decoded["session_id"])
	assert.Equal(t, "agent-1", decoded["agent_id"])
	assert.Equal(t, "test_component", decoded["component"])
}

func TestTraceIDFrom_EmptyWhenNotSet(t *testing.T) {
	assert.Equal(t, "", TraceIDFrom(context.Background()))
	assert.Equal(t, "trace-2", TraceIDFrom(WithTraceID(context.Background(), "trace-2")))
}

func TestLogAudit_EmitsAuditFlagAndFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.LogAudit(context.Background(), "c1", "RULE", "UPDATE")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["audit"])
	assert.Equal(t, "c1", decoded["change_id"])
	assert.Equal(t, "RULE", decoded["entity_kind"])
}

func TestWithError_IncludesErrorMessage(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(assertError("boom")).Error("failed")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "boom", decoded["error"])
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func assertError(msg string) error { return assertErr(msg) }
