package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestContextFieldsReachErrorLines(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: "debug", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithMemberID(ctx, "mem_abc")
	ctx = log.WithEvent(ctx, "evt-1", "pet_registered")
	log.Error(ctx, "claim submission failed", errors.New("db down"))

	entry := decode(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "mem_abc", entry["member_id"])
	assert.Equal(t, "evt-1", entry["event_id"])
	assert.Equal(t, "pet_registered", entry["event_type"])
	assert.Equal(t, "db down", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestFieldsDoNotLeakBetweenContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithAdminID(context.Background(), "adm-1")
	_ = log.WithFields(parent, map[string]any{"claim_id": "c-9"})
	log.Info(parent, "listing claims")

	entry := decode(t, buf)
	assert.Equal(t, "adm-1", entry["admin_id"])
	assert.NotContains(t, entry, "claim_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "worker", Output: buf, WarnStack: true}).Warn(context.Background(), "slow provider")
	assert.Contains(t, decode(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "worker", Output: buf}).Warn(context.Background(), "slow provider")
	assert.NotContains(t, decode(t, buf), "stack")
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "worker", Output: buf}).Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestNewResolvesLevelName(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, New(Options{}).base.GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New(Options{Level: "verbose"}).base.GetLevel())
	assert.Equal(t, zerolog.ErrorLevel, New(Options{Level: "Error"}).base.GetLevel())
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Format: "Console", Output: buf}).Info(context.Background(), "listening")
	assert.Contains(t, buf.String(), "listening")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestForServiceUsesAppConfig(t *testing.T) {
	log := ForService("cron-worker", config.AppConfig{LogLevel: "warn", LogWarnStack: true})
	assert.Equal(t, zerolog.WarnLevel, log.base.GetLevel())
	assert.True(t, log.warnStack)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
