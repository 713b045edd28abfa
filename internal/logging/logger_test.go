// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("trace"))
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archivist.log")
	log, err := New(Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.With(String("archive", "0001")).Debug("rule fired", String("rule", "briefing"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"rule fired"`)
	assert.Contains(t, line, `"rule":"briefing"`)
	assert.Contains(t, line, `"archive":"0001"`)
}

func TestNew_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archivist.log")
	log, err := New(Config{Level: "error", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("hidden")
	log.Error("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Warn("skipped", Bool("locked", true), Int("rule", 3))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "skipped", entry.Message)
	assert.Equal(t, true, entry.ContextMap()["locked"])
	assert.EqualValues(t, 3, entry.ContextMap()["rule"])
}

func TestNop(t *testing.T) {
	log := NewNop()
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
	assert.Same(t, log, log.With(String("k", "v")))
	assert.NoError(t, log.Sync())
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, DefaultLevel, cfg.Level)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}
