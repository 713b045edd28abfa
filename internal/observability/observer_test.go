// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardObserver_DebugWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityDebug, &buf)

	finish := obs.StartTiming("rules_engine", "apply", "0001_folder")
	finish(true, map[string]interface{}{"decisions": 3})

	var data StandardObservabilityData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "rules_engine", data.Component)
	assert.Equal(t, "apply", data.Operation)
	assert.Equal(t, "0001_folder", data.FilePath)
	assert.True(t, data.Success)
	assert.True(t, strings.HasPrefix(data.RequestID, "req-"))
	assert.EqualValues(t, 3, data.Metadata["decisions"])
}

func TestStandardObserver_MetricsLevelIsSilent(t *testing.T) {
	var buf bytes.Buffer
	obs := NewStandardObserver(ObservabilityMetrics, &buf)
	obs.StartTiming("batch", "process", "")(true, nil)
	assert.Empty(t, buf.String())

	off := NewStandardObserver(ObservabilityOff, &buf)
	off.LogOperation(StandardObservabilityData{Component: "x"})
	assert.Empty(t, buf.String())
}

func TestNew_DebugLinksDebugObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := New(true, &buf)
	require.NotNil(t, obs.DebugObserver)
	assert.Equal(t, ObservabilityDebug, obs.Level())

	finish := obs.DebugObserver.StartStep("rules_engine", "sanitize", "")
	obs.DebugObserver.LogDetail("rules_engine", "force_null 全宗号")
	finish(true, "1 decision")

	out := buf.String()
	assert.Contains(t, out, "rules_engine: sanitize")
	assert.Contains(t, out, "   → rules_engine: force_null 全宗号")
	assert.Contains(t, out, "sanitize completed")

	assert.Nil(t, New(false, &buf).DebugObserver)
}

func TestObserver_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	obs := New(true, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			finish := obs.DebugObserver.StartStep("batch", "archive", "")
			obs.StartTiming("batch", "archive", "")(true, nil)
			finish(true, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, strings.Count(buf.String(), "archive completed"))
}
