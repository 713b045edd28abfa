// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DebugObserver provides detailed step-by-step debugging. Steps from
// concurrent callers interleave but each line is written whole.
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging and
// links it to its StandardObserver.
func NewDebugObserver(writer io.Writer) *DebugObserver {
	d := &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
	d.StandardObserver.DebugObserver = d
	return d
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, filePath string) func(success bool, details string) {
	start := time.Now()

	d.mu.Lock()
	d.printf("%s🔄 %s: %s%s\n", d.pad(), component, step, subject(filePath))
	d.indent++
	d.mu.Unlock()

	return func(success bool, details string) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.indent > 0 {
			d.indent--
		}
		ms := time.Since(start).Milliseconds()
		if success {
			d.printf("%s✅ %s: %s completed (%dms) %s\n", d.pad(), component, step, ms, details)
		} else {
			d.printf("%s❌ %s: %s failed (%dms) %s\n", d.pad(), component, step, ms, details)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s   → %s: %s\n", d.pad(), component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s   📊 %s: %s = %v\n", d.pad(), component, metric, value)
}

func (d *DebugObserver) pad() string {
	return strings.Repeat("  ", d.indent)
}

func (d *DebugObserver) printf(format string, args ...interface{}) {
	if d.writer != nil {
		fmt.Fprintf(d.writer, format, args...)
	}
}

func subject(filePath string) string {
	if filePath == "" {
		return ""
	}
	return " (" + filePath + ")"
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
