// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import "io"

// Observable interface for all components that need observability
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
}

// New returns an observer for the given mode. Debug mode also wires a
// DebugObserver writing to the same writer.
func New(debug bool, writer io.Writer) *StandardObserver {
	if debug {
		return NewDebugObserver(writer).StandardObserver
	}
	return NewStandardObserver(ObservabilityMetrics, writer)
}
