// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "catalog",
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return now }

	failing := func(ctx context.Context) error { return driver.ErrBadConn }
	calls := 0
	counting := func(ctx context.Context) error { calls++; return nil }

	for range 2 {
		if err := cb.Execute(context.Background(), failing); !errors.Is(err, driver.ErrBadConn) {
			t.Fatalf("expected the operation error, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), counting)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 0 {
		t.Error("open breaker must not call the operation")
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(context.Background(), counting); err != nil {
		t.Fatalf("expected trial call to succeed, got %v", err)
	}
	if cb.State() != StateClosed || calls != 1 {
		t.Errorf("expected CLOSED after a successful trial call, got %s", cb.State())
	}

	want := []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "catalog", FailureThreshold: 1, Cooldown: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return driver.ErrBadConn })
	now = now.Add(time.Second)
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return driver.ErrBadConn })

	if cb.State() != StateOpen {
		t.Errorf("expected OPEN after a failed trial call, got %s", cb.State())
	}
}

func TestCircuitBreaker_IgnoresPermanentErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "catalog", FailureThreshold: 1, Cooldown: time.Minute})
	for range 3 {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errors.New("NOT NULL constraint failed")
		})
	}
	if cb.State() != StateClosed {
		t.Errorf("permanent errors must not open the breaker, got %s", cb.State())
	}
}
