package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRunChecks_AllHealthy(t *testing.T) {
	checks := []Check{
		{Name: "redis", Ping: func(context.Context) error { return nil }},
		{Name: "amqp", Ping: func(context.Context) error { return nil }},
	}

	results, healthy := RunChecks(context.Background(), checks)
	if !healthy {
		t.Error("expected healthy when every check passes")
	}
	if results["redis"] != "ok" || results["amqp"] != "ok" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestRunChecks_OneFailing(t *testing.T) {
	checks := []Check{
		{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
		{Name: "amqp", Ping: func(context.Context) error { return nil }},
	}

	results, healthy := RunChecks(context.Background(), checks)
	if healthy {
		t.Error("expected unhealthy when a check fails")
	}
	if results["redis"] != "dial tcp: refused" {
		t.Errorf("expected redis error text, got %q", results["redis"])
	}
	if results["amqp"] != "ok" {
		t.Errorf("expected amqp ok, got %q", results["amqp"])
	}
}

func TestRunChecks_None(t *testing.T) {
	results, healthy := RunChecks(context.Background(), nil)
	if !healthy {
		t.Error("expected healthy with no checks")
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestPoolStats_JSON(t *testing.T) {
	stats := PoolStats{TotalConns: 4, IdleConns: 3, AcquiredConns: 1, MaxConns: 10, AcquireCount: 50, AcquireDuration: "250ms", Healthy: true}

	b, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"total_conns":4`, `"acquired_conns":1`, `"acquire_duration":"250ms"`, `"healthy":true`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("expected %s in %s", key, b)
		}
	}
}
