package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func ok(context.Context) error { return nil }

func TestCheck_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0")
	hc.AddCheck("a", ok, time.Second)
	hc.AddCriticalCheck("b", ok, 0)

	report := hc.Check(context.Background())

	if report.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Errorf("Expected 2 checks, got %d", len(report.Checks))
	}
	if report.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", report.Version)
	}
}

func TestCheck_NonCriticalFailureDegrades(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("passing", ok, time.Second)
	hc.AddCheck("failing", func(context.Context) error { return errors.New("boom") }, time.Second)

	report := hc.Check(context.Background())

	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
	if got := report.Checks["failing"].Error; got != "boom" {
		t.Errorf("Expected error boom, got %q", got)
	}
}

func TestCheck_CriticalFailure(t *testing.T) {
	hc := NewChecker("")
	hc.AddCheck("failing", func(context.Context) error { return errors.New("x") }, time.Second)
	hc.AddCriticalCheck("draining", DrainingCheck(func() bool { return true }), time.Second)

	report := hc.Check(context.Background())

	if report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
	if got := report.Checks["draining"].Error; got != ErrDraining.Error() {
		t.Errorf("Expected draining error, got %q", got)
	}
}

func TestCheck_Timeout(t *testing.T) {
	hc := NewChecker("")
	hc.AddCriticalCheck("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	}, 10*time.Millisecond)

	start := time.Now()
	report := hc.Check(context.Background())

	if time.Since(start) > 500*time.Millisecond {
		t.Error("Check should not wait for a timed out check")
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
	if !strings.Contains(report.Checks["slow"].Error, "timed out") {
		t.Errorf("Expected timeout error, got %q", report.Checks["slow"].Error)
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewChecker("")
	hc.AddCriticalCheck("draining", DrainingCheck(func() bool { return true }), time.Second)

	rec := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	draining := false
	hc := NewChecker("")
	hc.AddCriticalCheck("draining", DrainingCheck(func() bool { return draining }), time.Second)

	rec := httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	draining = true
	rec = httptest.NewRecorder()
	hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
}

func TestSessionCapacityCheck(t *testing.T) {
	count := 5
	check := SessionCapacityCheck(func() int { return count }, 10)

	if err := check(context.Background()); err != nil {
		t.Errorf("Expected no error under capacity, got %v", err)
	}

	count = 10
	if err := check(context.Background()); err == nil {
		t.Error("Expected error at capacity")
	}
}
