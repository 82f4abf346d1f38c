package monitoring

import "testing"

func TestHealthCheckerAggregation(t *testing.T) {
	hc := NewHealthChecker("xrcore", "test")
	hc.AddCheck("ok", func() CheckResult { return CheckResult{Status: StatusHealthy} })
	if got := hc.CheckHealth().Status; got != StatusHealthy {
		t.Fatalf("expected healthy, got %s", got)
	}

	hc.AddCheck("bad", func() CheckResult { return CheckResult{Status: StatusUnhealthy} })
	if got := hc.CheckHealth().Status; got != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", got)
	}
}

func TestConfigurationHealthCheck(t *testing.T) {
	res := ConfigurationHealthCheck(map[string]string{"A": "1", "B": ""})()
	if res.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy for missing config")
	}
}
