package auth

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) LoginAttempt(string, string) {}
func (n *NoopMetricsCollector) SecondFactorCheck(string)    {}
func (n *NoopMetricsCollector) SessionIssued()              {}
