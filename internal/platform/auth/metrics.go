package auth

import "github.com/prometheus/client_golang/prometheus"

// RevokedSessionsGauge reports how many signed-out tokens s is holding.
// Register it once per process.
func RevokedSessionsGauge(s *TokenRevocationStore) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dentaldesk_revoked_sessions",
		Help: "Signed-out session tokens held until they expire.",
	}, func() float64 {
		return float64(s.Count())
	})
}
