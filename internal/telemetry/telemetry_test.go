package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinksFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		stdout    string
		metrics   string
		fallback  string
		want      sinks
		wantSpans bool
	}{
		{"nothing set", "", "", "", sinks{}, true},
		{"stdout only", "true", "", "", sinks{stdout: true}, true},
		{"collector only", "", "localhost:4318", "", sinks{endpoint: "localhost:4318"}, false},
		{"metrics endpoint beats generic", "", "metrics:4318", "generic:4318", sinks{endpoint: "metrics:4318"}, false},
		{"generic endpoint fallback", "", "", "generic:4318", sinks{endpoint: "generic:4318"}, false},
		{"stdout and collector", "true", "localhost:4318", "", sinks{stdout: true, endpoint: "localhost:4318"}, true},
		{"stdout needs exactly true", "1", "", "", sinks{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRELLIS_OTEL_STDOUT", tt.stdout)
			t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", tt.metrics)
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.fallback)

			got := sinksFromEnv()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSpans, got.spansToStdout())
		})
	}
}
