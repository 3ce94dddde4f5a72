// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

var otelEnvVars = []string{
	"OTEL_SERVICE_NAME",
	"OTEL_SERVICE_VERSION",
	"OTEL_EXPORTER_OTLP_PROTOCOL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_TRACES_EXPORTER",
	"OTEL_TRACES_SAMPLE_RATIO",
	"OTEL_METRICS_EXPORTER",
	"OTEL_LOGS_EXPORTER",
}

// clearOTelEnv blanks every OTEL_* variable for the duration of the test.
func clearOTelEnv(t *testing.T) {
	t.Helper()
	for _, env := range otelEnvVars {
		t.Setenv(env, "")
	}
}

func TestOTelConfigFromEnv_Defaults(t *testing.T) {
	clearOTelEnv(t)

	cfg := OTelConfigFromEnv()

	assert.Equal(t, OTelConfig{
		ServiceName:       "tasknest-meeting-service",
		Protocol:          OTelProtocolGRPC,
		TracesExporter:    OTelExporterNone,
		TracesSampleRatio: 1.0,
		MetricsExporter:   OTelExporterNone,
		LogsExporter:      OTelExporterNone,
	}, cfg)
}

func TestOTelConfigFromEnv_CustomValues(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "test-service")
	t.Setenv("OTEL_SERVICE_VERSION", "1.2.3")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_TRACES_EXPORTER", "otlp")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.5")
	t.Setenv("OTEL_METRICS_EXPORTER", "otlp")
	t.Setenv("OTEL_LOGS_EXPORTER", "otlp")

	cfg := OTelConfigFromEnv()

	assert.Equal(t, OTelConfig{
		ServiceName:       "test-service",
		ServiceVersion:    "1.2.3",
		Protocol:          OTelProtocolHTTP,
		Endpoint:          "localhost:4318",
		Insecure:          true,
		TracesExporter:    OTelExporterOTLP,
		TracesSampleRatio: 0.5,
		MetricsExporter:   OTelExporterOTLP,
		LogsExporter:      OTelExporterOTLP,
	}, cfg)
}

func TestOTelConfigFromEnv_TracesSampleRatio(t *testing.T) {
	tests := []struct {
		name          string
		envValue      string
		expectedRatio float64
	}{
		{"valid zero", "0.0", 0.0},
		{"valid half", "0.5", 0.5},
		{"valid one", "1.0", 1.0},
		{"negative falls back", "-0.5", 1.0},
		{"above one falls back", "1.5", 1.0},
		{"not a number falls back", "invalid", 1.0},
		{"unset", "", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOTelEnv(t)
			t.Setenv("OTEL_TRACES_SAMPLE_RATIO", tt.envValue)

			assert.Equal(t, tt.expectedRatio, OTelConfigFromEnv().TracesSampleRatio)
		})
	}
}

func TestOTelConfigFromEnv_InsecureFlag(t *testing.T) {
	tests := []struct {
		envValue string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"", false},
		{"TRUE", false},
		{"1", false},
	}

	for _, tt := range tests {
		t.Run("value "+tt.envValue, func(t *testing.T) {
			clearOTelEnv(t)
			t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", tt.envValue)

			assert.Equal(t, tt.expected, OTelConfigFromEnv().Insecure)
		})
	}
}

func TestSetupOTelSDKWithConfig_AllDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := SetupOTelSDKWithConfig(ctx, OTelConfig{
		ServiceName:     "test-service",
		Protocol:        OTelProtocolGRPC,
		TracesExporter:  OTelExporterNone,
		MetricsExporter: OTelExporterNone,
		LogsExporter:    OTelExporterNone,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.NoError(t, shutdown(ctx), "shutdown must be safe to repeat")
}

func TestSetupOTelSDK_FromEnv(t *testing.T) {
	clearOTelEnv(t)
	ctx := context.Background()

	shutdown, err := SetupOTelSDK(ctx)
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))
}

func TestNewResource(t *testing.T) {
	res, err := newResource(OTelConfig{ServiceName: "tasknest-meeting-service", ServiceVersion: "0.4.0"})
	require.NoError(t, err)

	attrs := res.Set()
	name, ok := attrs.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "tasknest-meeting-service", name.AsString())

	version, ok := attrs.Value(attribute.Key("service.version"))
	require.True(t, ok)
	assert.Equal(t, "0.4.0", version.AsString())
}

func TestNewPropagator(t *testing.T) {
	fields := newPropagator().Fields()

	for _, field := range []string{"traceparent", "tracestate", "baggage", "uber-trace-id"} {
		assert.Contains(t, fields, field)
	}
}
