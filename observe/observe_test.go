package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid disabled",
			cfg:  Config{ServiceName: "pipecache"},
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "pipecache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "graphite"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "pipecache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "pipecache",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "unknown log level",
			cfg: Config{
				ServiceName: "pipecache",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "full valid config",
			cfg: Config{
				ServiceName: "pipecache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "debug"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_ShutdownIdempotent(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "pipecache",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("first shutdown failed: %v", err)
	}
	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown failed: %v", err)
	}
}

func TestTaskMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta TaskMeta
		want string
	}{
		{TaskMeta{Name: "default"}, "cache.exec.default"},
		{TaskMeta{Name: "uglify", Task: "minify"}, "cache.exec.uglify.minify"},
	}
	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}
