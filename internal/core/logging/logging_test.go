package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"text debug", "debug", "text", false},
		{"default format", "warn", "", false},
		{"unknown level", "verbose", "json", true},
		{"unknown format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			want, _ := zapcore.ParseLevel(tt.level)
			if !logger.Core().Enabled(want) {
				t.Errorf("level %s should be enabled", tt.level)
			}
			if want > zapcore.DebugLevel && logger.Core().Enabled(zapcore.DebugLevel) {
				t.Error("debug should be disabled above debug level")
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger")
	}
}
