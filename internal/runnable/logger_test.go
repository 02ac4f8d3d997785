package runnable_test

import (
	"context"
	"log/slog"
	"testing"
	"ui-regression/internal/runnable"

	"github.com/google/go-cmp/cmp"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantErr   bool
	}{
		{"Debug", "DEBUG", true, false},
		{"Info", "INFO", false, false},
		{"Invalid", "LOUD", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_LOG", tt.level)

			logger, err := runnable.NewLogger(false)
			if diff := cmp.Diff(tt.wantErr, err != nil); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if !runnable.NewLogr(logger).Enabled() {
				t.Error("logr adapter should be enabled at info level")
			}
		})
	}
}
