package cmd

import (
	"context"
	"log/slog"
	"testing"
)

func TestInitLoggerLevel(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("DERBY_LOG_JSON", "")

	logger := initLogger()
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled by default")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}

	t.Setenv("DEBUG", "1")
	logger = initLogger()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG env should enable debug level")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "ingest": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
