package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/foxzi/fundchain/internal/config"
	"github.com/foxzi/fundchain/internal/journal"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := setupLogger(config.LoggingConfig{Level: tt.level, Format: "text"})
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
		})
	}
}

func TestJournalStatsAdapter(t *testing.T) {
	storage, err := journal.NewBoltStorage(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewBoltStorage() error = %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	for i, status := range []journal.Status{journal.StatusSettled, journal.StatusSettled, journal.StatusReverted} {
		e := &journal.Entry{
			ID:      string(rune('a' + i)),
			Account: "0x1111111111111111111111111111111111111111",
			Action:  "fund",
			Status:  status,
		}
		if err := storage.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	stats, err := journalStats{storage}.JournalStats(ctx)
	if err != nil {
		t.Fatalf("JournalStats() error = %v", err)
	}
	if stats.Settled != 2 || stats.Reverted != 1 || stats.Submitted != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
