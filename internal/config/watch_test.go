package config

import (
	"context"
	"os"
	"testing"
	"time"

	logx "motibot/pkg/logx"
)

func TestWatchPublishesValidReloads(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	path := writeConfig(t, "telegram:\n  token: \"123:abc\"\nlogging:\n  level: INFO\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Watch(ctx, path, logx.Nop())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("telegram:\n  token: \"123:abc\"\nlogging:\n  level: DEBUG\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "DEBUG" {
			t.Fatalf("level = %q, want DEBUG", cfg.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
}

func TestWatchShutdownDuringPendingReload(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	path := writeConfig(t, "telegram:\n  token: \"123:abc\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Watch(ctx, path, logx.Nop())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Cancel just before the debounce timer fires, while a reload is still
	// pending: shutdown must close the channel cleanly, not crash.
	if err := os.WriteFile(path, []byte("telegram:\n  token: \"123:abc\"\nlogging:\n  level: DEBUG\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	time.Sleep(debounceDelay - 5*time.Millisecond)
	cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel did not close after cancel")
		}
	}
}

func TestWatchSkipsInvalidConfig(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	path := writeConfig(t, "telegram:\n  token: \"123:abc\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Watch(ctx, path, logx.Nop())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Token removed: Load fails validation, so nothing may be published.
	if err := os.WriteFile(path, []byte("logging:\n  level: DEBUG\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg, ok := <-ch:
		if ok {
			t.Fatalf("unexpected publish: %+v", cfg)
		}
	case <-time.After(1 * time.Second):
		// expected: invalid content is skipped
	}
}
