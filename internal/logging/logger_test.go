package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupWithOverrides_NamedLoggerUsesOverrideLevel(t *testing.T) {
	SetupWithOverrides("error", "json", map[string]string{"enrich": "debug"})
	defer SetupWithOverrides("info", "json", nil)

	named := Named("enrich")
	if !named.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled for a logger with a debug override")
	}

	other := Named("fetch")
	if other.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to stay disabled for a logger without an override (base level is error)")
	}
}

func TestSetupWithOverrides_NoOverrideUsesBaseLevel(t *testing.T) {
	SetupWithOverrides("warn", "json", nil)
	defer SetupWithOverrides("info", "json", nil)

	if Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info to be disabled at base level warn")
	}
	if !Logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("expected warn to be enabled at base level warn")
	}
}

func TestNamed_AttrsSurviveOverrideWrapping(t *testing.T) {
	SetupWithOverrides("info", "json", map[string]string{"enrich": "error"})
	defer SetupWithOverrides("info", "json", nil)

	named := Named("enrich").With("model_id", "m")
	if named.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("expected warn to be disabled once overridden to error, even after With()")
	}
}
