package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want zerolog.Level
		ok   bool
	}{
		"":         {zerolog.InfoLevel, false},
		"DEBUG":    {zerolog.DebugLevel, true},
		" warning": {zerolog.WarnLevel, true},
		"off":      {zerolog.Disabled, true},
		"loud":     {zerolog.InfoLevel, false},
	}
	for raw, tc := range cases {
		got, ok := ParseLevel(raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseLevel(%q) got=(%v,%v) want=(%v,%v)", raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogTimestamp, "not-a-bool")
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || !cfg.NoColor || !cfg.Timestamp {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestApplyWritesThroughGlobalLogger(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &buf})
	log.Debug().Msg("hidden")
	log.Info().Uint32("sender", 1).Msg("client.dispatch delivered")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %q", out)
	}
	if !strings.Contains(out, "client.dispatch delivered") || !strings.Contains(out, "sender=1") {
		t.Fatalf("missing info line: %q", out)
	}
}
