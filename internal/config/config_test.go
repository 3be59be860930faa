package config

import (
	"strings"
	"testing"
	"time"

	"github.com/jmilloy/notewall/internal/models"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "" || cfg.BoardID != "" {
		t.Fatalf("empty dir yielded non-empty config: %+v", cfg)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	in := &models.Config{
		ServerURL: "https://notes.example.com",
		APIKey:    "key-1",
		BoardID:   "bd-7",
		Webhook:   &models.WebhookConfig{URL: "https://hooks.example.com/x", Secret: "s"},
	}
	if err := Save(dir, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.ServerURL != in.ServerURL || out.BoardID != in.BoardID {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}
	if out.Webhook == nil || out.Webhook.URL != in.Webhook.URL {
		t.Fatalf("webhook lost in roundtrip: %+v", out.Webhook)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &models.Config{ServerURL: "https://file.example.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("NOTEWALL_SERVER_URL", "https://env.example.com")

	if got := GetServerURL(dir); got != "https://env.example.com" {
		t.Fatalf("GetServerURL = %q, want env value", got)
	}
}

func TestEnsureDeviceIDStable(t *testing.T) {
	dir := t.TempDir()

	first, err := EnsureDeviceID(dir)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !strings.HasPrefix(first, "dev-") {
		t.Fatalf("device id = %q", first)
	}

	second, err := EnsureDeviceID(dir)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second != first {
		t.Fatalf("device id changed between calls: %q != %q", second, first)
	}
}

func TestSetBoardPersists(t *testing.T) {
	dir := t.TempDir()
	if err := SetBoard(dir, "bd-42"); err != nil {
		t.Fatalf("set board: %v", err)
	}
	got, err := GetBoard(dir)
	if err != nil {
		t.Fatalf("get board: %v", err)
	}
	if got != "bd-42" {
		t.Fatalf("board = %q, want bd-42", got)
	}
}

func TestPollTuningDefaultsAndOverrides(t *testing.T) {
	base, max, idle := PollTuning(nil)
	if base != DefaultPollBaseInterval || max != DefaultPollMaxInterval || idle != DefaultPollIdleCycles {
		t.Fatalf("defaults = %v %v %d", base, max, idle)
	}

	cfg := &models.Config{Poll: &models.PollConfig{BaseIntervalMS: 2000, MaxIntervalMS: 10000, IdleCycles: 5}}
	base, max, idle = PollTuning(cfg)
	if base != 2*time.Second || max != 10*time.Second || idle != 5 {
		t.Fatalf("overrides = %v %v %d", base, max, idle)
	}
}
