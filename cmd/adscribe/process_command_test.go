package main

import (
	"testing"

	"adscribe/internal/config"
)

func TestCheckSourceURL(t *testing.T) {
	cfg := config.Default()
	if _, err := checkSourceURL(&cfg, "https://www.facebook.com/ads/library/?id=123456"); err != nil {
		t.Fatalf("expected ad library url accepted: %v", err)
	}
	if _, err := checkSourceURL(&cfg, "https://example.com/video"); err == nil {
		t.Fatal("expected foreign url rejected")
	}
	if _, err := checkSourceURL(&cfg, "   "); err == nil {
		t.Fatal("expected empty url rejected")
	}
}

func TestProcessRejectsUnknownLanguage(t *testing.T) {
	env := setupCLITestEnv(t, "xi-test")
	_, _, err := runCLI(t, []string{"process", "https://www.facebook.com/ads/library/?id=1", "--language", "zz-notalanguage"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown language to fail before fetching")
	}
}

func TestProcessRequiresProviderKey(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"process", "https://www.facebook.com/ads/library/?id=1"}, env.configPath)
	if err == nil {
		t.Fatalf("expected missing provider key to fail, got output %q", out)
	}
	requireContains(t, err.Error(), "transcription provider not configured")
}
