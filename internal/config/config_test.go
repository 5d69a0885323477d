package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port: got %q, want 8080", cfg.Port)
	}
	if len(cfg.DailySchedule) != 7 {
		t.Fatalf("schedule length: got %d, want 7", len(cfg.DailySchedule))
	}
	if cfg.DailySchedule[6] != 200 {
		t.Errorf("jackpot slot: got %d, want 200", cfg.DailySchedule[6])
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("request timeout: got %s, want 10s", cfg.RequestTimeout)
	}
	if cfg.QuestBatchSize != 4 || cfg.RerollCap != 2 {
		t.Errorf("quest knobs: batch %d cap %d, want 4 and 2", cfg.QuestBatchSize, cfg.RerollCap)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DAILY_REWARD_SCHEDULE", "10,20,30,40,50,60,70")
	t.Setenv("QUEST_REROLL_CAP", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DailySchedule[0] != 10 || cfg.DailySchedule[6] != 70 {
		t.Errorf("schedule: got %v", cfg.DailySchedule)
	}
	if cfg.RerollCap != 5 {
		t.Errorf("reroll cap: got %d, want 5", cfg.RerollCap)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	t.Setenv("DAILY_REWARD_SCHEDULE", "10,20,30")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short schedule")
	}

	t.Setenv("DAILY_REWARD_SCHEDULE", "10,20,30,40,50,60,-70")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative reward")
	}
}
