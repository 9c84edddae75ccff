package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Engine.ProviderHashrateUnitHs != 1e6 {
		t.Errorf("Expected provider hashrate unit 1e6, got %g", cfg.Engine.ProviderHashrateUnitHs)
	}
	if cfg.Engine.ElectricityUsdPerKwh != 0.10 {
		t.Errorf("Expected default electricity cost 0.10, got %g", cfg.Engine.ElectricityUsdPerKwh)
	}
	if cfg.Upstream.RequestTimeout != 15*time.Second {
		t.Errorf("Expected default upstream timeout 15s, got %v", cfg.Upstream.RequestTimeout)
	}
	if cfg.BestCoin.BaseConfidence != 100 {
		t.Errorf("Expected base confidence 100, got %d", cfg.BestCoin.BaseConfidence)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ELECTRICITY_USD_PER_KWH", "0.25")
	t.Setenv("SNAPSHOT_WORKERS", "4")
	t.Setenv("BEST_COIN_RATE_AGE_THRESHOLD", "10m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Engine.ElectricityUsdPerKwh != 0.25 {
		t.Errorf("Expected electricity cost 0.25, got %g", cfg.Engine.ElectricityUsdPerKwh)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Engine.Workers)
	}
	if cfg.BestCoin.RateAgeThreshold != 10*time.Minute {
		t.Errorf("Expected rate age threshold 10m, got %v", cfg.BestCoin.RateAgeThreshold)
	}
}

func TestGetEnvAsFloat_Invalid(t *testing.T) {
	t.Setenv("ELECTRICITY_USD_PER_KWH", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	// Invalid values fall back to the default rather than failing the load
	if cfg.Engine.ElectricityUsdPerKwh != 0.10 {
		t.Errorf("Expected fallback to 0.10, got %g", cfg.Engine.ElectricityUsdPerKwh)
	}
}
