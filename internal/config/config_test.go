package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const curveAddr = "0x00000000000000000000000000000000000000c1"

func validConfig() Config {
	return Config{
		Network: NetworkConfig{
			ChainID:      31337,
			HTTPURL:      "http://localhost:8545",
			CurveAddress: curveAddr,
		},
		Curve:     CurveConfig{PollInterval: 12 * time.Second, DebounceDelay: 600 * time.Millisecond},
		Trading:   TradingConfig{SlippagePct: 1, ReceiptTimeout: time.Minute},
		Arbitrage: ArbitrageConfig{MinProfitabilityBps: 200, MaxResults: 10},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing_rpc", mutate: func(c *Config) { c.Network.HTTPURL = "" }, wantErr: "http_url"},
		{name: "bad_curve", mutate: func(c *Config) { c.Network.CurveAddress = "nope" }, wantErr: "curve_address"},
		{name: "bad_oracle", mutate: func(c *Config) { c.Network.OracleAddress = "0x12" }, wantErr: "oracle_address"},
		{name: "slippage_too_high", mutate: func(c *Config) { c.Trading.SlippagePct = 100 }, wantErr: "slippage_pct"},
		{name: "negative_slippage", mutate: func(c *Config) { c.Trading.SlippagePct = -1 }, wantErr: "slippage_pct"},
		{name: "zero_results", mutate: func(c *Config) { c.Arbitrage.MaxResults = 0 }, wantErr: "max_results"},
		{name: "redis_without_addr", mutate: func(c *Config) { c.Redis.Enabled = true }, wantErr: "redis.addr"},
		{name: "postgres_without_dsn", mutate: func(c *Config) { c.Postgres.Enabled = true }, wantErr: "postgres.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
network:
  http_url: http://localhost:8545
  curve_address: ` + curveAddr + `
  season_id: 7
arbitrage:
  max_results: 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Network.SeasonID != 7 {
		t.Errorf("season_id = %d", cfg.Network.SeasonID)
	}
	if cfg.Arbitrage.MaxResults != 5 {
		t.Errorf("max_results = %d", cfg.Arbitrage.MaxResults)
	}
	if cfg.Curve.PollInterval != 12*time.Second {
		t.Errorf("poll_interval default = %v", cfg.Curve.PollInterval)
	}
	if cfg.Curve.DebounceDelay != 600*time.Millisecond {
		t.Errorf("debounce default = %v", cfg.Curve.DebounceDelay)
	}
	if cfg.Arbitrage.MinProfitabilityBps != 200 {
		t.Errorf("min_profitability default = %v", cfg.Arbitrage.MinProfitabilityBps)
	}
	if cfg.Network.CurveAddressHex() != common.HexToAddress(curveAddr) {
		t.Errorf("curve = %s", cfg.Network.CurveAddressHex().Hex())
	}
	if _, ok := cfg.Network.PaymentTokenHex(); ok {
		t.Error("payment token should be unset")
	}
}

func TestLoad_UnquotedAddresses(t *testing.T) {
	const (
		oracle = "0x00000000000000000000000000000000000000A2"
		token  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "short_hex_decoded_as_int",
			body: "  curve_address: " + curveAddr + "\n  oracle_address: " + oracle + "\n  payment_token: " + token + "\n",
		},
		{
			name: "quoted",
			body: "  curve_address: \"" + curveAddr + "\"\n  oracle_address: \"" + oracle + "\"\n  payment_token: \"" + token + "\"\n",
		},
		{
			name:    "negative",
			body:    "  curve_address: -5\n",
			wantErr: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			body := "network:\n  http_url: http://localhost:8545\n" + tt.body
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if cfg.Network.CurveAddressHex() != common.HexToAddress(curveAddr) {
				t.Errorf("curve = %s", cfg.Network.CurveAddressHex().Hex())
			}
			if cfg.Network.OracleAddressHex() != common.HexToAddress(oracle) {
				t.Errorf("oracle = %s", cfg.Network.OracleAddressHex().Hex())
			}
			if got, ok := cfg.Network.PaymentTokenHex(); !ok || got != common.HexToAddress(token) {
				t.Errorf("payment token = %s, %v", got.Hex(), ok)
			}
		})
	}
}
