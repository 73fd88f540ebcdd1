package commands

import (
	"fmt"
	"time"

	"edcompanion/internal/companion"
	"edcompanion/internal/components/configutil"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/eddn"
	"edcompanion/internal/normalize"
	"edcompanion/internal/tradedb"
)

type EddnConfig struct {
	Gateways      []string `json:"gateways"`
	SoftwareName  string   `json:"software_name"`
	PlainUploader bool     `json:"plain_uploader"`
	Test          bool     `json:"test"`
}

type Config struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// Basename is the prefix of the cookie and vars files.
	Basename         string  `json:"basename"`
	CookieFile       string  `json:"cookie_file"`
	Detection        string  `json:"detection"`
	SettleDelayMs    int     `json:"settle_delay_ms"`
	RateLimit        float64 `json:"rate_limit"`
	BypassCloudflare bool    `json:"bypass_cloudflare"`

	DemandPolicy string `json:"demand_policy"`
	StrictNames  bool   `json:"strict_names"`

	TradeDb tradedb.Config       `json:"trade_db"`
	Eddn    EddnConfig           `json:"eddn"`
	Log     telemetry.LogConfig  `json:"log"`
	Otlp    telemetry.OtlpConfig `json:"otlp"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:       companion.DefaultBaseUrl,
		UserAgent:     companion.DefaultUserAgent,
		Basename:      "edapi",
		Detection:     string(companion.DetectBoth),
		SettleDelayMs: int(companion.DefaultSettleDelay / time.Millisecond),
		DemandPolicy:  string(normalize.KeepSell),
		TradeDb: tradedb.Config{
			File: "data/TradeDangerous.db",
		},
		Eddn: EddnConfig{
			Gateways:     eddn.DefaultGateways,
			SoftwareName: "EDAPI",
		},
	}
}

func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadWithDefaults(path, DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) cookieFile() string {
	if c.CookieFile != "" {
		return c.CookieFile
	}
	return c.Basename + ".cookies"
}

func (c Config) varsFile() string {
	return c.Basename + ".vars"
}
