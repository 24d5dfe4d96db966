package config

// Config is lootbot's on-disk configuration (JSON or YAML).
//
// The bot token and the listening port are normally supplied through the
// environment (BOT_TOKEN, PORT) and override whatever the file says; see
// applyEnv. All durations are Go duration strings (e.g. "10s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Catalog  CatalogConfig  `json:"catalog,omitempty"`
	Check    CheckConfig    `json:"check,omitempty"`
	Storage  StorageConfig  `json:"storage,omitempty"`
	Web      WebConfig      `json:"web,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// PollTimeout is the long-poll timeout, a Go duration string.
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec caps outbound sends during a broadcast.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type CatalogConfig struct {
	URL     string `json:"url,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// CheckConfig controls when cycles fire and what qualifies as a giveaway.
type CheckConfig struct {
	// Times are daily fire times as "HH:MM" in Timezone.
	Times    []string `json:"times,omitempty"`
	Timezone string   `json:"timezone,omitempty"`
	// PriceFloorCents rejects "promotions" on items whose reported
	// original price is at or below this floor.
	PriceFloorCents int `json:"price_floor_cents,omitempty"`
}

type StorageConfig struct {
	LedgerPath   string `json:"ledger_path,omitempty"`
	RegistryPath string `json:"registry_path,omitempty"`
}

type WebConfig struct {
	Addr string `json:"addr,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level,omitempty"`
	Console  bool            `json:"console,omitempty"`
	File     LoggingFile     `json:"file,omitempty"`
	Telegram LoggingTelegram `json:"telegram,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingTelegram mirrors logx.TelegramConfig: warnings and errors can be
// relayed to an operator chat, rate limited.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

const (
	defaultCatalogURL     = "https://store.steampowered.com/api/featured/"
	defaultCatalogTimeout = "30s"
	defaultTimezone       = "Europe/Paris"
	defaultWebAddr        = ":8080"
	defaultLedgerPath     = "./data/sent_games.json"
	defaultRegistryPath   = "./data/recipients.db"
)

func (c *Config) applyDefaults() {
	if c.Catalog.URL == "" {
		c.Catalog.URL = defaultCatalogURL
	}
	if c.Catalog.Timeout == "" {
		c.Catalog.Timeout = defaultCatalogTimeout
	}
	if len(c.Check.Times) == 0 {
		c.Check.Times = []string{"09:00", "19:00"}
	}
	if c.Check.Timezone == "" {
		c.Check.Timezone = defaultTimezone
	}
	if c.Storage.LedgerPath == "" {
		c.Storage.LedgerPath = defaultLedgerPath
	}
	if c.Storage.RegistryPath == "" {
		c.Storage.RegistryPath = defaultRegistryPath
	}
	if c.Web.Addr == "" {
		c.Web.Addr = defaultWebAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
		c.Logging.Console = true
	}
	if c.Telegram.RatePerSec <= 0 {
		c.Telegram.RatePerSec = 3
	}
}
