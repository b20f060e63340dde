package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Session describes one trading period of the experiment.
type Session struct {
	// PeriodLength is the trading window shown by the countdown.
	PeriodLength time.Duration
	// NumAssets selects a prefix of the asset universe (A, B, C, ...).
	NumAssets int
	// AssetEndowments are the period-start unit holdings, one per asset.
	AssetEndowments []int
	// CashEndowment is the period-start cash balance.
	CashEndowment decimal.Decimal
	// AllowShort permits offers beyond settled holdings. Enforcement is
	// the engine's job; the client only forwards it for display.
	AllowShort bool
}

// Engine locates the remote matching engine.
type Engine struct {
	URL string
}

// Client holds local wiring for this participant's process.
type Client struct {
	Pcode      string
	APIAddr    string
	LogFile    string
	JournalDir string
}

type Config struct {
	Session Session
	Engine  Engine
	Client  Client
}

func Default() Config {
	return Config{
		Session: Session{
			PeriodLength:    300 * time.Second,
			NumAssets:       2,
			AssetEndowments: []int{5, 5},
			CashEndowment:   decimal.NewFromInt(100),
			AllowShort:      false,
		},
		Engine: Engine{
			URL: "ws://localhost:8000/market",
		},
		Client: Client{
			Pcode:      "p1",
			APIAddr:    ":8080",
			LogFile:    "data/client.log",
			JournalDir: "data/journal",
		},
	}
}

// AssetNames returns the active asset universe: the first NumAssets
// capital letters.
func (s Session) AssetNames() []string {
	names := make([]string, 0, s.NumAssets)
	for i := 0; i < s.NumAssets; i++ {
		names = append(names, string(rune('A'+i)))
	}
	return names
}

// Endowments zips asset names with their configured unit endowments.
func (s Session) Endowments() (map[string]int, error) {
	names := s.AssetNames()
	if len(names) != len(s.AssetEndowments) {
		return nil, fmt.Errorf("invalid config: %d assets but %d endowments", len(names), len(s.AssetEndowments))
	}
	out := make(map[string]int, len(names))
	for i, name := range names {
		out[name] = s.AssetEndowments[i]
	}
	return out, nil
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("PERIOD_LENGTH_S"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Session.PeriodLength = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("NUM_ASSETS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.NumAssets = n
		}
	}
	if v := os.Getenv("ASSET_ENDOWMENTS"); v != "" {
		// Space-separated units per asset, e.g. "5 5 10"
		var endowments []int
		for _, field := range strings.Fields(v) {
			if n, err := strconv.Atoi(field); err == nil {
				endowments = append(endowments, n)
			}
		}
		if len(endowments) > 0 {
			cfg.Session.AssetEndowments = endowments
		}
	}
	if v := os.Getenv("CASH_ENDOWMENT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Session.CashEndowment = d
		}
	}
	if v := os.Getenv("ALLOW_SHORT"); v != "" {
		cfg.Session.AllowShort = v == "true"
	}

	if v := os.Getenv("ENGINE_URL"); v != "" {
		cfg.Engine.URL = v
	}
	if v := os.Getenv("PCODE"); v != "" {
		cfg.Client.Pcode = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Client.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Client.LogFile = v
	}
	if v := os.Getenv("JOURNAL_DIR"); v != "" {
		cfg.Client.JournalDir = v
	}

	return cfg
}
