package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// BrokerProfile carries everything that differs between the paper and live
// trading endpoints. It is resolved once at startup; nothing downstream
// branches on the paper flag again.
type BrokerProfile struct {
	Paper     bool
	BaseURL   string
	AppKey    string
	AppSecret string
	Account   string

	// MinInterval is the minimum delay between consecutive broker-API calls.
	// The paper endpoint enforces a stricter rate limit than live.
	MinInterval time.Duration
}

const (
	liveMinInterval  = 200 * time.Millisecond
	paperMinInterval = 500 * time.Millisecond
)

// LoadEnv reads a .env file if present. Missing file is not an error so the
// process also runs with plain environment variables.
func LoadEnv(path string) {
	_ = godotenv.Load(path)
}

// ResolveBrokerProfile builds the endpoint profile for the chosen mode from
// environment variables (LIVE_* or PAPER_* prefixed).
func ResolveBrokerProfile(paper bool) (BrokerProfile, error) {
	prefix := "LIVE"
	interval := liveMinInterval
	if paper {
		prefix = "PAPER"
		interval = paperMinInterval
	}
	p := BrokerProfile{
		Paper:       paper,
		BaseURL:     os.Getenv(prefix + "_BASE_URL"),
		AppKey:      os.Getenv(prefix + "_APP_KEY"),
		AppSecret:   os.Getenv(prefix + "_APP_SECRET"),
		Account:     os.Getenv(prefix + "_ACCOUNT"),
		MinInterval: interval,
	}
	if p.BaseURL == "" || p.AppKey == "" || p.AppSecret == "" || p.Account == "" {
		return BrokerProfile{}, fmt.Errorf("incomplete %s broker credentials in environment", prefix)
	}
	return p, nil
}
