package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string `env:"TOKEN,required"`
		WebAppURL        string `env:"WEBAPP_URL,default=https://app.wormz.local"`
		ListenAddr       string `env:"LISTEN_ADDR,default=:8080"`
		MetricsAddr      string `env:"METRICS_ADDR,default=:2112"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		DotPath          string `env:"DOT_PATH,default=~/.wormz"`
		DBFile           string `env:"DB_FILE,default=wormz.db"`

		Ratings  Ratings
		Limits   Limits
		Schedule Schedule
	}

	// Ratings holds the reputation thresholds and deltas that gate and
	// reward participation.
	Ratings struct {
		Initial     int `env:"RATING_INITIAL,default=100"`
		JoinMin     int `env:"RATING_JOIN_MIN,default=60"`
		CreateMin   int `env:"RATING_CREATE_MIN,default=80"`
		Reward      int `env:"RATING_REWARD,default=2"`
		HoldPenalty int `env:"RATING_HOLD_PENALTY,default=10"`
	}

	Limits struct {
		DailyPosts   int           `env:"DAILY_POSTS,default=3"`
		PostCooldown time.Duration `env:"POST_COOLDOWN,default=1h"`
		PostTTL      time.Duration `env:"POST_TTL,default=24h"`
		MutualTTL    time.Duration `env:"MUTUAL_TTL,default=24h"`
		ChatTTL      time.Duration `env:"CHAT_TTL,default=24h"`
	}

	Schedule struct {
		HoldCheckInterval    time.Duration `env:"HOLD_CHECK_INTERVAL,default=6h"`
		ChannelCheckInterval time.Duration `env:"CHANNEL_CHECK_INTERVAL,default=12h"`
		ChatExpiryInterval   time.Duration `env:"CHAT_EXPIRY_INTERVAL,default=1h"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("WORMZ_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
