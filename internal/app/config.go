package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/localtime"
)

// Data source variants collapsed from the observed deployments: a live
// database dashboard and a file-only dashboard reading the exported
// snapshot.
const (
	SourceDB       = "db"
	SourceSnapshot = "snapshot"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DataSource string `envconfig:"DASH_DATA_SOURCE" default:"db"`

	PGDSN          string   `envconfig:"PG_DSN"`
	PGFallbackDSNs []string `envconfig:"PG_FALLBACK_DSNS"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	OutcomeID int64   `envconfig:"OUTCOME_ID" default:"1027"`
	UserIDs   []int64 `envconfig:"USER_IDS" default:"1220,12431,3,1336,1137,12432,12271,21,12366,32,1662,12436,12437,12433,1222,1404,12321,1770,12476,12167,1992,19,12079,12349,12082,12257,6,1956,1785,4,1494,12231,1205,1214,12478,12480,12481"`

	LocalZone     string `envconfig:"LOCAL_ZONE" default:"America/New_York"`
	CutoffPolicy  string `envconfig:"CUTOFF_POLICY" default:"rolling"`
	CutoffHourUTC int    `envconfig:"CUTOFF_HOUR_UTC" default:"4"`
	CutoffFixed   string `envconfig:"CUTOFF_FIXED"`

	AggregationMode string        `envconfig:"AGGREGATION_MODE" default:"source"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"30m"`

	RefreshSecret     string `envconfig:"REFRESH_SECRET"`
	RefreshSecretHash string `envconfig:"REFRESH_SECRET_BCRYPT"`

	RosterPath   string `envconfig:"ROSTER_PATH" default:"revops.csv"`
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"result.csv"`
	PublishDir   string `envconfig:"PUBLISH_DIR"`

	ExportCron string `envconfig:"EXPORT_CRON" default:"0 * * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	switch cfg.DataSource {
	case SourceDB, SourceSnapshot:
	default:
		return nil, fmt.Errorf("app: unknown DASH_DATA_SOURCE %q", cfg.DataSource)
	}
	switch localtime.CutoffPolicy(cfg.CutoffPolicy) {
	case localtime.PolicyRolling:
	case localtime.PolicyFixed:
		if strings.TrimSpace(cfg.CutoffFixed) == "" {
			return nil, fmt.Errorf("app: CUTOFF_POLICY=fixed requires CUTOFF_FIXED")
		}
	default:
		return nil, fmt.Errorf("app: unknown CUTOFF_POLICY %q", cfg.CutoffPolicy)
	}
	switch activity.Mode(cfg.AggregationMode) {
	case activity.ModeSource, activity.ModeClient:
	default:
		return nil, fmt.Errorf("app: unknown AGGREGATION_MODE %q", cfg.AggregationMode)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// ConnectionCandidates lists the DSNs to try in order. Empty when no
// credentials are configured at all.
func (c *Config) ConnectionCandidates() []string {
	var out []string
	if strings.TrimSpace(c.PGDSN) != "" {
		out = append(out, c.PGDSN)
	}
	for _, dsn := range c.PGFallbackDSNs {
		if strings.TrimSpace(dsn) != "" {
			out = append(out, dsn)
		}
	}
	return out
}

// Cutoff builds the configured cutoff from its parts.
func (c *Config) Cutoff(conv *localtime.Converter) (localtime.Cutoff, error) {
	cu := localtime.Cutoff{
		Policy:         localtime.CutoffPolicy(c.CutoffPolicy),
		RollingHourUTC: c.CutoffHourUTC,
	}
	if cu.Policy == localtime.PolicyFixed {
		fixed, err := conv.ParseLocal(c.CutoffFixed)
		if err != nil {
			return cu, fmt.Errorf("app: parse CUTOFF_FIXED: %w", err)
		}
		cu.FixedLocal = fixed.In(conv.Location())
	}
	return cu, nil
}

// Mode returns the configured aggregation mode.
func (c *Config) Mode() activity.Mode {
	return activity.Mode(c.AggregationMode)
}
