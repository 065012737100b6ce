package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// Exchange lifecycle knobs.
	ListingExpiry      time.Duration // listings expire this long after creation
	MatchExpiry        time.Duration // bids expire this long after proposal
	SweepInterval      time.Duration // 0 disables the in-process expiry sweep
	ConfirmBothParties bool          // settlement requires both parties to confirm
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = viper.GetString("DATABASE_URL")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	listingDays := viper.GetInt("LISTING_EXPIRY_DAYS")
	if listingDays <= 0 {
		listingDays = 30
	}
	matchHours := viper.GetInt("MATCH_EXPIRY_HOURS")
	if matchHours <= 0 {
		matchHours = 48
	}
	sweepMinutes := 15
	if viper.IsSet("SWEEP_INTERVAL_MINUTES") {
		sweepMinutes = viper.GetInt("SWEEP_INTERVAL_MINUTES")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		ListingExpiry:       time.Duration(listingDays) * 24 * time.Hour,
		MatchExpiry:         time.Duration(matchHours) * time.Hour,
		SweepInterval:       time.Duration(sweepMinutes) * time.Minute,
		ConfirmBothParties:  strings.EqualFold(viper.GetString("CONFIRM_BOTH_PARTIES"), "true"),
	}, nil
}
