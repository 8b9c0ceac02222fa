package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/quizledger/internal/logger"
)

const (
	defaultListenAddr            = "localhost:8000"
	defaultLoggingLevel          = logger.LevelInfo
	defaultEnvironment           = logger.EnvProd
	defaultPointsRate            = "0.001"
	defaultMinWithdrawal         = "0.5"
	defaultReferralBonus         = 100
	defaultReferralRetryInterval = 30 * time.Second
	defaultOperationTimeout      = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// USDT received for one point and the least USDT amount member may withdraw
	// Kept as text to not lose precision, parsed on validation
	PointsRate    string
	MinWithdrawal string

	// Points credited to referrer for every referred member
	ReferralBonus int64

	// Members registered with these logins get admin role
	AdminLogins []string

	// How often pending referrals are retried
	ReferralRetryInterval time.Duration

	// Upper bound of every ledger operation
	OperationTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:              defaultLoggingLevel,
		ListenAddr:            defaultListenAddr,
		Environment:           defaultEnvironment,
		PointsRate:            defaultPointsRate,
		MinWithdrawal:         defaultMinWithdrawal,
		ReferralBonus:         defaultReferralBonus,
		ReferralRetryInterval: defaultReferralRetryInterval,
		OperationTimeout:      defaultOperationTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int64) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = strings.Split(value, ",")
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"DATABASE_URI":            setString(&c.DatabaseDSN),
		"SECRET_KEY":              setString(&c.SecretKey),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"ENVIRONMENT":             setString(&c.Environment),
		"POINTS_RATE":             setString(&c.PointsRate),
		"MIN_WITHDRAWAL":          setString(&c.MinWithdrawal),
		"REFERRAL_BONUS":          setInt(&c.ReferralBonus),
		"ADMIN_LOGINS":            setList(&c.AdminLogins),
		"REFERRAL_RETRY_INTERVAL": setDuration(&c.ReferralRetryInterval),
		"OPERATION_TIMEOUT":       setDuration(&c.OperationTimeout),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("quizledger", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.PointsRate, "points-rate", c.PointsRate, "USDT received for one point")
	fs.StringVar(&c.MinWithdrawal, "min-withdrawal", c.MinWithdrawal, "Minimum USDT amount to withdraw")
	fs.Int64Var(&c.ReferralBonus, "referral-bonus", c.ReferralBonus, "Points credited to referrer")
	fs.StringSliceVar(&c.AdminLogins, "admin-logins", c.AdminLogins, "Comma separated logins registered as admins")
	fs.DurationVar(&c.ReferralRetryInterval, "referral-retry-interval", c.ReferralRetryInterval, "Interval of pending referrals retry")
	fs.DurationVar(&c.OperationTimeout, "operation-timeout", c.OperationTimeout, "Timeout of every ledger operation")

	return fs.Parse(args)
}

// Check options are set and parsable
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}

	if rate, err := decimal.NewFromString(c.PointsRate); err != nil || !rate.IsPositive() {
		errs = append(errs, fmt.Errorf("points rate must be positive decimal, got '%s'", c.PointsRate))
	}
	if minimum, err := decimal.NewFromString(c.MinWithdrawal); err != nil || !minimum.IsPositive() {
		errs = append(errs, fmt.Errorf("min withdrawal must be positive decimal, got '%s'", c.MinWithdrawal))
	}
	if c.ReferralBonus <= 0 {
		errs = append(errs, fmt.Errorf("referral bonus must be positive, got %d", c.ReferralBonus))
	}
	if c.ReferralRetryInterval <= 0 {
		errs = append(errs, errors.New("referral retry interval must be positive"))
	}
	if c.OperationTimeout <= 0 {
		errs = append(errs, errors.New("operation timeout must be positive"))
	}

	return errors.Join(errs...)
}
