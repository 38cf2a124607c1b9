package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
// The sale constants are immutable for the life of the process; nothing
// re-reads the environment after Load returns.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// Sale economics.
	FixedSupply  float64
	TotalMintCap float64
	WhaleRatio   float64
	TrancheRatio float64
	CeilingRatio float64
	NetworkFee   float64
	SaleCloseAt  time.Time

	// Payment gateway.
	PaymentAPIBaseURL string
	PaymentAPIKey     string
	PaymentAPITimeout time.Duration

	// Engine cadence.
	VestingInterval time.Duration
	RunLockLease    time.Duration

	EnableSettlementJob       bool
	EnableVestingJob          bool
	EnableDividendConsumer    bool
	EnableReconciliationJob   bool
	EnableSaleOutboxRelay     bool
	EnableTreasuryOutboxRelay bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "tidepool"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		FixedSupply:  envFloat("SALE_FIXED_SUPPLY", 2181818),
		TotalMintCap: envFloat("SALE_TOTAL_MINT_CAP", 24000000),
		WhaleRatio:   envFloat("SALE_WHALE_RATIO", 0.10),
		TrancheRatio: envFloat("SALE_TRANCHE_RATIO", 0.10),
		CeilingRatio: envFloat("SALE_DIVIDEND_CEILING_RATIO", 0.10),
		NetworkFee:   envFloat("SALE_NETWORK_FEE", 0.01),
		SaleCloseAt:  envTime("SALE_CLOSE_AT"),

		PaymentAPIBaseURL: os.Getenv("PAYMENT_API_BASE_URL"),
		PaymentAPIKey:     os.Getenv("PAYMENT_API_KEY"),
		PaymentAPITimeout: envDuration("PAYMENT_API_TIMEOUT", 30*time.Second),

		VestingInterval: envDuration("VESTING_INTERVAL", 30*24*time.Hour),
		RunLockLease:    envDuration("RUN_LOCK_LEASE", 15*time.Minute),

		EnableSettlementJob:       envBool("ENABLE_SETTLEMENT_JOB", true),
		EnableVestingJob:          envBool("ENABLE_VESTING_JOB", true),
		EnableDividendConsumer:    envBool("ENABLE_DIVIDEND_CONSUMER", true),
		EnableReconciliationJob:   envBool("ENABLE_RECONCILIATION_JOB", true),
		EnableSaleOutboxRelay:     envBool("ENABLE_SALE_OUTBOX_RELAY", true),
		EnableTreasuryOutboxRelay: envBool("ENABLE_TREASURY_OUTBOX_RELAY", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envTime(name string) time.Time {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return time.Time{}
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return value.UTC()
}
