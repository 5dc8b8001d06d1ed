package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/adapters/out/postgres"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	TransportLog   = "log"
	TransportKafka = "kafka"
)

type Config struct {
	HTTPPort string
	Storage  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	SQLitePath string

	NotifyTransport        string
	KafkaBrokers           string
	KafkaNotificationTopic string

	CommandTimeout        time.Duration
	NotificationFlushSpec string
	AnalyticsCatchUpSpec  string

	OTLPEndpoint   string
	TracingEnabled bool
	ServiceVersion string
}

// Validate rejects settings the composition root cannot act on.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	switch c.NotifyTransport {
	case TransportLog:
	case TransportKafka:
		if len(c.Brokers()) == 0 {
			return errors.New("KAFKA_BROKERS is required with NOTIFY_TRANSPORT=kafka")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT is required")
	}
	return nil
}

// PostgresURL is the connection URL used by gorm and the migrator.
func (c Config) PostgresURL() string {
	return postgres.URL(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// Brokers splits KAFKA_BROKERS on commas.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
