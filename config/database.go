package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const DefaultPageSize = 50

const maxConnectBackoff = 30 * time.Second

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	godotenv.Load()
	// init never dials; main() connects after the port is open.
}

// databaseDSN builds the mysql DSN from DB_* env. A DB_HOST of "/cloudsql/<CONNECTION_NAME>"
// dials the Cloud SQL proxy's unix socket.
func databaseDSN() string {
	host := os.Getenv("DB_HOST")
	network, address := "tcp", fmt.Sprintf("%s:%s", host, os.Getenv("DB_PORT"))
	if strings.HasPrefix(host, "/cloudsql/") {
		network, address = "unix", host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&loc=UTC",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		network,
		address,
		os.Getenv("DB_NAME"),
	)
}

// configurePool applies DB_MAX_OPEN_CONNS (50), DB_MAX_IDLE_CONNS (25),
// DB_CONN_MAX_LIFETIME_SECONDS (300) and DB_CONN_MAX_IDLE_TIME_SECONDS (60).
func configurePool(sqlDB *sql.DB) {
	if maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 50); maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 25); maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if life := intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300); life > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(life) * time.Second)
	}
	if idle := intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60); idle > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(idle) * time.Second)
	}
}

// retryDelay doubles per attempt (2s, 4s, ...) and is capped at 30s.
func retryDelay(attempt int) time.Duration {
	delay := time.Second * time.Duration(1<<min(attempt, 5))
	if delay > maxConnectBackoff {
		delay = maxConnectBackoff
	}
	return delay
}

// ConnectDatabaseWithRetry blocks until the DB is reachable and sets the global DB,
// installing the otelgorm and tenant guard plugins.
func ConnectDatabaseWithRetry() {
	dsn := databaseDSN()
	for attempt := 1; ; attempt++ {
		conn, err := gorm.Open(mysql.Open(dsn), initConfig())
		if err == nil {
			if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
				configurePool(sqlDB)
			}
			if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
				LogError(GetLogger(), "config", "ConnectDatabaseWithRetry", "otelgorm plugin", nil, pluginErr)
			}
			if pluginErr := conn.Use(NewTenantGuardPlugin()); pluginErr != nil {
				LogError(GetLogger(), "config", "ConnectDatabaseWithRetry", "tenant guard plugin", nil, pluginErr)
			}
			db = conn
			GetLogger().WithFields(logrus.Fields{"attempt": attempt}).Info("connected to database")
			return
		}

		delay := retryDelay(attempt)
		GetLogger().WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   delay.String(),
		}).Warn("failed to connect database: " + err.Error())
		time.Sleep(delay)
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: &schema.NamingStrategy{},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// initLog writes gorm errors (GORM_LOG_LEVEL=info for all SQL) with a 1s slow threshold.
func initLog() logger.Interface {
	level := logger.Error
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GORM_LOG_LEVEL")), "info") {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      level,
			SlowThreshold: time.Second,
		},
	)
}
