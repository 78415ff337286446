package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/spf13/viper"

	"coi-backend/internal/shared/telemetry"
)

// ErrNoDatabaseURL is returned when the catalog database is selected without a DSN.
var ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")

// Profile names a pool sizing preset.
type Profile string

const (
	// ProfileServer suits the long-running API process.
	ProfileServer Profile = "server"
	// ProfileLambda keeps the pool small; each instance serves one request at a time.
	ProfileLambda Profile = "lambda"
	// ProfileMigrate is a single connection for schema changes.
	ProfileMigrate Profile = "migrate"
)

// Options controls pool sizing and the startup ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var presets = map[Profile]Options{
	ProfileServer:  {MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
	ProfileLambda:  {MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute, PingTimeout: 3 * time.Second},
	ProfileMigrate: {MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
}

var (
	openDB = sql.Open

	sharedMu sync.Mutex
	sharedDB *sql.DB
)

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// PoolOptions returns the preset for p with DB_* environment overrides applied.
// Unknown profiles use the server preset.
func PoolOptions(p Profile) Options {
	opts, ok := presets[p]
	if !ok {
		opts = presets[ProfileServer]
	}

	v := viper.New()
	v.AutomaticEnv()
	if n := v.GetInt("DB_MAX_OPEN_CONNS"); n > 0 {
		opts.MaxOpenConns = n
	}
	if n := v.GetInt("DB_MAX_IDLE_CONNS"); n > 0 {
		opts.MaxIdleConns = n
	}
	if d := v.GetDuration("DB_CONN_MAX_LIFETIME"); d > 0 {
		opts.ConnMaxLifetime = d
	}
	if d := v.GetDuration("DB_CONN_MAX_IDLE_TIME"); d > 0 {
		opts.ConnMaxIdleTime = d
	}
	if d := v.GetDuration("DB_PING_TIMEOUT"); d > 0 {
		opts.PingTimeout = d
	}
	return opts
}

// Connect opens the catalog database through pgx and pings it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}
	conn, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	configurePool(conn, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	stats := conn.Stats()
	telemetry.Info("catalog.db_connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return conn, nil
}

// Shared returns a process-wide connection, connecting on first use.
// A failed attempt is not cached; the next call connects again.
func Shared(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedDB != nil {
		return sharedDB, nil
	}
	conn, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	sharedDB = conn
	return sharedDB, nil
}

func configurePool(conn *sql.DB, opts Options) {
	def := presets[ProfileServer]
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = def.MaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = def.MaxIdleConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = def.ConnMaxLifetime
	}
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
