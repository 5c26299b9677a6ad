package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Prospectos-api/pkg/config"
)

// PoolOptions parámetros de sesión que la consola fija en cada conexión.
type PoolOptions struct {
	// ApplicationName aparece en pg_stat_activity.
	ApplicationName string
	// StatementTimeout tope del servidor por sentencia. Cero deja el del servidor.
	StatementTimeout time.Duration
	MaxConns         int32
}

// NewPool crea el pool de PostgreSQL de la consola. Acepta DATABASE_URL o los campos DB_*.
// Las conexiones prefieren IPv4 (Docker suele no tener IPv6).
func NewPool(ctx context.Context, cfg config.DBConfig, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	configurePool(poolConfig, opts)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

func configurePool(pc *pgxpool.Config, opts PoolOptions) {
	params := pc.ConnConfig.RuntimeParams
	if opts.ApplicationName != "" {
		params["application_name"] = opts.ApplicationName
	}
	if opts.StatementTimeout > 0 {
		ms := strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
		params["statement_timeout"] = ms
		// Los bloqueos de GetForUpdate tampoco esperan más que la sentencia.
		params["lock_timeout"] = ms
	}

	pc.ConnConfig.DialFunc = dialPreferIPv4
	pc.MaxConns = 25
	if opts.MaxConns > 0 {
		pc.MaxConns = opts.MaxConns
	}
	pc.MinConns = 2
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute
}

func dialPreferIPv4(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ipv4, err := resolveIPv4(ctx, host)
	if err != nil {
		return dialer.DialContext(ctx, network, addr)
	}
	return dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ipv4, port))
}

// resolveIPv4 devuelve la primera IPv4 del host; una IP literal se devuelve tal cual.
func resolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return host, nil
		}
		return "", fmt.Errorf("%s es IPv6", host)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("%s sin IPv4", host)
	}
	return ips[0].String(), nil
}
