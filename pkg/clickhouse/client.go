package clickhouse

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// ClientOption adjusts the driver options before the pool is opened.
type ClientOption func(*ch.Options)

func WithAddr(host string, port int) ClientOption {
	return func(o *ch.Options) {
		o.Addr = []string{net.JoinHostPort(host, strconv.Itoa(port))}
	}
}

func WithDatabase(database string) ClientOption {
	return func(o *ch.Options) { o.Auth.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(o *ch.Options) {
		o.Auth.Username = user
		o.Auth.Password = password
	}
}

// WithHTTP switches to the HTTP interface (port 8123 by default on the server).
func WithHTTP(useHTTP bool) ClientOption {
	return func(o *ch.Options) {
		if useHTTP {
			o.Protocol = ch.HTTP
		} else {
			o.Protocol = ch.Native
		}
	}
}

func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(o *ch.Options) {
		if dial > 0 {
			o.DialTimeout = dial
		}
		if read > 0 {
			o.ReadTimeout = read
		}
	}
}

// Options returns the driver options NewClient would use.
func Options(opts ...ClientOption) *ch.Options {
	o := &ch.Options{
		Protocol:        ch.Native,
		Auth:            ch.Auth{Database: "default", Username: "default"},
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client is a ClickHouse pool exposed through sqlx.
type Client struct {
	db *sqlx.DB
}

// NewClient opens and pings a ClickHouse connection pool.
func NewClient(opts ...ClientOption) (*Client, error) {
	o := Options(opts...)
	if len(o.Addr) == 0 {
		return nil, fmt.Errorf("clickhouse: address is required")
	}

	db := sqlx.NewDb(ch.OpenDB(o), "clickhouse")
	ctx, cancel := context.WithTimeout(context.Background(), o.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %v: %w", o.Addr, err)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *sqlx.DB { return c.db }

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InitSchema runs idempotent DDL statements in order.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema statement %d: %w", i, err)
		}
	}
	return nil
}
