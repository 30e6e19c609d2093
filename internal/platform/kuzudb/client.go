package kuzudb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kuzudb/go-kuzu"

	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

type Config struct {
	Path         string
	BufferPoolMB int
	MaxThreads   int
	QueryTimeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Path:         envutil.String("KUZU_DB_PATH", ""),
		BufferPoolMB: envutil.Int("KUZU_BUFFER_POOL_MB", 0),
		MaxThreads:   envutil.Int("KUZU_MAX_THREADS", 0),
		QueryTimeout: envutil.Seconds("KUZU_QUERY_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// Client owns an embedded Kuzu database opened read-only. Each query gets its
// own connection so batch questions can run concurrently.
type Client struct {
	DB      *kuzu.Database
	timeout time.Duration
	log     *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("kuzudb: logger required")
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("kuzudb: KUZU_DB_PATH required")
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}

	sys := kuzu.DefaultSystemConfig()
	sys.ReadOnly = true
	if cfg.BufferPoolMB > 0 {
		sys.BufferPoolSize = uint64(cfg.BufferPoolMB) * 1024 * 1024
	}
	if cfg.MaxThreads > 0 {
		sys.MaxNumThreads = uint64(cfg.MaxThreads)
	}
	db, err := kuzu.OpenDatabase(path, sys)
	if err != nil {
		return nil, fmt.Errorf("kuzudb: open database: %w", err)
	}

	log.Info("kuzu opened", "path", path, "read_only", true)
	return &Client{
		DB:      db,
		timeout: cfg.QueryTimeout,
		log:     log.With("client", "KuzuDB"),
	}, nil
}

// Query runs one statement on a fresh connection and returns every row as a
// slice of raw driver values. Cancelling ctx interrupts the statement.
func (c *Client) Query(ctx context.Context, cypher string) ([][]any, error) {
	if c == nil || c.DB == nil {
		return nil, fmt.Errorf("kuzudb: database closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := kuzu.OpenConnection(c.DB)
	if err != nil {
		return nil, fmt.Errorf("kuzudb: open connection: %w", err)
	}
	defer conn.Close()
	conn.SetTimeout(uint64(c.timeout.Milliseconds()))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Interrupt()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	res, err := conn.Query(cypher)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, err
		}
		values, err := tuple.GetAsSlice()
		tuple.Close()
		if err != nil {
			return nil, err
		}
		rows = append(rows, values)
	}
	return rows, nil
}

func (c *Client) Close() {
	if c == nil || c.DB == nil {
		return
	}
	c.DB.Close()
	c.DB = nil
}
