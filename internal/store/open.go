package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
	BackendS3     = "s3"
)

// Options selects and configures a blob backend.
type Options struct {
	Backend string

	// BackendFile
	Path string

	// BackendRedis
	RedisURL string

	// BackendSQL
	SQLDriver string
	SQLDSN    string
	SQLTable  string

	// BackendS3
	S3Bucket string
	S3Region string
	S3Prefix string

	// Key names the document for the redis, sql and s3 backends.
	Key string
}

// Open connects the configured backend. The returned close function
// releases its connections and is never nil.
func Open(ctx context.Context, opts Options) (Blob, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryBlob(), noop, nil

	case BackendFile, "":
		slog.Info("client database on disk", "path", opts.Path)
		return NewFileBlob(opts.Path), noop, nil

	case BackendRedis:
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("store unavailable: redis ping: %w", err)
		}
		slog.Info("client database in redis", "addr", redisOpts.Addr, "key", opts.Key)
		return NewRedisBlob(client, opts.Key), client.Close, nil

	case BackendSQL:
		db, err := sql.Open(opts.SQLDriver, opts.SQLDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s: %w", opts.SQLDriver, err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("store unavailable: %s ping: %w", opts.SQLDriver, err)
		}
		blob, err := NewSQLBlob(db, opts.SQLDriver, opts.SQLTable, opts.Key)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		if err := blob.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		slog.Info("client database in sql", "driver", opts.SQLDriver, "table", blob.table)
		return blob, db.Close, nil

	case BackendS3:
		archive, err := NewS3Archive(ctx, opts.S3Bucket, opts.S3Region, opts.S3Prefix)
		if err != nil {
			return nil, noop, err
		}
		key := opts.Key
		if key == "" {
			key = DefaultRedisKey + ".json"
		}
		slog.Info("client database in s3", "bucket", opts.S3Bucket, "key", archive.key(key))
		return archive.Blob(key), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown store backend %q", opts.Backend)
}
