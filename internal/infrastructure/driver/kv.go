package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNil returned by KeyValueDB.Get when the key does not exist
var ErrNil = errors.New("driver: key does not exist")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// KVConfig options used in creating a KeyValueDB
type KVConfig struct {
	Driver   string // memory, redis, postgres or mysql
	Host     string // server host
	Port     int    // server port
	Password string // server password
	DB       int    // redis logical database
	User     string // sql username
	Schema   string // sql schema
	Query    string // sql DSN query parameter
	Protocol string // sql connection protocol, eg.tcp
	MaxConn  int32  // sql maximum opening connections number
	Logger   *zap.Logger
}

// GetKeyValueDB create a KeyValueDB from given config
func GetKeyValueDB(ctx context.Context, cfg *KVConfig) (KeyValueDB, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryKV(), nil
	case "redis":
		return NewRedisClient(cfg.Host, cfg.Port, cfg.Password, cfg.DB), nil
	case "postgres", "mysql":
		conn, err := GetDBConnection(ctx, &DBConfig{
			Driver:   cfg.Driver,
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Schema:   cfg.Schema,
			Query:    cfg.Query,
			Protocol: cfg.Protocol,
			MaxConn:  cfg.MaxConn,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		kv := NewSQLKeyValue(conn, cfg.Driver)
		if err := kv.Migrate(ctx); err != nil {
			conn.Close(ctx)
			return nil, err
		}
		return kv, nil
	}
	return nil, fmt.Errorf("unsupported kv driver: %s", cfg.Driver)
}
