package storage

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/dag-engine/pkg/storage"
	"github.com/LENAX/dag-engine/pkg/storage/mysql"
	"github.com/LENAX/dag-engine/pkg/storage/postgres"
	"github.com/LENAX/dag-engine/pkg/storage/sqlite"
	"github.com/LENAX/dag-engine/pkg/storage/sqlrepo"
)

// PoolOptions 连接池参数，零值表示使用驱动默认值
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewRunRepository 按数据库类型创建运行历史存储（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
// dsn: 数据库连接字符串
func NewRunRepository(dbType, dsn string, pool PoolOptions) (storage.RunRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	var (
		db      *sqlx.DB
		dialect storage.Dialect
		err     error
	)
	switch dbType {
	case "sqlite", "sqlite3":
		db, err = sqlite.Open(dsn)
		dialect = sqlite.NewSQLiteDialect()
	case "mysql":
		db, err = mysql.Open(dsn)
		dialect = mysql.NewMySQLDialect()
	case "postgres", "postgresql":
		db, err = postgres.Open(dsn)
		dialect = postgres.NewPostgresDialect()
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s repository failed: %w", dbType, err)
	}

	applyPool(db, dialect, pool)

	repo, err := sqlrepo.NewRunRepo(db, dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s repository failed: %w", dbType, err)
	}
	return repo, nil
}

func applyPool(db *sqlx.DB, dialect storage.Dialect, pool PoolOptions) {
	// sqlite.Open 已为内存库限制单连接
	if dialect.Name() != "sqlite" && pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
}
