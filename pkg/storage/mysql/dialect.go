package mysql

import (
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/LENAX/dag-engine/pkg/storage"
)

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// DriverName 返回驱动名
func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// UpsertSQL 返回MySQL的UPSERT语句（使用ON DUPLICATE KEY UPDATE）
func (d *MySQLDialect) UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string {
	namedPlaceholders := make([]string, len(columns))
	for i, col := range columns {
		namedPlaceholders[i] = ":" + col
	}

	updateParts := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updateParts[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(namedPlaceholders, ", "),
		strings.Join(updateParts, ", "),
	)
}

// CreateTableSQL 转换DDL为MySQL兼容格式
// MySQL不支持 CREATE INDEX IF NOT EXISTS，索引语句直接跳过
func (d *MySQLDialect) CreateTableSQL(schema string) string {
	trimmed := strings.TrimSpace(schema)
	if strings.HasPrefix(trimmed, "CREATE INDEX") {
		return ""
	}
	if !strings.Contains(trimmed, "ENGINE=") && strings.HasPrefix(trimmed, "CREATE TABLE") {
		return strings.TrimRight(trimmed, ";") + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
	}
	return trimmed
}

// sqlMode 由驱动在每个新连接上执行 SET sql_mode
const sqlMode = "'STRICT_TRANS_TABLES,NO_ZERO_IN_DATE,NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'"

// ConfigureDB MySQL的会话设置在DSN中（见 PrepareDSN），这里没有额外语句
func (d *MySQLDialect) ConfigureDB() []string {
	return nil
}

// PrepareDSN 补齐驱动参数（对外导出）
// 强制 parseTime=true；未指定 sql_mode 时写入严格模式，连接池中每个连接都会生效
func PrepareDSN(dsn string) (string, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("解析DSN失败: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	if _, ok := cfg.Params["sql_mode"]; !ok {
		cfg.Params["sql_mode"] = sqlMode
	}
	return cfg.FormatDSN(), nil
}

// Open 打开MySQL连接（对外导出）
// dsn格式: user:password@tcp(host:port)/dbname
func Open(dsn string) (*sqlx.DB, error) {
	dsn, err := PrepareDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return db, nil
}

// 确保实现接口
var _ storage.Dialect = (*MySQLDialect)(nil)
