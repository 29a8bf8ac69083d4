package storage

// Dialect 数据库方言接口（对外导出）
// 屏蔽 sqlite / mysql / postgres 之间的DDL和UPSERT差异
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// DriverName 返回 database/sql 驱动名
	DriverName() string

	// UpsertSQL 返回基于命名参数（:col）的INSERT或UPDATE语句
	// conflictColumns: 冲突判断列（主键）
	// updateColumns: 冲突时需要更新的列
	UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string

	// CreateTableSQL 将SQLite风格的DDL转换为本方言的DDL
	// 返回空串表示该语句在本方言下跳过
	CreateTableSQL(schema string) string

	// ConfigureDB 打开后执行一次的数据库级配置语句，会话级设置放在DSN中
	ConfigureDB() []string
}
