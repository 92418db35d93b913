package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = errors.New("记录不存在")

const (
	// DefaultPingTimeout 连接检查超时
	DefaultPingTimeout = 5 * time.Second

	// DefaultMaxOpenConns 最大连接数
	DefaultMaxOpenConns = 10
)

// Record 查询到的记录
type Record struct {
	Type   string                 // 记录类型
	Key    string                 // 查找时使用的值
	Values map[string]interface{} // 列名 -> 值
}

// Value 返回列值,列不存在或为NULL时 ok 为 false
func (r *Record) Value(column string) (interface{}, bool) {
	if r == nil || column == "" {
		return nil, false
	}
	v, ok := r.Values[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Store 记录存储
type Store interface {
	// Find 按列值查找一条记录,不存在时返回 ErrRecordNotFound
	Find(ctx context.Context, recordType, column, value string) (*Record, error)
}

// SQLStore 基于 sqlx 的记录存储
type SQLStore struct {
	db       *sqlx.DB
	registry *Registry
}

// NormalizeDriver 把常见别名转换为 database/sql 驱动名
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql", "pgsql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("不支持的数据库驱动: %s (有效值: sqlite3, postgres)", driver)
	}
}

// OpenSQLStore 连接数据库并创建记录存储
func OpenSQLStore(ctx context.Context, driver, dsn string, registry *Registry) (*SQLStore, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// sqlite 内存库每个连接相互独立
	if name == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(DefaultMaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接检查失败: %w", err)
	}

	utils.Debugf("数据库已连接: driver=%s", name)
	return NewSQLStore(db, registry), nil
}

// NewSQLStore 使用已有连接创建记录存储
func NewSQLStore(db *sqlx.DB, registry *Registry) *SQLStore {
	return &SQLStore{
		db:       db,
		registry: registry,
	}
}

// Find 实现 Store 接口
func (s *SQLStore) Find(ctx context.Context, recordType, column, value string) (*Record, error) {
	rt, ok := s.registry.Lookup(recordType)
	if !ok {
		return nil, fmt.Errorf("未注册的记录类型: %s", recordType)
	}
	if column == "" {
		column = rt.Key
	}
	if err := ValidateIdentifier(column); err != nil {
		return nil, err
	}

	query := s.db.Rebind(fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = ? LIMIT 1",
		quoteIdentifier(rt.Table), quoteIdentifier(column),
	))

	row := make(map[string]interface{})
	if err := s.db.QueryRowxContext(ctx, query, value).MapScan(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询记录失败 [%s.%s=%s]: %w", rt.Table, column, value, err)
	}

	// 驱动返回的文本列可能是 []byte
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}

	return &Record{
		Type:   recordType,
		Key:    value,
		Values: row,
	}, nil
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
