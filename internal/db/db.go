package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

const (
	// DriverSQLite 使用本地 sqlite 文件
	DriverSQLite = "sqlite"
	// DriverPostgres 使用 DSN 连接 postgres
	DriverPostgres = "postgres"
)

// Options 描述数据库连接方式。
type Options struct {
	Driver string
	Path   string
	DSN    string
	Silent bool
}

// Init 打开数据库、执行迁移并设置全局 DB。
// Path 为空时将回退到默认值 fishinglog.db。
func Init(opts Options) error {
	gdb, err := Open(opts)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 根据驱动建立连接，不执行迁移。
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if opts.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", DriverSQLite:
		path := strings.TrimSpace(opts.Path)
		if path == "" {
			path = "fishinglog.db"
		}
		if !strings.HasPrefix(path, "file:") {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
		}

		gdb, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		// sqlite 只允许单写者，单连接可以避免 database is locked
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	case DriverPostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, errors.New("postgres driver requires a DSN")
		}
		gdb, err := gorm.Open(postgres.Open(opts.DSN), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

const legacyTotalFishColumn = "total_fish"

// Migrate 自动迁移模式，并清理旧版本遗留的列。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&Trip{},
		&WeatherLog{},
		&FishCaught{},
		&Setting{},
	); err != nil {
		return err
	}

	// 早期版本在 trips 上保存了 total_fish，现在由 fish_caught 计数得到
	// sqlite 上 Migrator.DropColumn 对模型外的列无效，直接执行 DDL
	migrator := gdb.Migrator()
	if migrator.HasColumn(&Trip{}, legacyTotalFishColumn) {
		if err := gdb.Exec("ALTER TABLE trips DROP COLUMN " + legacyTotalFishColumn).Error; err != nil {
			return fmt.Errorf("drop legacy column %s: %w", legacyTotalFishColumn, err)
		}
		if migrator.HasColumn(&Trip{}, legacyTotalFishColumn) {
			return fmt.Errorf("legacy column %s still present after migration", legacyTotalFishColumn)
		}
	}

	return nil
}

// Close 关闭底层连接。
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
