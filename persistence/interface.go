// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/twilightsync/config"
	"github.com/wfunc/twilightsync/models"
)

// Database 对局记录存储接口
type Database interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
	ListGameRecords(ctx context.Context, playerID string, limit int) ([]models.GameRecord, error)
	GetPlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrUnknownDriver  = fmt.Errorf("unknown database driver")
)

// Open picks the implementation named by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
