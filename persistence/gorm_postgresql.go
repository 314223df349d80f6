// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/twilightsync/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	return p.Transaction(ctx, func(tx *gorm.DB) error {
		var existing models.GormGameRecord
		err := tx.Where("record_id = ?", record.ID).First(&existing).Error
		if err == nil {
			// 已保存
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(models.NewGormGameRecord(*record)).Error
	})
}

// ListGameRecords 查询玩家的对局记录，最新的在前
func (p *GormPostgreSQL) ListGameRecords(ctx context.Context, playerID string, limit int) ([]models.GameRecord, error) {
	q := p.db.WithContext(ctx).Order("ended_at DESC")
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.GormGameRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.GameRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].Record()
	}
	return out, nil
}

// GetPlayerStats 统计玩家战绩
func (p *GormPostgreSQL) GetPlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := p.db.WithContext(ctx).Raw(`
        SELECT
            COUNT(*) AS total_games,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(CASE WHEN outcome <> ? THEN 1 ELSE 0 END), 0) AS losses,
            COALESCE(SUM(duration), 0) AS play_time
        FROM game_records
        WHERE player_id = ? AND deleted_at IS NULL`,
		models.OutcomeWin, models.OutcomeWin, playerID,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if stats.TotalGames == 0 {
		return nil, ErrRecordNotFound
	}
	return &stats, nil
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
