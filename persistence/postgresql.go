// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/twilightsync/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS match_history (
            id SERIAL PRIMARY KEY,
            record_id VARCHAR(64) UNIQUE NOT NULL,
            room_id VARCHAR(255) NOT NULL,
            player_id VARCHAR(255) NOT NULL,
            player_name VARCHAR(255) NOT NULL,
            players JSONB NOT NULL,
            winner_id VARCHAR(255),
            winner_name VARCHAR(255),
            outcome VARCHAR(20) NOT NULL,
            started_at TIMESTAMP,
            ended_at TIMESTAMP NOT NULL,
            duration INTEGER DEFAULT 0
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_match_history_player_id ON match_history(player_id);
        CREATE INDEX IF NOT EXISTS idx_match_history_ended_at ON match_history(ended_at);
    `)
	return err
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO match_history
            (record_id, room_id, player_id, player_name, players, winner_id, winner_name, outcome, started_at, ended_at, duration)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (record_id) DO NOTHING`,
		record.ID, record.RoomID, record.PlayerID, record.PlayerName, players,
		record.WinnerID, record.WinnerName, record.Outcome,
		record.StartedAt, record.EndedAt, record.Duration,
	)
	return err
}

// ListGameRecords 查询对局记录
func (p *PostgreSQL) ListGameRecords(ctx context.Context, playerID string, limit int) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        SELECT record_id, room_id, player_id, player_name, players,
               COALESCE(winner_id, ''), COALESCE(winner_name, ''), outcome,
               started_at, ended_at, duration
        FROM match_history
        WHERE ($1 = '' OR player_id = $1)
        ORDER BY ended_at DESC`
	args := []interface{}{playerID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		var r models.GameRecord
		var players []byte
		var started sql.NullTime
		if err := rows.Scan(&r.ID, &r.RoomID, &r.PlayerID, &r.PlayerName, &players,
			&r.WinnerID, &r.WinnerName, &r.Outcome, &started, &r.EndedAt, &r.Duration); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return nil, fmt.Errorf("decode players of %s: %w", r.ID, err)
		}
		r.StartedAt = started.Time
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetPlayerStats 统计玩家战绩
func (p *PostgreSQL) GetPlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var stats models.PlayerStats
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN outcome = $2 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome <> $2 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(duration), 0)
        FROM match_history
        WHERE player_id = $1`,
		playerID, models.OutcomeWin,
	).Scan(&stats.TotalGames, &stats.Wins, &stats.Losses, &stats.PlayTime)
	if err != nil {
		return nil, err
	}
	if stats.TotalGames == 0 {
		return nil, ErrRecordNotFound
	}
	return &stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
