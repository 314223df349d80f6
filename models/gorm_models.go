// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RecordID   string       `gorm:"uniqueIndex;not null"`
	RoomID     string       `gorm:"index;not null"`
	PlayerID   string       `gorm:"index;not null"`
	PlayerName string       `gorm:"not null"`
	Players    []PlayerInfo `gorm:"type:jsonb;serializer:json"`
	WinnerID   string
	WinnerName string
	Outcome    string `gorm:"index;not null"`
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   int `gorm:"default:0"` // 游戏时长(秒)
}

func (GormGameRecord) TableName() string {
	return "game_records"
}

func NewGormGameRecord(r GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RecordID:   r.ID,
		RoomID:     r.RoomID,
		PlayerID:   r.PlayerID,
		PlayerName: r.PlayerName,
		Players:    r.Players,
		WinnerID:   r.WinnerID,
		WinnerName: r.WinnerName,
		Outcome:    r.Outcome,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		Duration:   r.Duration,
	}
}

func (g *GormGameRecord) Record() GameRecord {
	return GameRecord{
		ID:         g.RecordID,
		RoomID:     g.RoomID,
		PlayerID:   g.PlayerID,
		PlayerName: g.PlayerName,
		Players:    g.Players,
		WinnerID:   g.WinnerID,
		WinnerName: g.WinnerName,
		Outcome:    g.Outcome,
		StartedAt:  g.StartedAt,
		EndedAt:    g.EndedAt,
		Duration:   g.Duration,
	}
}
