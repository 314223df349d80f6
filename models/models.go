// models/models.go
package models

import (
	"time"
)

// 对局结果
const (
	OutcomeWin        = "win"
	OutcomeLose       = "lose"
	OutcomeEliminated = "eliminated"
)

// GameRecord 对局记录
type GameRecord struct {
	ID         string       `json:"id"`
	RoomID     string       `json:"room_id"`
	PlayerID   string       `json:"player_id"`
	PlayerName string       `json:"player_name"`
	Players    []PlayerInfo `json:"players"`
	WinnerID   string       `json:"winner_id,omitempty"`
	WinnerName string       `json:"winner_name,omitempty"`
	Outcome    string       `json:"outcome"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	Duration   int          `json:"duration"` // 游戏时长(秒)
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Life     int    `json:"life"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	PlayTime   int `json:"play_time"` // 总游戏时长(秒)
}

// Add folds one record into the stats.
func (s *PlayerStats) Add(r GameRecord) {
	s.TotalGames++
	if r.Outcome == OutcomeWin {
		s.Wins++
	} else {
		s.Losses++
	}
	s.PlayTime += r.Duration
}
