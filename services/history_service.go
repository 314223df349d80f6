package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/persistence"
)

// HistoryService 记录本地玩家的对局结果
type HistoryService struct {
	db  persistence.Database
	now func() time.Time
}

func NewHistoryService(db persistence.Database) *HistoryService {
	return &HistoryService{db: db, now: time.Now}
}

// Record stores the outcome of a finished game for the local player.
func (s *HistoryService) Record(ctx context.Context, f game.GameFinished, playerID, playerName string, startedAt time.Time) (*models.GameRecord, error) {
	ended := s.now()
	record := &models.GameRecord{
		ID:         uuid.NewString(),
		RoomID:     f.RoomID,
		PlayerID:   playerID,
		PlayerName: playerName,
		WinnerID:   f.WinnerID,
		WinnerName: f.WinnerName,
		Outcome:    outcome(f),
		StartedAt:  startedAt,
		EndedAt:    ended,
	}
	if !startedAt.IsZero() {
		record.Duration = int(ended.Sub(startedAt).Seconds())
	}
	for _, p := range f.Players {
		record.Players = append(record.Players, models.PlayerInfo{PlayerID: p.ID, Name: p.Name, Life: p.Life})
	}

	if err := s.db.SaveGameRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("save game record: %w", err)
	}
	logger.Log.Infof("Recorded %s in room %s for player %s", record.Outcome, record.RoomID, playerID)
	return record, nil
}

// Recent returns the latest records of playerID, newest first.
func (s *HistoryService) Recent(ctx context.Context, playerID string, limit int) ([]models.GameRecord, error) {
	return s.db.ListGameRecords(ctx, playerID, limit)
}

// Stats 获取玩家战绩，没有记录时返回零值
func (s *HistoryService) Stats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	stats, err := s.db.GetPlayerStats(ctx, playerID)
	if err == persistence.ErrRecordNotFound {
		return &models.PlayerStats{}, nil
	}
	return stats, err
}

func outcome(f game.GameFinished) string {
	switch {
	case f.Won:
		return models.OutcomeWin
	case f.Eliminated:
		return models.OutcomeEliminated
	}
	return models.OutcomeLose
}
