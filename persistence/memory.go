package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/twilightsync/models"
)

// Memory keeps records in process memory. It is the default store.
type Memory struct {
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r := *record
	r.Players = append([]models.PlayerInfo(nil), record.Players...)
	m.records = append(m.records, r)
	return nil
}

// ListGameRecords returns the newest records of playerID first. An empty
// playerID lists every record; limit <= 0 means no limit.
func (m *Memory) ListGameRecords(ctx context.Context, playerID string, limit int) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.GameRecord
	for _, r := range m.records {
		if playerID == "" || r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetPlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	records, err := m.ListGameRecords(ctx, playerID, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	stats := &models.PlayerStats{}
	for _, r := range records {
		stats.Add(r)
	}
	return stats, nil
}

func (m *Memory) Close() error {
	return nil
}
