package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/asakura-games/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Journal persists guild events to the database asynchronously in
// batches, so the request path never waits on a journal write.
type Journal struct {
	db     *gorm.DB
	ch     chan *model.GuildEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewJournal creates a Journal and starts its background worker.
func NewJournal(db *gorm.DB, logger *zap.Logger) *Journal {
	j := &Journal{
		db:     db,
		ch:     make(chan *model.GuildEvent, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	j.wg.Add(1)
	go j.worker()
	return j
}

// Record enqueues an event for async DB write. Full channel drops the
// event rather than blocking the caller.
func (j *Journal) Record(ev Event) {
	payload, _ := json.Marshal(ev.Payload)
	row := &model.GuildEvent{
		GuildID:   ev.GuildID,
		Type:      string(ev.Type),
		PlayerID:  ev.PlayerID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: ev.Timestamp,
	}
	select {
	case j.ch <- row:
	default:
		j.logger.Warn("event journal full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("guild_id", ev.GuildID))
	}
}

// Stop flushes remaining events and shuts down the worker. It blocks
// until the worker goroutine has finished.
func (j *Journal) Stop(_ context.Context) {
	select {
	case <-j.stopCh:
	default:
		close(j.stopCh)
	}
	j.wg.Wait()
}

func (j *Journal) worker() {
	defer j.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.GuildEvent, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := j.db.Create(&batch).Error; err != nil {
			j.logger.Error("event journal batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-j.ch:
			batch = append(batch, row)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-j.stopCh:
			// Drain remaining events.
			for {
				select {
				case row := <-j.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
