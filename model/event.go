package model

import (
	"time"

	"gorm.io/datatypes"
)

// GuildEvent is one row in the notification journal. Events are written in
// batches by a background worker, so a crash can lose the tail of the
// journal but never blocks the request path.
type GuildEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   string         `gorm:"size:36;not null;index" json:"guild_id"`
	Type      string         `gorm:"size:48;not null;index" json:"type"`
	PlayerID  string         `gorm:"size:36;index" json:"player_id"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (GuildEvent) TableName() string { return "guild_events" }
