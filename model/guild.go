package model

import (
	"time"

	"gorm.io/datatypes"
)

// GuildRecord is the persisted form of a guild aggregate: the full state
// lives in the Doc JSON column, while a handful of columns are
// denormalized for search and leaderboards. Version backs the
// compare-and-swap write path.
type GuildRecord struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	ServerID    string         `gorm:"size:32;not null;index;uniqueIndex:idx_server_name,priority:1;uniqueIndex:idx_server_tag,priority:1" json:"server_id"`
	Name        string         `gorm:"size:32;not null;uniqueIndex:idx_server_name,priority:2" json:"name"`
	Tag         string         `gorm:"size:8;not null;uniqueIndex:idx_server_tag,priority:2" json:"tag"`
	Level       int            `gorm:"default:1;index" json:"level"`
	MemberCount int            `gorm:"default:0" json:"member_count"`
	Visibility  string         `gorm:"size:16;default:public" json:"visibility"`
	MinLevel    int            `gorm:"default:0" json:"min_level"`
	Status      string         `gorm:"size:16;default:active;index" json:"status"`
	Doc         datatypes.JSON `gorm:"not null" json:"-"`
	Version     int64          `gorm:"default:1;not null" json:"version"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GuildRecord) TableName() string { return "guilds" }
