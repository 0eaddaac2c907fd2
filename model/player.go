package model

import (
	"time"

	"gorm.io/datatypes"
)

// Player represents a player account and its game-side resources. GuildID
// is the authoritative back-reference; it is only ever written inside the
// same transaction as the owning guild's document.
type Player struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	ServerID     string         `gorm:"size:32;not null;index" json:"server_id"`
	Name         string         `gorm:"uniqueIndex;size:32;not null" json:"name"`
	PasswordHash string         `gorm:"size:64;not null" json:"-"`
	Level        int            `gorm:"default:1" json:"level"`
	Power        int64          `gorm:"default:0" json:"power"`
	Gold         int64          `gorm:"default:0" json:"gold"`
	Materials    datatypes.JSON `json:"materials"`
	Items        datatypes.JSON `json:"items"`
	GuildID      *string        `gorm:"size:36;index" json:"guild_id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
}

func (Player) TableName() string { return "players" }
