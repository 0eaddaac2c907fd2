// Package search serves the read side: guild listing, detail lookup and
// the per-shard level leaderboard. Listing queries the denormalized guild
// columns directly; the leaderboard lives in a cache sorted set and falls
// back to the database when the set is cold.
package search

import (
	"context"
	"fmt"

	"github.com/asakura-games/guildserver/cache"
	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/model"
	"github.com/asakura-games/guildserver/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const leaderboardKeyFmt = "guild:leaderboard:%s"

// Summary is one row in a search result.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Level       int    `json:"level"`
	MemberCount int    `json:"member_count"`
	Visibility  string `json:"visibility"`
	MinLevel    int    `json:"min_level"`
}

// Query filters a guild listing. Zero values mean "no filter".
type Query struct {
	ServerID   string
	NamePrefix string
	MinLevel   int
	PublicOnly bool
	Limit      int
	Offset     int
}

type Service struct {
	guilds *store.Guilds
	cache  cache.Cache
	logger *zap.Logger
}

func NewService(guilds *store.Guilds, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{guilds: guilds, cache: c, logger: logger}
}

func leaderboardKey(serverID string) string {
	return fmt.Sprintf(leaderboardKeyFmt, serverID)
}

// leaderboardScore orders guilds by level first, member count second.
func leaderboardScore(level, memberCount int) float64 {
	return float64(level)*1_000_000 + float64(memberCount)
}

// List returns guild summaries matching the query, newest level first.
func (svc *Service) List(ctx context.Context, q Query) ([]Summary, error) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	tx := svc.guilds.DB().WithContext(ctx).
		Model(&model.GuildRecord{}).
		Where("status <> ?", string(guild.StatusDisbanded))
	if q.ServerID != "" {
		tx = tx.Where("server_id = ?", q.ServerID)
	}
	if q.NamePrefix != "" {
		tx = tx.Where("name LIKE ?", q.NamePrefix+"%")
	}
	if q.MinLevel > 0 {
		tx = tx.Where("level >= ?", q.MinLevel)
	}
	if q.PublicOnly {
		tx = tx.Where("visibility = ?", string(guild.VisibilityPublic))
	}

	var recs []model.GuildRecord
	if err := tx.Order("level DESC, member_count DESC").
		Limit(limit).Offset(q.Offset).
		Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "list guilds")
	}
	out := make([]Summary, 0, len(recs))
	for _, r := range recs {
		out = append(out, summarize(&r))
	}
	return out, nil
}

// Get returns the full aggregate for the detail view.
func (svc *Service) Get(ctx context.Context, guildID string) (*guild.Guild, error) {
	return svc.guilds.Load(ctx, guildID)
}

// TopGuilds returns the shard's top guilds from the cached leaderboard.
// A cold or partial set falls back to the database and warms the cache.
func (svc *Service) TopGuilds(ctx context.Context, serverID string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := leaderboardKey(serverID)
	ids, err := svc.cache.ZRevRange(ctx, key, 0, int64(limit-1))
	if err != nil {
		svc.logger.Warn("leaderboard read failed, falling back to database",
			zap.String("server_id", serverID), zap.Error(err))
		ids = nil
	}
	if len(ids) < limit {
		if err := svc.RefreshLeaderboard(ctx, serverID); err != nil {
			return nil, err
		}
		if ids, err = svc.cache.ZRevRange(ctx, key, 0, int64(limit-1)); err != nil {
			return nil, errors.Wrap(err, "read leaderboard")
		}
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	var recs []model.GuildRecord
	if err := svc.guilds.DB().WithContext(ctx).
		Where("id IN ?", ids).
		Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "load leaderboard guilds")
	}
	byID := make(map[string]*model.GuildRecord, len(recs))
	for i := range recs {
		byID[recs[i].ID] = &recs[i]
	}
	// Preserve sorted-set order; a stale id without a row is skipped.
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, summarize(r))
		}
	}
	return out, nil
}

// RefreshLeaderboard rebuilds the shard's sorted set from the database and
// drops entries for guilds that have since disbanded.
func (svc *Service) RefreshLeaderboard(ctx context.Context, serverID string) error {
	key := leaderboardKey(serverID)

	var recs []model.GuildRecord
	if err := svc.guilds.DB().WithContext(ctx).
		Select("id", "level", "member_count", "status").
		Where("server_id = ?", serverID).
		Find(&recs).Error; err != nil {
		return errors.Wrap(err, "refresh leaderboard")
	}
	for _, r := range recs {
		if r.Status == string(guild.StatusDisbanded) {
			if err := svc.cache.ZRem(ctx, key, r.ID); err != nil {
				svc.logger.Warn("leaderboard remove failed",
					zap.String("guild_id", r.ID), zap.Error(err))
			}
			continue
		}
		if err := svc.cache.ZAdd(ctx, key, leaderboardScore(r.Level, r.MemberCount), r.ID); err != nil {
			return errors.Wrap(err, "update leaderboard")
		}
	}
	return nil
}

// RemoveFromLeaderboard drops one guild from the shard's sorted set.
func (svc *Service) RemoveFromLeaderboard(ctx context.Context, serverID, guildID string) error {
	return svc.cache.ZRem(ctx, leaderboardKey(serverID), guildID)
}

func summarize(r *model.GuildRecord) Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		Tag:         r.Tag,
		Level:       r.Level,
		MemberCount: r.MemberCount,
		Visibility:  r.Visibility,
		MinLevel:    r.MinLevel,
	}
}
