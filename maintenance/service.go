// Package maintenance runs the periodic housekeeping sweeps: contribution
// resets, invitation expiry, inactive-member pruning, leadership handover,
// quest expiry and raid timeouts. Sweeps walk every active guild on the
// shard and apply each guild's changes through one versioned mutation, so
// a sweep racing a player action simply retries that guild.
package maintenance

import (
	"context"
	"time"

	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	guilds  *store.Guilds
	players *store.Players
	gateway notify.Gateway
	cfg     config.GuildConfig
	logger  *zap.Logger
}

func NewService(guilds *store.Guilds, players *store.Players, gateway notify.Gateway, cfg config.GuildConfig, logger *zap.Logger) *Service {
	return &Service{guilds: guilds, players: players, gateway: gateway, cfg: cfg, logger: logger}
}

// DailyReport summarizes one daily sweep.
type DailyReport struct {
	GuildsSwept         int
	InvitationsExpired  int
	MembersPruned       int
	LeadershipTransfers int
	GuildsDormant       int
	Errors              int
}

// WeeklyReport summarizes one weekly sweep.
type WeeklyReport struct {
	GuildsSwept   int
	QuestsExpired int
	RaidsFailed   int
	Errors        int
}

// PerformDailyMaintenance sweeps every active guild on the shard: resets
// daily contribution counters, reaps expired invitations, prunes members
// idle past the guild's inactivity threshold, hands leadership over when
// the leader is idle too, and marks a fully idle guild dormant. Per-guild
// failures are logged and skipped so one stuck guild cannot stall the
// sweep.
func (svc *Service) PerformDailyMaintenance(ctx context.Context, serverID string) (DailyReport, error) {
	var report DailyReport
	ids, err := svc.guilds.ActiveIDs(ctx, serverID)
	if err != nil {
		return report, err
	}
	now := time.Now()

	for _, id := range ids {
		var (
			pruned  []guild.Member
			expired int
			oldID   string
			newID   string
			moved   bool
			dormant bool
		)
		_, err := svc.guilds.Mutate(ctx, id, func(tx *gorm.DB, g *guild.Guild) error {
			pruned = pruned[:0]
			g.ResetDailyContributions()
			expired = g.ReapExpiredInvitations(now)

			// A guild-level setting overrides the shard default.
			threshold := g.InactivityThreshold(svc.cfg.InactivityDays)

			// Prune first: the leader is never in the inactive list, so an
			// idle leader demoted by the transfer below keeps their seat as
			// a regular member until the next sweep.
			for _, m := range g.InactiveMembers(threshold, now) {
				if err := g.RemoveMember(m.PlayerID, "pruned for inactivity", now); err != nil {
					return err
				}
				if err := svc.players.ClearGuildTx(tx, m.PlayerID, g.ID); err != nil {
					return err
				}
				pruned = append(pruned, m)
			}

			oldID, newID, moved = g.TransferInactiveLeadership(threshold, now)

			dormant = g.MarkDormant(threshold, now)
			return nil
		})
		if err != nil {
			report.Errors++
			svc.logger.Warn("daily maintenance failed for guild",
				zap.String("guild_id", id), zap.Error(err))
			continue
		}
		report.GuildsSwept++
		report.InvitationsExpired += expired
		report.MembersPruned += len(pruned)
		if dormant {
			report.GuildsDormant++
			svc.logger.Info("guild marked dormant", zap.String("guild_id", id))
		}
		if moved {
			report.LeadershipTransfers++
			svc.gateway.Notify(ctx, notify.Event{
				GuildID:  id,
				Type:     notify.EventMemberRoleChanged,
				PlayerID: newID,
				Payload:  notify.MemberPayload{Role: string(guild.RoleLeader), Reason: "leader inactive"},
			})
			svc.logger.Info("leadership transferred",
				zap.String("guild_id", id), zap.String("from", oldID), zap.String("to", newID))
		}
		for _, m := range pruned {
			svc.gateway.Notify(ctx, notify.Event{
				GuildID:  id,
				Type:     notify.EventMemberLeft,
				PlayerID: m.PlayerID,
				Payload:  notify.MemberPayload{PlayerName: m.PlayerName, Reason: "pruned for inactivity"},
			})
		}
	}
	return report, nil
}

// PerformWeeklyMaintenance resets weekly contribution counters, expires
// overdue quests and fails raids past their deadline.
func (svc *Service) PerformWeeklyMaintenance(ctx context.Context, serverID string) (WeeklyReport, error) {
	var report WeeklyReport
	ids, err := svc.guilds.ActiveIDs(ctx, serverID)
	if err != nil {
		return report, err
	}
	now := time.Now()

	for _, id := range ids {
		var (
			expired    []string
			raidFailed bool
		)
		_, err := svc.guilds.Mutate(ctx, id, func(tx *gorm.DB, g *guild.Guild) error {
			g.ResetWeeklyContributions()
			expired = g.SweepExpiredQuests(now)
			raidFailed = g.FailRaidIfExpired(now)
			return nil
		})
		if err != nil {
			report.Errors++
			svc.logger.Warn("weekly maintenance failed for guild",
				zap.String("guild_id", id), zap.Error(err))
			continue
		}
		report.GuildsSwept++
		report.QuestsExpired += len(expired)
		if raidFailed {
			report.RaidsFailed++
		}
	}
	return report, nil
}
