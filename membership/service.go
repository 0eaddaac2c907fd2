// Package membership covers the guild lifecycle and roster operations:
// creation, applications, invitations, leaving, kicks, role changes, and
// disbanding. Every mutation routes through the guild store's versioned
// write path, with player back-references updated in the same transaction.
package membership

import (
	"context"
	"strings"
	"time"

	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/model"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles guild membership operations.
type Service struct {
	guilds  *store.Guilds
	players *store.Players
	gateway notify.Gateway
	cfg     config.GuildConfig
	logger  *zap.Logger
}

// NewService creates a membership Service.
func NewService(guilds *store.Guilds, players *store.Players, gateway notify.Gateway, cfg config.GuildConfig, logger *zap.Logger) *Service {
	return &Service{guilds: guilds, players: players, gateway: gateway, cfg: cfg, logger: logger}
}

func memberSnapshot(p *model.Player) guild.Member {
	return guild.Member{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Level:      p.Level,
		Power:      p.Power,
	}
}

// CreateGuild founds a new guild with the caller as leader. The creation
// cost is debited and the founder's back-reference stamped in the same
// transaction as the guild row insert.
func (svc *Service) CreateGuild(ctx context.Context, founderID, name, tag string) (*guild.Guild, error) {
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)
	if len(name) < 2 || len(name) > 24 {
		return nil, guild.Failedf("guild name must be 2-24 characters")
	}
	if len(tag) < 2 || len(tag) > 5 {
		return nil, guild.Failedf("guild tag must be 2-5 characters")
	}

	founder, err := svc.players.Get(ctx, founderID)
	if err != nil {
		return nil, err
	}
	if founder.Level < svc.cfg.MinCreateLevel {
		return nil, guild.Failedf("level %d required to found a guild", svc.cfg.MinCreateLevel)
	}
	if founder.GuildID != nil {
		return nil, guild.Failedf("player %s is already in a guild", founderID)
	}

	now := time.Now().UTC()
	g := guild.New(uuid.NewString(), founder.ServerID, name, tag, memberSnapshot(founder), svc.cfg.BaseMaxMembers, now)

	err = svc.guilds.Create(ctx, g, func(tx *gorm.DB) error {
		if err := svc.players.DebitGoldTx(tx, founderID, svc.cfg.CreationCost); err != nil {
			return err
		}
		return svc.players.SetGuildTx(tx, founderID, g.ID)
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("guild created",
		zap.String("guild_id", g.ID),
		zap.String("name", name),
		zap.String("founder", founderID))
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:   g.ID,
		Type:      notify.EventGuildCreated,
		PlayerID:  founderID,
		Payload:   notify.MemberPayload{PlayerName: founder.Name, Role: string(guild.RoleLeader)},
		Timestamp: now,
	})
	return g, nil
}

// ApplyToGuild submits a join application; guilds with auto-accept admit
// the player immediately.
func (svc *Service) ApplyToGuild(ctx context.Context, guildID, playerID, message string) (bool, error) {
	p, err := svc.players.Get(ctx, playerID)
	if err != nil {
		return false, err
	}
	if p.GuildID != nil {
		return false, guild.Failedf("player %s is already in a guild", playerID)
	}
	now := time.Now().UTC()

	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		app := guild.Application{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Level:      p.Level,
			Power:      p.Power,
			Message:    message,
		}
		if g.Settings.AutoAccept {
			if err := g.AddApplication(app, now); err != nil {
				return err
			}
			// Self-processed: same checks as a manual accept.
			if err := g.AddMember(memberSnapshot(p), now); err != nil {
				return err
			}
			g.Applications = g.Applications[:len(g.Applications)-1]
			return svc.players.SetGuildTx(tx, playerID, g.ID)
		}
		return g.AddApplication(app, now)
	})
	if err != nil {
		return false, err
	}
	// Report and notify from the committed aggregate, not from state
	// captured inside the closure: a retried attempt may have seen a
	// different auto-accept setting than the one that won the write.
	joined := g.Member(p.ID) != nil
	if joined {
		svc.notifyJoined(ctx, g.ID, p.ID, p.Name, now)
	}
	return joined, nil
}

// ProcessApplication accepts or rejects a pending application.
func (svc *Service) ProcessApplication(ctx context.Context, guildID, actorID, applicantID string, accept bool) error {
	now := time.Now().UTC()
	var applicantName string
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if err := g.ProcessApplication(actorID, applicantID, accept, now); err != nil {
			return err
		}
		if !accept {
			return nil
		}
		applicantName = g.Member(applicantID).PlayerName
		return svc.players.SetGuildTx(tx, applicantID, g.ID)
	})
	if err != nil {
		return err
	}
	if accept {
		svc.notifyJoined(ctx, g.ID, applicantID, applicantName, now)
	}
	return nil
}

// InviteMember sends an invitation to a player outside the guild.
func (svc *Service) InviteMember(ctx context.Context, guildID, actorID, targetID string) error {
	target, err := svc.players.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.GuildID != nil {
		return guild.Failedf("player %s is already in a guild", targetID)
	}
	now := time.Now().UTC()
	_, err = svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.AddInvitation(actorID, targetID, svc.cfg.InviteTTL, now)
	})
	return err
}

// ProcessInvitation accepts or declines the caller's pending invitation.
func (svc *Service) ProcessInvitation(ctx context.Context, guildID, playerID string, accept bool) error {
	p, err := svc.players.Get(ctx, playerID)
	if err != nil {
		return err
	}
	if accept && p.GuildID != nil {
		return guild.Failedf("player %s is already in a guild", playerID)
	}
	now := time.Now().UTC()
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if err := g.ProcessInvitation(playerID, accept, memberSnapshot(p), now); err != nil {
			return err
		}
		if !accept {
			return nil
		}
		return svc.players.SetGuildTx(tx, playerID, g.ID)
	})
	if err != nil {
		return err
	}
	if accept {
		svc.notifyJoined(ctx, g.ID, p.ID, p.Name, now)
	}
	return nil
}

// LeaveGuild removes the caller from the roster. The leader can only
// leave as the sole member, which disbands the guild.
func (svc *Service) LeaveGuild(ctx context.Context, guildID, playerID string) error {
	now := time.Now().UTC()
	var name string
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if m := g.Member(playerID); m != nil {
			name = m.PlayerName
		}
		if err := g.RemoveMember(playerID, "left", now); err != nil {
			return err
		}
		return svc.players.ClearGuildTx(tx, playerID, g.ID)
	})
	if err != nil {
		return err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:   g.ID,
		Type:      notify.EventMemberLeft,
		PlayerID:  playerID,
		Payload:   notify.MemberPayload{PlayerName: name, Reason: "left"},
		Timestamp: now,
	})
	if g.Status == guild.StatusDisbanded {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID: g.ID, Type: notify.EventGuildDisbanded, Timestamp: now,
		})
	}
	return nil
}

// KickMember removes a member on behalf of an officer or the leader.
func (svc *Service) KickMember(ctx context.Context, guildID, actorID, targetID string) error {
	now := time.Now().UTC()
	var name string
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if m := g.Member(targetID); m != nil {
			name = m.PlayerName
		}
		if err := g.Kick(actorID, targetID, now); err != nil {
			return err
		}
		return svc.players.ClearGuildTx(tx, targetID, g.ID)
	})
	if err != nil {
		return err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:   g.ID,
		Type:      notify.EventMemberLeft,
		PlayerID:  targetID,
		Payload:   notify.MemberPayload{PlayerName: name, Reason: "kicked"},
		Timestamp: now,
	})
	return nil
}

// PromoteMember raises a member's role. Promoting to leader transfers
// leadership and demotes the caller to officer.
func (svc *Service) PromoteMember(ctx context.Context, guildID, actorID, targetID string, to guild.Role) error {
	return svc.setRole(ctx, guildID, actorID, targetID, to, true)
}

// DemoteMember lowers a member's role.
func (svc *Service) DemoteMember(ctx context.Context, guildID, actorID, targetID string, to guild.Role) error {
	return svc.setRole(ctx, guildID, actorID, targetID, to, false)
}

func (svc *Service) setRole(ctx context.Context, guildID, actorID, targetID string, to guild.Role, up bool) error {
	now := time.Now().UTC()
	var name string
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		target := g.Member(targetID)
		if target == nil {
			return guild.NotFoundf("player %s is not a member", targetID)
		}
		name = target.PlayerName
		if up && guild.Rank(to) <= guild.Rank(target.Role) {
			return guild.Failedf("%s is not a promotion from %s", to, target.Role)
		}
		if !up && guild.Rank(to) >= guild.Rank(target.Role) {
			return guild.Failedf("%s is not a demotion from %s", to, target.Role)
		}
		return g.SetRole(actorID, targetID, to, now)
	})
	if err != nil {
		return err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:   g.ID,
		Type:      notify.EventMemberRoleChanged,
		PlayerID:  targetID,
		Payload:   notify.MemberPayload{PlayerName: name, Role: string(to)},
		Timestamp: now,
	})
	return nil
}

// DisbandGuild terminates the guild and clears every member's
// back-reference.
func (svc *Service) DisbandGuild(ctx context.Context, guildID, actorID string) error {
	now := time.Now().UTC()
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if err := g.Disband(actorID, now); err != nil {
			return err
		}
		return svc.players.ClearGuildAllTx(tx, g.ID)
	})
	if err != nil {
		return err
	}
	svc.logger.Info("guild disbanded", zap.String("guild_id", guildID), zap.String("actor", actorID))
	svc.gateway.Notify(ctx, notify.Event{
		GuildID: g.ID, Type: notify.EventGuildDisbanded, PlayerID: actorID, Timestamp: now,
	})
	return nil
}

// UpdateSettings replaces the guild policy. Leader only.
func (svc *Service) UpdateSettings(ctx context.Context, guildID, actorID string, s guild.Settings) error {
	now := time.Now().UTC()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.UpdateSettings(actorID, s, now)
	})
	return err
}

func (svc *Service) notifyJoined(ctx context.Context, guildID, playerID, playerName string, at time.Time) {
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:   guildID,
		Type:      notify.EventMemberJoined,
		PlayerID:  playerID,
		Payload:   notify.MemberPayload{PlayerName: playerName, Role: string(guild.RoleMember)},
		Timestamp: at,
	})
}
