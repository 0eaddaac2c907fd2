// Package activity drives the cooperative guild content: quests, raids,
// bank donations and the periodic member rewards. All guild mutation goes
// through the versioned store so concurrent contributions serialize.
package activity

import (
	"context"
	"time"

	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dailyQuestWindow   = 24 * time.Hour
	weeklyQuestWindow  = 7 * 24 * time.Hour
	specialQuestWindow = 72 * time.Hour
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

func questWindow(t guild.QuestType) time.Duration {
	switch t {
	case guild.QuestWeekly:
		return weeklyQuestWindow
	case guild.QuestSpecial:
		return specialQuestWindow
	default:
		return dailyQuestWindow
	}
}

// StartGuildQuest instantiates a quest from a template.
func (svc *Service) StartGuildQuest(ctx context.Context, guildID, actorID, templateID string) (*guild.Quest, error) {
	tpl, ok := questTemplates[templateID]
	if !ok {
		return nil, guild.NotFoundf("quest template %s not found", templateID)
	}
	now := time.Now()
	q := guild.Quest{
		QuestID:     uuid.NewString(),
		TemplateID:  tpl.TemplateID,
		Name:        tpl.Name,
		Type:        tpl.Type,
		TargetValue: tpl.TargetValue,
		Rewards:     tpl.Rewards,
		EndDate:     now.Add(questWindow(tpl.Type)),
	}
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.StartQuest(actorID, q, now)
	})
	if err != nil {
		return nil, err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:  guildID,
		Type:     notify.EventQuestStarted,
		PlayerID: actorID,
		Payload:  notify.QuestProgressPayload{QuestID: q.QuestID, Name: q.Name, Target: q.TargetValue},
	})
	return g.Quest(q.QuestID), nil
}

// ContributeQuestProgress applies one contribution and, when the quest
// completes, credits the guild's experience and treasury in the same
// transaction. Contributions to a completed quest return unchanged state.
func (svc *Service) ContributeQuestProgress(ctx context.Context, guildID, playerID, questID string, amount int64) (guild.QuestProgressResult, error) {
	now := time.Now()
	var (
		res       guild.QuestProgressResult
		levels    []int
		questName string
	)
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		var err error
		res, err = g.ApplyQuestProgress(questID, playerID, amount, now)
		if err != nil {
			return err
		}
		if q := g.Quest(questID); q != nil {
			questName = q.Name
		}
		if res.Completed {
			levels = g.AddExperience(res.Rewards.GuildExp, "quest", now)
			g.CreditBank(res.Rewards.GuildCoins)
		}
		return nil
	})
	if err != nil {
		return guild.QuestProgressResult{}, err
	}
	if !res.Applied {
		return res, nil
	}

	svc.gateway.Notify(ctx, notify.Event{
		GuildID:  guildID,
		Type:     notify.EventQuestContribution,
		PlayerID: playerID,
		Payload:  notify.QuestContributionPayload{QuestID: questID, Amount: amount, PlayerTotal: res.PlayerTotal},
	})
	for _, mark := range res.Milestones {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID: guildID,
			Type:    notify.EventQuestProgress,
			Payload: notify.QuestProgressPayload{QuestID: questID, Name: questName, Progress: res.Progress, Target: res.Target, Milestone: mark},
		})
	}
	if res.Completed {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID: guildID,
			Type:    notify.EventQuestProgress,
			Payload: notify.QuestProgressPayload{QuestID: questID, Name: questName, Progress: res.Progress, Target: res.Target, Completed: true},
		})
		svc.notifyLevelUps(ctx, g, levels, "quest")
	}
	return res, nil
}

// StartGuildRaid opens an encounter from a raid template. Boss health
// scales linearly with the difficulty level.
func (svc *Service) StartGuildRaid(ctx context.Context, guildID, actorID, raidType string, difficulty int) (*guild.Raid, error) {
	tpl, ok := raidTemplates[raidType]
	if !ok {
		return nil, guild.NotFoundf("raid template %s not found", raidType)
	}
	if difficulty < 1 {
		difficulty = 1
	}
	now := time.Now()
	r := guild.Raid{
		RaidID:          uuid.NewString(),
		Type:            tpl.Type,
		DifficultyLevel: difficulty,
		MaxParticipants: tpl.MaxParticipants,
		BossHealth:      guild.BossHealth{Max: tpl.BaseHealth * int64(difficulty)},
		EndTime:         now.Add(svc.cfg.RaidDuration),
		Rewards:         tpl.Rewards,
	}
	g, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.StartRaid(actorID, r, svc.cfg.RaidMinGuildLevel, now)
	})
	if err != nil {
		return nil, err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:  guildID,
		Type:     notify.EventRaidStarted,
		PlayerID: actorID,
		Payload:  notify.RaidPayload{RaidID: r.RaidID, Type: r.Type, BossHealth: r.BossHealth.Max, BossMax: r.BossHealth.Max},
	})
	return g.Raid, nil
}

// JoinGuildRaid enrolls the player into the guild's current raid.
func (svc *Service) JoinGuildRaid(ctx context.Context, guildID, playerID, raidID string) error {
	now := time.Now()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.JoinRaid(raidID, playerID, now)
	})
	if err != nil {
		return err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:  guildID,
		Type:     notify.EventRaidParticipant,
		PlayerID: playerID,
		Payload:  notify.RaidPayload{RaidID: raidID, Participant: playerID},
	})
	return nil
}

// SetRaidReady toggles the player's ready flag during preparation.
func (svc *Service) SetRaidReady(ctx context.Context, guildID, playerID, raidID string, ready bool) error {
	now := time.Now()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.SetRaidReady(raidID, playerID, ready, now)
	})
	return err
}

// BeginRaid moves the raid from preparing to active.
func (svc *Service) BeginRaid(ctx context.Context, guildID, actorID, raidID string) error {
	now := time.Now()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		return g.BeginRaid(actorID, raidID, now)
	})
	return err
}

// AttackRaidBoss applies one attack. When the attack kills the boss the
// tiered rewards are granted to every participant inside the same
// transaction as the state change, so a retried mutation can never pay
// twice.
func (svc *Service) AttackRaidBoss(ctx context.Context, guildID, playerID, raidID string, damage int64) (guild.RaidDamageResult, error) {
	now := time.Now()
	var res guild.RaidDamageResult
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		var err error
		res, err = g.ApplyRaidDamage(raidID, playerID, damage, now)
		if err != nil {
			return err
		}
		for _, r := range res.Rankings {
			if err := svc.players.GrantRewardTx(tx, r.PlayerID, r.Reward); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return guild.RaidDamageResult{}, err
	}

	for _, mark := range res.Milestones {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID: guildID,
			Type:    notify.EventRaidProgress,
			Payload: notify.RaidPayload{RaidID: raidID, BossHealth: res.Health.Current, BossMax: res.Health.Max, Damage: res.Damage, Milestone: mark},
		})
	}
	for _, r := range res.Rankings {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID:  guildID,
			Type:     notify.EventRaidCompleted,
			PlayerID: r.PlayerID,
			Payload:  notify.RaidRewardPayload{RaidID: raidID, Rank: r.Rank, Tier: string(r.Tier), Gold: r.Reward.Gold, Items: r.Reward.Items},
		})
	}
	return res, nil
}

// DonateGold moves gold from the player's wallet into the guild bank. The
// wallet debit and the bank credit commit or roll back together.
func (svc *Service) DonateGold(ctx context.Context, guildID, playerID string, amount int64) error {
	now := time.Now()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if err := g.DepositGold(playerID, amount, now); err != nil {
			return err
		}
		return svc.players.DebitGoldTx(tx, playerID, amount)
	})
	return err
}

// DonateMaterials moves materials from the player's pouch into the bank.
func (svc *Service) DonateMaterials(ctx context.Context, guildID, playerID string, materials map[string]int64) error {
	now := time.Now()
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		if err := g.DepositMaterials(playerID, materials, now); err != nil {
			return err
		}
		return svc.players.DebitMaterialsTx(tx, playerID, materials)
	})
	return err
}

// ClaimDailyReward pays the member's daily stipend into their wallet.
func (svc *Service) ClaimDailyReward(ctx context.Context, guildID, playerID string) (guild.RewardBundle, error) {
	return svc.claimReward(ctx, guildID, playerID, notify.EventDailyRewardClaimed,
		func(g *guild.Guild, now time.Time) (guild.RewardBundle, error) {
			return g.ClaimDailyReward(playerID, now)
		})
}

// ClaimWeeklyReward pays the member's weekly stipend into their wallet.
func (svc *Service) ClaimWeeklyReward(ctx context.Context, guildID, playerID string) (guild.RewardBundle, error) {
	return svc.claimReward(ctx, guildID, playerID, notify.EventWeeklyRewardClaimed,
		func(g *guild.Guild, now time.Time) (guild.RewardBundle, error) {
			return g.ClaimWeeklyReward(playerID, now)
		})
}

func (svc *Service) claimReward(ctx context.Context, guildID, playerID string, event notify.EventType, claim func(*guild.Guild, time.Time) (guild.RewardBundle, error)) (guild.RewardBundle, error) {
	now := time.Now()
	var bundle guild.RewardBundle
	_, err := svc.guilds.Mutate(ctx, guildID, func(tx *gorm.DB, g *guild.Guild) error {
		var err error
		bundle, err = claim(g, now)
		if err != nil {
			return err
		}
		return svc.players.GrantRewardTx(tx, playerID, bundle)
	})
	if err != nil {
		return guild.RewardBundle{}, err
	}
	svc.gateway.Notify(ctx, notify.Event{
		GuildID:  guildID,
		Type:     event,
		PlayerID: playerID,
		Payload:  notify.RewardClaimPayload{Gold: bundle.Gold},
	})
	return bundle, nil
}

func (svc *Service) notifyLevelUps(ctx context.Context, g *guild.Guild, levels []int, source string) {
	for _, lvl := range levels {
		svc.gateway.Notify(ctx, notify.Event{
			GuildID: g.ID,
			Type:    notify.EventGuildLevelUp,
			Payload: notify.LevelUpPayload{Level: lvl, MaxMembers: g.MaxMembers, Source: source},
		})
	}
}
