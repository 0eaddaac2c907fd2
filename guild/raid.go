package guild

import (
	"sort"
	"time"
)

// RaidStatus is the raid state machine: preparing → active → completed|failed.
type RaidStatus string

const (
	RaidPreparing RaidStatus = "preparing"
	RaidActive    RaidStatus = "active"
	RaidCompleted RaidStatus = "completed"
	RaidFailed    RaidStatus = "failed"
)

// RewardTier is the payout bucket assigned by damage ranking.
type RewardTier string

const (
	TierMVP         RewardTier = "mvp"
	TierTop10       RewardTier = "top_10"
	TierParticipant RewardTier = "participant"
)

// RaidParticipant tracks one player's standing in the encounter.
type RaidParticipant struct {
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	JoinedAt     time.Time `json:"joined_at"`
	DamageDealt  int64     `json:"damage_dealt"`
	Contribution int64     `json:"contribution"`
	IsReady      bool      `json:"is_ready"`
}

// BossHealth is the shared health pool, clamped to [0, Max].
type BossHealth struct {
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

// RaidRewards holds the per-tier payouts.
type RaidRewards struct {
	MVP         RewardBundle `json:"mvp"`
	Top10       RewardBundle `json:"top_10"`
	Participant RewardBundle `json:"participant"`
}

// RankedReward is one participant's payout after ranking.
type RankedReward struct {
	PlayerID string       `json:"player_id"`
	Rank     int          `json:"rank"`
	Damage   int64        `json:"damage"`
	Tier     RewardTier   `json:"tier"`
	Reward   RewardBundle `json:"reward"`
}

// Raid is a time-boxed cooperative boss encounter.
type Raid struct {
	RaidID          string            `json:"raid_id"`
	Type            string            `json:"type"`
	DifficultyLevel int               `json:"difficulty_level"`
	MaxParticipants int               `json:"max_participants"`
	Participants    []RaidParticipant `json:"participants,omitempty"`
	BossHealth      BossHealth        `json:"boss_health"`
	Status          RaidStatus        `json:"status"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Rewards         RaidRewards       `json:"rewards"`
	Rankings        []RankedReward    `json:"rankings,omitempty"`
}

// RaidDamageResult describes one attack's effect.
type RaidDamageResult struct {
	RaidID    string
	Damage    int64
	Health    BossHealth
	Completed bool
	// Milestones lists the 25% boss-damage marks crossed by this attack.
	Milestones []int
	Rankings   []RankedReward
}

func (r *Raid) participant(playerID string) *RaidParticipant {
	for i := range r.Participants {
		if r.Participants[i].PlayerID == playerID {
			return &r.Participants[i]
		}
	}
	return nil
}

// StartRaid opens a new encounter in the preparing phase. A guild holds at
// most one raid in the preparing or active state.
func (g *Guild) StartRaid(actorID string, r Raid, minGuildLevel int, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if !CanManageMembers(actor.Role) {
		return Deniedf("%s cannot start raids", actor.Role)
	}
	if g.Level < minGuildLevel {
		return Failedf("guild level %d below raid minimum %d", g.Level, minGuildLevel)
	}
	if g.Raid != nil && (g.Raid.Status == RaidPreparing || g.Raid.Status == RaidActive) {
		return Failedf("a raid is already in progress")
	}
	if r.BossHealth.Max <= 0 {
		return Failedf("boss health must be positive")
	}
	g.touch(actorID, now)
	r.BossHealth.Current = r.BossHealth.Max
	r.Status = RaidPreparing
	r.StartTime = now
	g.Raid = &r
	g.log(LogEntry{At: now, Type: "raid_started", ActorID: actorID, ActorName: actor.PlayerName, Message: r.Type})
	return nil
}

// JoinRaid enrolls a member into the current raid. Joins are accepted
// while the raid is preparing or active (reinforcements mid-fight).
func (g *Guild) JoinRaid(raidID, playerID string, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	m := g.Member(playerID)
	if m == nil {
		return Deniedf("player %s is not a member", playerID)
	}
	r := g.Raid
	if r == nil || r.RaidID != raidID {
		return NotFoundf("raid %s not found", raidID)
	}
	if r.Status != RaidPreparing && r.Status != RaidActive {
		return Failedf("raid is not accepting participants")
	}
	if r.participant(playerID) != nil {
		return Failedf("player %s already joined the raid", playerID)
	}
	if len(r.Participants) >= r.MaxParticipants {
		return Failedf("raid full (%d/%d)", len(r.Participants), r.MaxParticipants)
	}
	g.touch(playerID, now)
	r.Participants = append(r.Participants, RaidParticipant{
		PlayerID:   playerID,
		PlayerName: m.PlayerName,
		JoinedAt:   now,
	})
	return nil
}

// SetRaidReady toggles a participant's ready flag during preparation.
func (g *Guild) SetRaidReady(raidID, playerID string, ready bool, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	r := g.Raid
	if r == nil || r.RaidID != raidID {
		return NotFoundf("raid %s not found", raidID)
	}
	if r.Status != RaidPreparing {
		return Failedf("raid is not in preparation")
	}
	p := r.participant(playerID)
	if p == nil {
		return Deniedf("player %s is not a raid participant", playerID)
	}
	g.touch(playerID, now)
	p.IsReady = ready
	return nil
}

// BeginRaid moves the raid from preparing to active.
func (g *Guild) BeginRaid(actorID, raidID string, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if !CanManageMembers(actor.Role) {
		return Deniedf("%s cannot begin the raid", actor.Role)
	}
	r := g.Raid
	if r == nil || r.RaidID != raidID {
		return NotFoundf("raid %s not found", raidID)
	}
	if r.Status != RaidPreparing {
		return Failedf("raid is not in preparation")
	}
	if len(r.Participants) == 0 {
		return Failedf("raid has no participants")
	}
	g.touch(actorID, now)
	r.Status = RaidActive
	g.log(LogEntry{At: now, Type: "raid_begun", ActorID: actorID, ActorName: actor.PlayerName})
	return nil
}

// ApplyRaidDamage applies one attack: the participant's damage totals and
// the clamped health decrement happen together, and the attack that brings
// health to zero completes the raid and ranks the rewards in the same
// step. Completion therefore happens exactly once.
func (g *Guild) ApplyRaidDamage(raidID, playerID string, damage int64, now time.Time) (RaidDamageResult, error) {
	res := RaidDamageResult{RaidID: raidID, Damage: damage}
	if err := g.ensureMutable(); err != nil {
		return res, err
	}
	r := g.Raid
	if r == nil || r.RaidID != raidID {
		return res, NotFoundf("raid %s not found", raidID)
	}
	if r.Status != RaidActive {
		return res, Failedf("raid is not active")
	}
	p := r.participant(playerID)
	if p == nil {
		return res, Deniedf("player %s is not a raid participant", playerID)
	}
	if damage <= 0 {
		return res, Failedf("damage must be positive")
	}
	g.touch(playerID, now)

	p.DamageDealt += damage
	p.Contribution += damage
	g.addContribution(playerID, damage)

	before := r.BossHealth.Current
	after := before - damage
	if after < 0 {
		after = 0
	}
	r.BossHealth.Current = after
	res.Health = r.BossHealth
	res.Milestones = milestonesCrossed(r.BossHealth.Max-before, r.BossHealth.Max-after, r.BossHealth.Max)

	if after == 0 && before > 0 {
		res.Completed = true
		res.Rankings = g.completeRaid(now)
	}
	return res, nil
}

// completeRaid finalizes the encounter: ranks participants, records the
// payout, and moves the raid into history.
func (g *Guild) completeRaid(now time.Time) []RankedReward {
	r := g.Raid
	r.Status = RaidCompleted
	t := now
	r.CompletedAt = &t
	r.Rankings = rankRewards(r)
	g.log(LogEntry{At: now, Type: "raid_completed", Message: r.Type})
	rankings := r.Rankings
	g.archiveRaid()
	return rankings
}

// FailRaidIfExpired fails a raid whose window has closed without the boss
// falling. Returns true if the raid was failed.
func (g *Guild) FailRaidIfExpired(now time.Time) bool {
	r := g.Raid
	if r == nil || (r.Status != RaidPreparing && r.Status != RaidActive) {
		return false
	}
	if !now.After(r.EndTime) {
		return false
	}
	r.Status = RaidFailed
	g.log(LogEntry{At: now, Type: "raid_failed", Message: r.Type})
	g.archiveRaid()
	return true
}

func (g *Guild) archiveRaid() {
	if g.RaidHistory.Capacity == 0 {
		g.RaidHistory = NewRing[Raid](raidHistoryCap)
	}
	g.RaidHistory.Push(*g.Raid)
	g.Raid = nil
}

// rankRewards sorts participants by damage descending (ties: earlier join,
// then player id) and assigns tiers: rank 0 mvp, ranks 1-9 top_10, the
// rest participant.
func rankRewards(r *Raid) []RankedReward {
	ranked := make([]RaidParticipant, len(r.Participants))
	copy(ranked, r.Participants)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DamageDealt != ranked[j].DamageDealt {
			return ranked[i].DamageDealt > ranked[j].DamageDealt
		}
		if !ranked[i].JoinedAt.Equal(ranked[j].JoinedAt) {
			return ranked[i].JoinedAt.Before(ranked[j].JoinedAt)
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
	out := make([]RankedReward, len(ranked))
	for i, p := range ranked {
		tier := TierParticipant
		reward := r.Rewards.Participant
		switch {
		case i == 0:
			tier = TierMVP
			reward = r.Rewards.MVP
		case i < 10:
			tier = TierTop10
			reward = r.Rewards.Top10
		}
		out[i] = RankedReward{PlayerID: p.PlayerID, Rank: i, Damage: p.DamageDealt, Tier: tier, Reward: reward}
	}
	return out
}
