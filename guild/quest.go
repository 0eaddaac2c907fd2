package guild

import "time"

// QuestType determines a quest's contribution window.
type QuestType string

const (
	QuestDaily   QuestType = "daily"
	QuestWeekly  QuestType = "weekly"
	QuestSpecial QuestType = "special"
)

// QuestContributor tracks one player's cumulative contribution.
type QuestContributor struct {
	PlayerID     string `json:"player_id"`
	Contribution int64  `json:"contribution"`
}

// QuestRewards is the guild-level payout granted once on completion.
type QuestRewards struct {
	GuildExp   int64 `json:"guild_exp"`
	GuildCoins int64 `json:"guild_coins"`
}

// Quest is a time-boxed cooperative objective. Once completed its progress
// and rewards are frozen; later contributions are no-ops.
type Quest struct {
	QuestID         string             `json:"quest_id"`
	TemplateID      string             `json:"template_id"`
	Name            string             `json:"name"`
	Type            QuestType          `json:"type"`
	TargetValue     int64              `json:"target_value"`
	CurrentProgress int64              `json:"current_progress"`
	Contributors    []QuestContributor `json:"contributors,omitempty"`
	Rewards         QuestRewards       `json:"rewards"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	IsCompleted     bool               `json:"is_completed"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

// QuestProgressResult describes one contribution's effect.
type QuestProgressResult struct {
	QuestID         string
	Applied         bool
	AlreadyComplete bool
	Completed       bool
	Progress        int64
	Target          int64
	PlayerTotal     int64
	// Milestones lists the 25% progress marks crossed by this
	// contribution (25, 50, 75); completion is reported separately.
	Milestones []int
	Rewards    QuestRewards
}

// StartQuest registers a new quest on behalf of actor.
func (g *Guild) StartQuest(actorID string, q Quest, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if !CanManageMembers(actor.Role) {
		return Deniedf("%s cannot start guild quests", actor.Role)
	}
	if q.TargetValue <= 0 {
		return Failedf("quest target must be positive")
	}
	for i := range g.Quests {
		if g.Quests[i].QuestID == q.QuestID {
			return Failedf("quest %s already exists", q.QuestID)
		}
	}
	g.touch(actorID, now)
	q.StartDate = now
	g.Quests = append(g.Quests, q)
	g.log(LogEntry{At: now, Type: "quest_started", ActorID: actorID, ActorName: actor.PlayerName, Message: q.Name})
	return nil
}

// Quest returns the quest with the given id, or nil.
func (g *Guild) Quest(questID string) *Quest {
	for i := range g.Quests {
		if g.Quests[i].QuestID == questID {
			return &g.Quests[i]
		}
	}
	return nil
}

// ApplyQuestProgress applies one contribution. The progress increment and
// the completion check-and-flip happen in the same step so two
// contributions that each cross the threshold cannot both complete the
// quest. Contributions to an already-completed quest are silent no-ops.
func (g *Guild) ApplyQuestProgress(questID, playerID string, amount int64, now time.Time) (QuestProgressResult, error) {
	res := QuestProgressResult{QuestID: questID}
	if err := g.ensureMutable(); err != nil {
		return res, err
	}
	q := g.Quest(questID)
	if q == nil {
		return res, NotFoundf("quest %s not found", questID)
	}
	m := g.Member(playerID)
	if m == nil {
		return res, Deniedf("player %s is not a member", playerID)
	}
	if amount <= 0 {
		return res, Failedf("contribution must be positive")
	}
	res.Target = q.TargetValue
	if q.IsCompleted {
		res.AlreadyComplete = true
		res.Progress = q.CurrentProgress
		return res, nil
	}
	g.touch(playerID, now)

	before := q.CurrentProgress
	after := before + amount
	if after > q.TargetValue {
		after = q.TargetValue
	}
	q.CurrentProgress = after

	upserted := false
	for i := range q.Contributors {
		if q.Contributors[i].PlayerID == playerID {
			q.Contributors[i].Contribution += amount
			res.PlayerTotal = q.Contributors[i].Contribution
			upserted = true
			break
		}
	}
	if !upserted {
		q.Contributors = append(q.Contributors, QuestContributor{PlayerID: playerID, Contribution: amount})
		res.PlayerTotal = amount
	}
	g.addContribution(playerID, amount)

	res.Applied = true
	res.Progress = after
	res.Milestones = milestonesCrossed(before, after, q.TargetValue)

	if after >= q.TargetValue {
		q.IsCompleted = true
		t := now
		q.CompletedAt = &t
		res.Completed = true
		res.Rewards = q.Rewards
		g.log(LogEntry{At: now, Type: "quest_completed", ActorID: playerID, ActorName: m.PlayerName, Message: q.Name})
	}
	return res, nil
}

// SweepExpiredQuests force-completes (without rewards) quests past their
// end date and drops finished quests from the active list. Returns the
// ids of quests that were expired without reaching their target.
func (g *Guild) SweepExpiredQuests(now time.Time) []string {
	var expired []string
	kept := g.Quests[:0]
	for _, q := range g.Quests {
		if !now.After(q.EndDate) {
			kept = append(kept, q)
			continue
		}
		if !q.IsCompleted {
			expired = append(expired, q.QuestID)
			g.log(LogEntry{At: now, Type: "quest_expired", Message: q.Name})
		}
	}
	g.Quests = kept
	return expired
}

// milestonesCrossed returns the 25% marks strictly between before and
// after (never 100; completion is its own signal).
func milestonesCrossed(before, after, target int64) []int {
	if target <= 0 {
		return nil
	}
	var out []int
	for _, pct := range []int{25, 50, 75} {
		mark := target * int64(pct) / 100
		if before < mark && after >= mark {
			out = append(out, pct)
		}
	}
	return out
}
