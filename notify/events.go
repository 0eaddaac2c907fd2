package notify

import (
	"encoding/json"
	"time"
)

// EventType names one kind of guild event. The set is closed: handlers
// and downstream consumers switch on these values.
type EventType string

const (
	EventGuildCreated        EventType = "guild_created"
	EventGuildDisbanded      EventType = "guild_disbanded"
	EventMemberJoined        EventType = "member_joined"
	EventMemberLeft          EventType = "member_left"
	EventMemberRoleChanged   EventType = "member_role_changed"
	EventQuestStarted        EventType = "quest_started"
	EventQuestProgress       EventType = "quest_progress"
	EventQuestContribution   EventType = "quest_contribution"
	EventRaidStarted         EventType = "raid_started"
	EventRaidParticipant     EventType = "raid_participant_joined"
	EventRaidProgress        EventType = "raid_progress"
	EventRaidCompleted       EventType = "raid_completed"
	EventGuildLevelUp        EventType = "guild_level_up"
	EventDailyRewardClaimed  EventType = "daily_reward_claimed"
	EventWeeklyRewardClaimed EventType = "weekly_reward_claimed"
)

// Event is one guild notification. PlayerID is the member the event is
// about (empty for guild-wide events); Payload carries the typed detail.
type Event struct {
	GuildID   string      `json:"guild_id"`
	Type      EventType   `json:"type"`
	PlayerID  string      `json:"player_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// One payload struct per event type that carries detail; events without
// extra detail publish with a nil payload.

// MemberPayload describes a roster change.
type MemberPayload struct {
	PlayerName string `json:"player_name"`
	Role       string `json:"role,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// QuestProgressPayload is published at 25% milestones and on completion.
type QuestProgressPayload struct {
	QuestID   string `json:"quest_id"`
	Name      string `json:"name,omitempty"`
	Progress  int64  `json:"progress"`
	Target    int64  `json:"target"`
	Milestone int    `json:"milestone,omitempty"` // 25, 50 or 75; 0 on completion
	Completed bool   `json:"completed,omitempty"`
}

// QuestContributionPayload describes one player's contribution.
type QuestContributionPayload struct {
	QuestID     string `json:"quest_id"`
	Amount      int64  `json:"amount"`
	PlayerTotal int64  `json:"player_total"`
}

// RaidPayload describes raid lifecycle and progress.
type RaidPayload struct {
	RaidID      string `json:"raid_id"`
	Type        string `json:"type,omitempty"`
	BossHealth  int64  `json:"boss_health"`
	BossMax     int64  `json:"boss_max"`
	Damage      int64  `json:"damage,omitempty"`
	Milestone   int    `json:"milestone,omitempty"` // 25, 50 or 75 percent of boss health
	Participant string `json:"participant,omitempty"`
}

// RaidRewardPayload is one participant's payout notice.
type RaidRewardPayload struct {
	RaidID string   `json:"raid_id"`
	Rank   int      `json:"rank"`
	Tier   string   `json:"tier"`
	Gold   int64    `json:"gold,omitempty"`
	Items  []string `json:"items,omitempty"`
}

// LevelUpPayload announces a new guild level.
type LevelUpPayload struct {
	Level      int    `json:"level"`
	MaxMembers int    `json:"max_members"`
	Source     string `json:"source,omitempty"`
}

// RewardClaimPayload announces a personal reward claim.
type RewardClaimPayload struct {
	Gold int64 `json:"gold"`
}

// Encode renders the event as the JSON published on the event channel.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
