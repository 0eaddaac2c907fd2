package activity

import "github.com/asakura-games/guildserver/guild"

// QuestTemplate is a configured quest blueprint. Starting a quest from a
// template stamps a fresh quest id and the window for its type.
type QuestTemplate struct {
	TemplateID  string
	Name        string
	Type        guild.QuestType
	TargetValue int64
	Rewards     guild.QuestRewards
}

// RaidTemplate is a configured boss blueprint. Boss health scales with the
// chosen difficulty level.
type RaidTemplate struct {
	Type            string
	Name            string
	BaseHealth      int64
	MaxParticipants int
	Rewards         guild.RaidRewards
}

var questTemplates = map[string]QuestTemplate{
	"daily_hunt": {
		TemplateID:  "daily_hunt",
		Name:        "Daily Hunt",
		Type:        guild.QuestDaily,
		TargetValue: 1000,
		Rewards:     guild.QuestRewards{GuildExp: 500, GuildCoins: 200},
	},
	"daily_gather": {
		TemplateID:  "daily_gather",
		Name:        "Daily Gathering",
		Type:        guild.QuestDaily,
		TargetValue: 2000,
		Rewards:     guild.QuestRewards{GuildExp: 600, GuildCoins: 250},
	},
	"weekly_conquest": {
		TemplateID:  "weekly_conquest",
		Name:        "Weekly Conquest",
		Type:        guild.QuestWeekly,
		TargetValue: 50000,
		Rewards:     guild.QuestRewards{GuildExp: 5000, GuildCoins: 2000},
	},
	"festival_offering": {
		TemplateID:  "festival_offering",
		Name:        "Festival Offering",
		Type:        guild.QuestSpecial,
		TargetValue: 20000,
		Rewards:     guild.QuestRewards{GuildExp: 3000, GuildCoins: 1500},
	},
}

var raidTemplates = map[string]RaidTemplate{
	"dragon": {
		Type:            "dragon",
		Name:            "Ancient Dragon",
		BaseHealth:      200_000,
		MaxParticipants: 20,
		Rewards: guild.RaidRewards{
			MVP:         guild.RewardBundle{Gold: 5000, Items: []string{"dragon_scale_crown"}},
			Top10:       guild.RewardBundle{Gold: 2000, Materials: map[string]int64{"dragon_scale": 5}},
			Participant: guild.RewardBundle{Gold: 500, Materials: map[string]int64{"dragon_scale": 1}},
		},
	},
	"behemoth": {
		Type:            "behemoth",
		Name:            "Iron Behemoth",
		BaseHealth:      150_000,
		MaxParticipants: 15,
		Rewards: guild.RaidRewards{
			MVP:         guild.RewardBundle{Gold: 4000, Items: []string{"behemoth_horn"}},
			Top10:       guild.RewardBundle{Gold: 1500, Materials: map[string]int64{"iron_plate": 4}},
			Participant: guild.RewardBundle{Gold: 400, Materials: map[string]int64{"iron_plate": 1}},
		},
	},
}

// QuestTemplates lists the configured quest blueprints.
func QuestTemplates() []QuestTemplate {
	out := make([]QuestTemplate, 0, len(questTemplates))
	for _, t := range questTemplates {
		out = append(out, t)
	}
	return out
}

// RaidTemplates lists the configured raid blueprints.
func RaidTemplates() []RaidTemplate {
	out := make([]RaidTemplate, 0, len(raidTemplates))
	for _, t := range raidTemplates {
		out = append(out, t)
	}
	return out
}
