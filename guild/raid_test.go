package guild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raidGuild(t *testing.T) *Guild {
	t.Helper()
	g := testGuild(t)
	g.Level = 5
	addMember(t, g, "p2", "Beni", RoleMember)
	addMember(t, g, "p3", "Chie", RoleMember)
	return g
}

func startRaid(t *testing.T, g *Guild, maxHealth int64) {
	t.Helper()
	require.NoError(t, g.StartRaid("p-leader", Raid{
		RaidID:          "r1",
		Type:            "abyss_dragon",
		DifficultyLevel: 3,
		MaxParticipants: 20,
		BossHealth:      BossHealth{Max: maxHealth},
		EndTime:         t0.Add(48 * time.Hour),
		Rewards: RaidRewards{
			MVP:         RewardBundle{Gold: 5000, Items: []string{"dragon_crest"}},
			Top10:       RewardBundle{Gold: 2000},
			Participant: RewardBundle{Gold: 500},
		},
	}, 5, t0))
}

func activeRaid(t *testing.T, g *Guild, players ...string) {
	t.Helper()
	startRaid(t, g, 1_000_000)
	for _, p := range players {
		require.NoError(t, g.JoinRaid("r1", p, t0))
	}
	require.NoError(t, g.BeginRaid("p-leader", "r1", t0))
}

func TestStartRaidPreconditions(t *testing.T) {
	g := raidGuild(t)

	err := g.StartRaid("p2", Raid{RaidID: "r1", BossHealth: BossHealth{Max: 100}}, 5, t0)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	g.Level = 3
	err = g.StartRaid("p-leader", Raid{RaidID: "r1", BossHealth: BossHealth{Max: 100}}, 5, t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))
	g.Level = 5

	startRaid(t, g, 1000)
	require.NotNil(t, g.Raid)
	assert.Equal(t, RaidPreparing, g.Raid.Status)
	assert.Equal(t, int64(1000), g.Raid.BossHealth.Current)

	// Only one raid in flight.
	err = g.StartRaid("p-leader", Raid{RaidID: "r2", BossHealth: BossHealth{Max: 100}}, 5, t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestJoinAndReady(t *testing.T) {
	g := raidGuild(t)
	startRaid(t, g, 1000)

	err := g.JoinRaid("r1", "stranger", t0)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	err = g.JoinRaid("r9", "p2", t0)
	assert.Equal(t, KindNotFound, KindOf(err))

	require.NoError(t, g.JoinRaid("r1", "p2", t0))
	err = g.JoinRaid("r1", "p2", t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	err = g.SetRaidReady("r1", "p3", true, t0)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	require.NoError(t, g.SetRaidReady("r1", "p2", true, t0))
	assert.True(t, g.Raid.participant("p2").IsReady)
}

func TestRaidCapacity(t *testing.T) {
	g := raidGuild(t)
	require.NoError(t, g.StartRaid("p-leader", Raid{
		RaidID:          "r1",
		MaxParticipants: 1,
		BossHealth:      BossHealth{Max: 1000},
		EndTime:         t0.Add(time.Hour),
	}, 5, t0))
	require.NoError(t, g.JoinRaid("r1", "p2", t0))

	err := g.JoinRaid("r1", "p3", t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestBeginRaid(t *testing.T) {
	g := raidGuild(t)
	startRaid(t, g, 1000)

	err := g.BeginRaid("p-leader", "r1", t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err)) // no participants

	require.NoError(t, g.JoinRaid("r1", "p2", t0))

	err = g.BeginRaid("p2", "r1", t0)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	require.NoError(t, g.BeginRaid("p-leader", "r1", t0))
	assert.Equal(t, RaidActive, g.Raid.Status)

	// Damage before activation is rejected; dealt here to prove joins are
	// still accepted mid-fight.
	require.NoError(t, g.JoinRaid("r1", "p3", t0))
}

func TestRaidDamageCompletesExactlyOnce(t *testing.T) {
	g := raidGuild(t)
	activeRaid(t, g, "p-leader", "p2", "p3")

	res, err := g.ApplyRaidDamage("r1", "p-leader", 400_000, t0)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, int64(600_000), res.Health.Current)
	assert.Equal(t, []int{25}, res.Milestones)

	res, err = g.ApplyRaidDamage("r1", "p2", 300_000, t0)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, int64(300_000), res.Health.Current)
	assert.Equal(t, []int{50}, res.Milestones)

	// The killing blow completes the raid and ranks rewards in one step.
	res, err = g.ApplyRaidDamage("r1", "p3", 350_000, t0)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, int64(0), res.Health.Current)
	require.Len(t, res.Rankings, 3)

	assert.Equal(t, "p-leader", res.Rankings[0].PlayerID)
	assert.Equal(t, TierMVP, res.Rankings[0].Tier)
	assert.Equal(t, int64(5000), res.Rankings[0].Reward.Gold)
	assert.Equal(t, "p3", res.Rankings[1].PlayerID)
	assert.Equal(t, TierTop10, res.Rankings[1].Tier)
	assert.Equal(t, "p2", res.Rankings[2].PlayerID)
	assert.Equal(t, TierTop10, res.Rankings[2].Tier)

	// The raid moved to history; further attacks find nothing.
	assert.Nil(t, g.Raid)
	assert.Equal(t, 1, g.RaidHistory.Len())
	archived := g.RaidHistory.List()[0]
	assert.Equal(t, RaidCompleted, archived.Status)
	require.NotNil(t, archived.CompletedAt)

	_, err = g.ApplyRaidDamage("r1", "p2", 100, t0)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRaidDamageClampsToZero(t *testing.T) {
	g := raidGuild(t)
	activeRaid(t, g, "p2")

	res, err := g.ApplyRaidDamage("r1", "p2", 5_000_000, t0)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, int64(0), res.Health.Current)
	// The participant's tally keeps the full damage even past the kill.
	assert.Equal(t, int64(5_000_000), res.Rankings[0].Damage)
}

func TestRaidDamageErrors(t *testing.T) {
	g := raidGuild(t)
	startRaid(t, g, 1000)
	require.NoError(t, g.JoinRaid("r1", "p2", t0))

	// Raid still preparing.
	_, err := g.ApplyRaidDamage("r1", "p2", 100, t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	require.NoError(t, g.BeginRaid("p-leader", "r1", t0))

	_, err = g.ApplyRaidDamage("r1", "p3", 100, t0)
	assert.Equal(t, KindPermissionDenied, KindOf(err)) // never joined

	_, err = g.ApplyRaidDamage("r1", "p2", 0, t0)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestRaidRewardTiers(t *testing.T) {
	g := testGuild(t)
	g.Level = 5
	g.MaxMembers = 50
	for i := 0; i < 14; i++ {
		id := string(rune('a' + i))
		require.NoError(t, g.AddMember(Member{PlayerID: "p-" + id, PlayerName: id}, t0))
	}
	startRaid(t, g, 1_000_000)
	players := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		players = append(players, "p-"+string(rune('a'+i)))
	}
	for _, p := range players {
		require.NoError(t, g.JoinRaid("r1", p, t0))
	}
	require.NoError(t, g.BeginRaid("p-leader", "r1", t0))

	// Descending damage by join order; the last attack finishes the boss.
	for i, p := range players {
		dmg := int64(10_000 - i*100)
		_, err := g.ApplyRaidDamage("r1", p, dmg, t0)
		require.NoError(t, err)
	}
	res, err := g.ApplyRaidDamage("r1", players[0], 1_000_000, t0)
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Len(t, res.Rankings, 14)

	assert.Equal(t, TierMVP, res.Rankings[0].Tier)
	assert.Equal(t, players[0], res.Rankings[0].PlayerID)
	for i := 1; i < 10; i++ {
		assert.Equal(t, TierTop10, res.Rankings[i].Tier)
	}
	for i := 10; i < 14; i++ {
		assert.Equal(t, TierParticipant, res.Rankings[i].Tier)
		assert.Equal(t, int64(500), res.Rankings[i].Reward.Gold)
	}
}

func TestRaidRankingTieBreaks(t *testing.T) {
	g := raidGuild(t)
	startRaid(t, g, 1_000_000)
	require.NoError(t, g.JoinRaid("r1", "p3", t0))
	require.NoError(t, g.JoinRaid("r1", "p2", t0.Add(time.Minute)))
	require.NoError(t, g.BeginRaid("p-leader", "r1", t0))

	_, err := g.ApplyRaidDamage("r1", "p2", 500_000, t0)
	require.NoError(t, err)
	res, err := g.ApplyRaidDamage("r1", "p3", 500_000, t0)
	require.NoError(t, err)
	require.True(t, res.Completed)

	// Equal damage: the earlier join ranks first.
	assert.Equal(t, "p3", res.Rankings[0].PlayerID)
	assert.Equal(t, "p2", res.Rankings[1].PlayerID)
}

func TestFailRaidIfExpired(t *testing.T) {
	g := raidGuild(t)
	activeRaid(t, g, "p2")

	assert.False(t, g.FailRaidIfExpired(t0.Add(time.Hour)))
	require.NotNil(t, g.Raid)

	assert.True(t, g.FailRaidIfExpired(t0.Add(49*time.Hour)))
	assert.Nil(t, g.Raid)
	require.Equal(t, 1, g.RaidHistory.Len())
	assert.Equal(t, RaidFailed, g.RaidHistory.List()[0].Status)

	assert.False(t, g.FailRaidIfExpired(t0.Add(50*time.Hour)))
}
