package search

import (
	"context"
	"testing"
	"time"

	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/store"
	"github.com/asakura-games/guildserver/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *store.Guilds) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	guilds := store.NewGuilds(db, zap.NewNop())
	c, _ := testutil.SetupTestCache(t)
	return NewService(guilds, c, zap.NewNop()), guilds
}

func seedGuild(t *testing.T, guilds *store.Guilds, id, serverID, name, tag string, level, members int, mutate func(g *guild.Guild)) {
	t.Helper()
	now := time.Now()
	g := guild.New(id, serverID, name, tag,
		guild.Member{PlayerID: id + "-leader", PlayerName: "Leader"}, 30, now)
	g.Level = level
	for i := 1; i < members; i++ {
		require.NoError(t, g.AddMember(guild.Member{
			PlayerID:   id + "-m" + string(rune('a'+i)),
			PlayerName: "Member",
		}, now))
	}
	if mutate != nil {
		mutate(g)
	}
	require.NoError(t, guilds.Create(context.Background(), g, nil))
}

func TestListFilters(t *testing.T) {
	svc, guilds := setup(t)
	ctx := context.Background()

	seedGuild(t, guilds, "g1", "s1", "Night Parade", "NPRD", 10, 3, nil)
	seedGuild(t, guilds, "g2", "s1", "Dawn Watch", "DAWN", 5, 2, nil)
	seedGuild(t, guilds, "g3", "s1", "Night Owls", "OWLS", 8, 1, func(g *guild.Guild) {
		g.Settings.Visibility = guild.VisibilityPrivate
	})
	seedGuild(t, guilds, "g4", "s2", "Other Shard", "OTHR", 20, 1, nil)

	all, err := svc.List(ctx, Query{ServerID: "s1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "g1", all[0].ID) // highest level first

	named, err := svc.List(ctx, Query{ServerID: "s1", NamePrefix: "Night"})
	require.NoError(t, err)
	assert.Len(t, named, 2)

	public, err := svc.List(ctx, Query{ServerID: "s1", PublicOnly: true})
	require.NoError(t, err)
	assert.Len(t, public, 2)

	leveled, err := svc.List(ctx, Query{ServerID: "s1", MinLevel: 8})
	require.NoError(t, err)
	assert.Len(t, leveled, 2)
}

func TestListExcludesDisbanded(t *testing.T) {
	svc, guilds := setup(t)
	ctx := context.Background()

	seedGuild(t, guilds, "g1", "s1", "Night Parade", "NPRD", 10, 1, nil)
	seedGuild(t, guilds, "g2", "s1", "Dawn Watch", "DAWN", 5, 1, nil)
	_, err := guilds.Mutate(ctx, "g2", func(tx *gorm.DB, g *guild.Guild) error {
		return g.Disband("g2-leader", time.Now())
	})
	require.NoError(t, err)

	out, err := svc.List(ctx, Query{ServerID: "s1"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "g1", out[0].ID)
}

func TestGet(t *testing.T) {
	svc, guilds := setup(t)
	ctx := context.Background()
	seedGuild(t, guilds, "g1", "s1", "Night Parade", "NPRD", 10, 1, nil)

	g, err := svc.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Night Parade", g.Name)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, guild.KindNotFound, guild.KindOf(err))
}

func TestTopGuildsWarmsCache(t *testing.T) {
	svc, guilds := setup(t)
	ctx := context.Background()

	seedGuild(t, guilds, "g1", "s1", "Night Parade", "NPRD", 10, 3, nil)
	seedGuild(t, guilds, "g2", "s1", "Dawn Watch", "DAWN", 15, 2, nil)
	seedGuild(t, guilds, "g3", "s1", "Third Wheel", "THRD", 10, 5, nil)

	top, err := svc.TopGuilds(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "g2", top[0].ID)
	// Equal level breaks toward the bigger roster.
	assert.Equal(t, "g3", top[1].ID)
	assert.Equal(t, "g1", top[2].ID)
}

func TestRefreshLeaderboardDropsDisbanded(t *testing.T) {
	svc, guilds := setup(t)
	ctx := context.Background()

	seedGuild(t, guilds, "g1", "s1", "Night Parade", "NPRD", 10, 1, nil)
	seedGuild(t, guilds, "g2", "s1", "Dawn Watch", "DAWN", 15, 1, nil)
	require.NoError(t, svc.RefreshLeaderboard(ctx, "s1"))

	_, err := guilds.Mutate(ctx, "g2", func(tx *gorm.DB, g *guild.Guild) error {
		return g.Disband("g2-leader", time.Now())
	})
	require.NoError(t, err)
	require.NoError(t, svc.RefreshLeaderboard(ctx, "s1"))

	top, err := svc.TopGuilds(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "g1", top[0].ID)
}
