package membership

import (
	"context"
	"testing"
	"time"

	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/model"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/store"
	"github.com/asakura-games/guildserver/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testConfig() config.GuildConfig {
	return config.GuildConfig{
		CreationCost:   10000,
		MinCreateLevel: 10,
		BaseMaxMembers: 30,
		InviteTTL:      7 * 24 * time.Hour,
	}
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	guilds   *store.Guilds
	players  *store.Players
	recorder *notify.Recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	guilds := store.NewGuilds(db, zap.NewNop())
	players := store.NewPlayers(db)
	rec := &notify.Recorder{}
	svc := NewService(guilds, players, rec, testConfig(), zap.NewNop())
	return &fixture{db: db, svc: svc, guilds: guilds, players: players, recorder: rec}
}

func (f *fixture) seedPlayer(t *testing.T, id, name string, level int, gold int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.Player{
		ID: id, ServerID: "s1", Name: name, Level: level, Gold: gold,
	}).Error)
}

func (f *fixture) createGuild(t *testing.T, founderID string) *guild.Guild {
	t.Helper()
	g, err := f.svc.CreateGuild(context.Background(), founderID, "Night Parade", "NPRD")
	require.NoError(t, err)
	return g
}

func TestCreateGuild(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 15000)

	g := f.createGuild(t, "p1")
	assert.Equal(t, "Night Parade", g.Name)
	require.NotNil(t, g.Leader())
	assert.Equal(t, "p1", g.Leader().PlayerID)

	// Cost debited, backref stamped.
	p, err := f.players.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.Gold)
	require.NotNil(t, p.GuildID)
	assert.Equal(t, g.ID, *p.GuildID)

	assert.Len(t, f.recorder.ByType(notify.EventGuildCreated), 1)
}

func TestCreateGuildPreconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "lowlevel", "Lo", 5, 20000)
	f.seedPlayer(t, "poor", "Po", 30, 100)
	f.seedPlayer(t, "p1", "Akira", 30, 50000)

	_, err := f.svc.CreateGuild(ctx, "lowlevel", "Some Guild", "SOME")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))

	_, err = f.svc.CreateGuild(ctx, "poor", "Some Guild", "SOME")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))
	// Failed creation must not leak a guild row or a debit.
	p, _ := f.players.Get(ctx, "poor")
	assert.Equal(t, int64(100), p.Gold)
	assert.Nil(t, p.GuildID)

	_, err = f.svc.CreateGuild(ctx, "p1", "X", "LONG_TAG")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))

	f.createGuild(t, "p1")
	_, err = f.svc.CreateGuild(ctx, "p1", "Second Guild", "SCND")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))
}

func TestCreateGuildDuplicateName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 30, 20000)
	f.createGuild(t, "p1")

	_, err := f.svc.CreateGuild(ctx, "p2", "Night Parade", "OTHR")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))

	// p2's gold survives the rolled-back creation.
	p, _ := f.players.Get(ctx, "p2")
	assert.Equal(t, int64(20000), p.Gold)
	assert.Nil(t, p.GuildID)
}

func TestApplyAndAccept(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")

	joined, err := f.svc.ApplyToGuild(ctx, g.ID, "p2", "let me in")
	require.NoError(t, err)
	assert.False(t, joined)

	require.NoError(t, f.svc.ProcessApplication(ctx, g.ID, "p1", "p2", true))

	loaded, err := f.guilds.Load(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Member("p2"))
	assert.Equal(t, 2, loaded.MemberCount)

	p, _ := f.players.Get(ctx, "p2")
	require.NotNil(t, p.GuildID)
	assert.Equal(t, g.ID, *p.GuildID)
	assert.Len(t, f.recorder.ByType(notify.EventMemberJoined), 1)
}

func TestApplyAutoAccept(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.UpdateSettings(ctx, g.ID, "p1", guild.Settings{AutoAccept: true}))

	joined, err := f.svc.ApplyToGuild(ctx, g.ID, "p2", "")
	require.NoError(t, err)
	assert.True(t, joined)

	loaded, _ := f.guilds.Load(ctx, g.ID)
	require.NotNil(t, loaded.Member("p2"))
	assert.Empty(t, loaded.Applications)
}

func TestApplyToFullGuild(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	f.seedPlayer(t, "p3", "Chie", 20, 0)
	g := f.createGuild(t, "p1")

	// Pin capacity at the current roster size.
	_, err := f.guilds.Mutate(ctx, g.ID, func(tx *gorm.DB, g *guild.Guild) error {
		g.MaxMembers = 2
		return g.AddMember(guild.Member{PlayerID: "p2", PlayerName: "Beni"}, time.Now())
	})
	require.NoError(t, err)

	_, err = f.svc.ApplyToGuild(ctx, g.ID, "p3", "")
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))

	// The roster and count are unchanged by the failed join.
	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Equal(t, 2, loaded.MemberCount)
	assert.Nil(t, loaded.Member("p3"))
	p, _ := f.players.Get(ctx, "p3")
	assert.Nil(t, p.GuildID)
}

func TestInviteFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")

	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", true))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	require.NotNil(t, loaded.Member("p2"))

	p, _ := f.players.Get(ctx, "p2")
	require.NotNil(t, p.GuildID)
}

func TestInviteDecline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")

	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", false))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Nil(t, loaded.Member("p2"))
	assert.Empty(t, loaded.Invitations)
}

func TestLeaveAndDisbandOnEmpty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	g := f.createGuild(t, "p1")

	require.NoError(t, f.svc.LeaveGuild(ctx, g.ID, "p1"))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Equal(t, guild.StatusDisbanded, loaded.Status)

	p, _ := f.players.Get(ctx, "p1")
	assert.Nil(t, p.GuildID)
	assert.Len(t, f.recorder.ByType(notify.EventGuildDisbanded), 1)
}

func TestKickMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", true))

	require.NoError(t, f.svc.KickMember(ctx, g.ID, "p1", "p2"))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Nil(t, loaded.Member("p2"))
	p, _ := f.players.Get(ctx, "p2")
	assert.Nil(t, p.GuildID)

	events := f.recorder.ByType(notify.EventMemberLeft)
	require.Len(t, events, 1)
	payload := events[0].Payload.(notify.MemberPayload)
	assert.Equal(t, "kicked", payload.Reason)
}

func TestPromoteDemote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", true))

	require.NoError(t, f.svc.PromoteMember(ctx, g.ID, "p1", "p2", guild.RoleOfficer))
	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Equal(t, guild.RoleOfficer, loaded.Member("p2").Role)

	err := f.svc.PromoteMember(ctx, g.ID, "p1", "p2", guild.RoleElite)
	assert.Equal(t, guild.KindPreconditionFailed, guild.KindOf(err))

	require.NoError(t, f.svc.DemoteMember(ctx, g.ID, "p1", "p2", guild.RoleMember))
	loaded, _ = f.guilds.Load(ctx, g.ID)
	assert.Equal(t, guild.RoleMember, loaded.Member("p2").Role)
}

func TestPromoteToLeaderTransfers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", true))

	require.NoError(t, f.svc.PromoteMember(ctx, g.ID, "p1", "p2", guild.RoleLeader))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Equal(t, guild.RoleLeader, loaded.Member("p2").Role)
	assert.Equal(t, guild.RoleOfficer, loaded.Member("p1").Role)
	assert.Equal(t, "p2", loaded.Leader().PlayerID)
}

func TestDisbandGuild(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.InviteMember(ctx, g.ID, "p1", "p2"))
	require.NoError(t, f.svc.ProcessInvitation(ctx, g.ID, "p2", true))

	err := f.svc.DisbandGuild(ctx, g.ID, "p2")
	assert.Equal(t, guild.KindPermissionDenied, guild.KindOf(err))

	require.NoError(t, f.svc.DisbandGuild(ctx, g.ID, "p1"))

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Equal(t, guild.StatusDisbanded, loaded.Status)
	for _, id := range []string{"p1", "p2"} {
		p, _ := f.players.Get(ctx, id)
		assert.Nil(t, p.GuildID)
	}
}

func TestApplyReportsCommittedRoster(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedPlayer(t, "p1", "Akira", 30, 20000)
	f.seedPlayer(t, "p2", "Beni", 20, 0)
	f.seedPlayer(t, "p3", "Chie", 20, 0)
	g := f.createGuild(t, "p1")
	require.NoError(t, f.svc.UpdateSettings(ctx, g.ID, "p1", guild.Settings{AutoAccept: true}))

	joined, err := f.svc.ApplyToGuild(ctx, g.ID, "p2", "")
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Len(t, f.recorder.ByType(notify.EventMemberJoined), 1)

	// Auto-accept switched off: the next applicant stays pending, and the
	// result mirrors the persisted roster rather than any in-flight state.
	require.NoError(t, f.svc.UpdateSettings(ctx, g.ID, "p1", guild.Settings{}))

	joined, err = f.svc.ApplyToGuild(ctx, g.ID, "p3", "let me in")
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Len(t, f.recorder.ByType(notify.EventMemberJoined), 1)

	loaded, _ := f.guilds.Load(ctx, g.ID)
	assert.Nil(t, loaded.Member("p3"))
	require.Len(t, loaded.Applications, 1)
	assert.Equal(t, "p3", loaded.Applications[0].PlayerID)
}
