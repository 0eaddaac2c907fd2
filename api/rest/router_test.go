package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asakura-games/guildserver/activity"
	"github.com/asakura-games/guildserver/cache"
	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/maintenance"
	"github.com/asakura-games/guildserver/membership"
	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/asakura-games/guildserver/model"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/scheduler"
	"github.com/asakura-games/guildserver/search"
	"github.com/asakura-games/guildserver/store"
	"github.com/asakura-games/guildserver/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	sec    config.SecurityConfig
	srv    config.ServerConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)

	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: time.Hour}
	srv := config.ServerConfig{ServerID: "s1", AdminKey: "adminkey"}
	gcfg := config.GuildConfig{
		CreationCost:      10000,
		MinCreateLevel:    10,
		BaseMaxMembers:    30,
		InviteTTL:         7 * 24 * time.Hour,
		InactivityDays:    14,
		RaidMinGuildLevel: 5,
		RaidDuration:      48 * time.Hour,
	}

	guilds := store.NewGuilds(db, logger)
	players := store.NewPlayers(db)
	gateway := &notify.Recorder{}

	memberSvc := membership.NewService(guilds, players, gateway, gcfg, logger)
	activitySvc := activity.NewService(guilds, players, gateway, gcfg, logger)
	maintSvc := maintenance.NewService(guilds, players, gateway, gcfg, logger)
	searchSvc := search.NewService(guilds, c, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	RegisterRoutes(r, Deps{
		DB:         db,
		Cache:      c,
		Security:   sec,
		Server:     srv,
		Membership: memberSvc,
		Activity:   activitySvc,
		Maint:      maintSvc,
		Search:     searchSvc,
		Sched:      sched,
		Logger:     logger,
	})

	return &testServer{router: r, db: db, cache: c, sec: sec, srv: srv}
}

// seedSession creates a player row and a live session token for it.
func (s *testServer) seedSession(t *testing.T, id string, level int, gold int64) string {
	t.Helper()
	require.NoError(t, s.db.Create(&model.Player{
		ID: id, ServerID: "s1", Name: id, Level: level, Gold: gold,
	}).Error)
	return s.sessionFor(t, id)
}

// sessionFor issues a token for an existing player.
func (s *testServer) sessionFor(t *testing.T, id string) string {
	t.Helper()
	token, err := mw.GenerateToken(id, "s1", s.sec.JWTSecret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.cache.Set(context.Background(), mw.SessionKey(token), id, time.Hour))
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// doAdmin performs a request authenticated with the admin key.
func (s *testServer) doAdmin(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(mw.AdminKeyHeader, s.srv.AdminKey)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
