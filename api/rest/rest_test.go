package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/config"
	"github.com/questlogrpg/questlog/server/game/activity"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/game/quest"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/scheduler"
	"github.com/questlogrpg/questlog/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testServer bundles the router and its backing services for handler tests.
type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	acts   *activity.Service
	sec    config.SecurityConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: time.Hour}
	game := config.GameConfig{TimelineMaxDays: 31}

	chars := character.NewService(db, c, logger)
	quests := quest.NewService(db, logger)
	acts := activity.NewService(db, chars, quests, logger)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	authH := NewAuthHandler(db, c, sec, nil)
	charH := NewCharacterHandler(chars)
	questH := NewQuestHandler(quests, chars)
	actH := NewActivityHandler(acts, nil, game)
	rankH := NewRankingHandler(db, c, logger)
	adminH := NewAdminHandler(db, chars, sched, logger)

	r := gin.New()
	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/sign-up", authH.SignUp)
	authG.POST("/sign-in", authH.SignIn)
	authG.POST("/sign-out", mw.Auth(sec, c), authH.SignOut)
	authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

	charsG := api.Group("/characters", mw.Auth(sec, c))
	charsG.POST("", charH.Create)
	charsG.GET("/me", charH.Me)
	charsG.DELETE("/me", charH.Delete)

	questsG := api.Group("/quests", mw.Auth(sec, c))
	questsG.POST("", questH.Create)
	questsG.GET("", questH.List)
	questsG.GET("/:id", questH.Get)
	questsG.PATCH("/:id", questH.Update)
	questsG.POST("/:id/pause", questH.Pause)
	questsG.POST("/:id/unpause", questH.Unpause)
	questsG.DELETE("/:id", questH.Delete)

	actsG := api.Group("/activities", mw.Auth(sec, c))
	actsG.GET("", actH.Timeline)
	actsG.POST("", actH.Create)
	actsG.POST("/:id/complete", actH.Complete)

	api.GET("/ranking/xp", rankH.TopXP)

	adminG := api.Group("/admin", AdminAuth("admin-key"))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.POST("/accounts/:id/ban", adminH.BanAccount)
	adminG.POST("/ranking/refresh", adminH.RefreshRanking)
	adminG.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testServer{router: r, db: db, cache: c, acts: acts, sec: sec}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signUpAndIn registers an account and returns a live token.
func (ts *testServer) signUpAndIn(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "hunter22"}

	w := ts.do(t, http.MethodPost, "/api/auth/sign-up", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/sign-in", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// createCharacter makes the caller's character and returns its ID.
func (ts *testServer) createCharacter(t *testing.T, token, name string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/characters", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

// createDailyHabit makes a daily habit quest and returns its ID.
func (ts *testServer) createDailyHabit(t *testing.T, token, title string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/quests", token, map[string]string{
		"title":      title,
		"type":       "HABIT",
		"frequency":  "DAILY",
		"difficulty": "MEDIUM",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}
