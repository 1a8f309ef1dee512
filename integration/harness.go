package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/questlogrpg/questlog/server/api/rest"
	"github.com/questlogrpg/questlog/server/audit"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/config"
	"github.com/questlogrpg/questlog/server/game/activity"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/game/quest"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/model"
	"github.com/questlogrpg/questlog/server/plugin/hook"
	"github.com/questlogrpg/questlog/server/scheduler"
	"github.com/questlogrpg/questlog/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const adminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with all subsystems wired together.
type TestServer struct {
	DB     *gorm.DB
	Cache  cache.Cache
	Chars  *character.Service
	Quests *quest.Service
	Acts   *activity.Service
	Audit  *audit.Service
	Server *httptest.Server
	URL    string
	Sec    config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	game := config.GameConfig{TimelineMaxDays: 366, RankingTop: 100}

	// ---- Services ----
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(nil) })

	chars := character.NewService(db, c, logger)
	quests := quest.NewService(db, logger)
	acts := activity.NewService(db, chars, quests, logger)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	// ---- Hooks (mirrors main.go's streak badge registration) ----
	hooks := hook.NewHookCenter()
	acts.Hooks = hooks
	streakBadges := map[int]string{7: "WEEK_STREAK", 30: "MONTH_STREAK", 365: "YEAR_STREAK"}
	hooks.Register(hook.OnActivityComplete, 10, "streak_badges", func(ctx context.Context, _ string, data interface{}) (interface{}, error) {
		a, ok := data.(*model.Activity)
		if !ok {
			return data, nil
		}
		ch, err := chars.FindByID(ctx, a.CharacterID)
		if err != nil {
			return data, nil
		}
		if badge, ok := streakBadges[ch.CurrentStreak]; ok {
			_ = chars.GrantBadge(ctx, ch.ID, badge)
		}
		return data, nil
	})

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(db, c, sec, auditSvc)
	charH := apirest.NewCharacterHandler(chars)
	questH := apirest.NewQuestHandler(quests, chars)
	actH := apirest.NewActivityHandler(acts, auditSvc, game)
	rankH := apirest.NewRankingHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, chars, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/sign-up", authH.SignUp)
		authG.POST("/sign-in", authH.SignIn)
		authG.POST("/sign-out", mw.Auth(sec, c), authH.SignOut)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		charsG := api.Group("/characters")
		charsG.Use(mw.Auth(sec, c))
		charsG.POST("", charH.Create)
		charsG.GET("/me", charH.Me)
		charsG.DELETE("/me", charH.Delete)

		questsG := api.Group("/quests")
		questsG.Use(mw.Auth(sec, c))
		questsG.POST("", questH.Create)
		questsG.GET("", questH.List)
		questsG.GET("/:id", questH.Get)
		questsG.PATCH("/:id", questH.Update)
		questsG.POST("/:id/pause", questH.Pause)
		questsG.POST("/:id/unpause", questH.Unpause)
		questsG.DELETE("/:id", questH.Delete)

		actsG := api.Group("/activities")
		actsG.Use(mw.Auth(sec, c))
		actsG.GET("", actH.Timeline)
		actsG.POST("", actH.Create)
		actsG.POST("/:id/complete", actH.Complete)

		rankG := api.Group("/ranking")
		rankG.GET("/xp", rankH.TopXP)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(adminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.POST("/ranking/refresh", adminH.RefreshRanking)
	}

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &TestServer{
		DB:     db,
		Cache:  c,
		Chars:  chars,
		Quests: quests,
		Acts:   acts,
		Audit:  auditSvc,
		Server: server,
		URL:    server.URL,
		Sec:    sec,
	}
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodPost, path, body, token)
}

// PatchJSON sends a PATCH request with JSON body and optional Bearer token.
func (ts *TestServer) PatchJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodPatch, path, body, token)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodGet, path, nil, token)
}

// Delete sends a DELETE request with optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.request(t, http.MethodDelete, path, nil, token)
}

func (ts *TestServer) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// AdminGet sends a GET request with the admin key header.
func (ts *TestServer) AdminGet(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Key", adminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// AdminPost sends a POST request with the admin key header.
func (ts *TestServer) AdminPost(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", adminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// SignUpAndIn registers an account, signs in, and returns the token.
func (ts *TestServer) SignUpAndIn(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "integration-pass"}

	resp := ts.PostJSON(t, "/api/auth/sign-up", creds, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.PostJSON(t, "/api/auth/sign-in", creds, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["token"].(string)
}

// CreateCharacter creates the caller's character and returns its ID.
func (ts *TestServer) CreateCharacter(t *testing.T, token, name string) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/characters", map[string]string{"name": name}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["id"].(string)
}

// CreateQuest creates a quest for the caller and returns its ID.
func (ts *TestServer) CreateQuest(t *testing.T, token string, body map[string]interface{}) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/quests", body, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["id"].(string)
}

// UniqueEmail returns a unique email suitable for sign-up in parallel tests.
var testCounter uint64

func UniqueEmail(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d@example.com", prefix, time.Now().UnixNano()%100000, n)
}
