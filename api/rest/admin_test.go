package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) doAdmin(t *testing.T, method, path, adminKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(buf))
		req.Header.Set("Content-Type", "application/json")
	}
	if adminKey != "" {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	ts.router.ServeHTTP(w, req)
	return w
}

func TestAdmin_RequiresKey(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doAdmin(t, http.MethodGet, "/api/admin/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.doAdmin(t, http.MethodGet, "/api/admin/metrics", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_DisabledWithoutConfiguredKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/admin/metrics", AdminAuth(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
	req.Header.Set("X-Admin-Key", "anything")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_Metrics(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUpAndIn(t, "hero@example.com")
	ts.createCharacter(t, token, "hero")
	ts.createDailyHabit(t, token, "run")

	w := ts.doAdmin(t, http.MethodGet, "/api/admin/metrics", "admin-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, float64(1), got["accounts"])
	assert.Equal(t, float64(1), got["characters"])
	assert.Equal(t, float64(1), got["quests"])
	assert.Equal(t, float64(0), got["activities"])
}

func TestAdmin_BanAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.signUpAndIn(t, "hero@example.com")

	w := ts.doAdmin(t, http.MethodPost, "/api/admin/accounts/1/ban", "admin-key",
		map[string]bool{"ban": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Banned accounts cannot sign in.
	resp := ts.do(t, http.MethodPost, "/api/auth/sign-in", "",
		map[string]string{"email": "hero@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdmin_BanUnknownAccount(t *testing.T) {
	ts := newTestServer(t)
	w := ts.doAdmin(t, http.MethodPost, "/api/admin/accounts/999/ban", "admin-key",
		map[string]bool{"ban": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_RefreshRanking(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUpAndIn(t, "hero@example.com")
	ts.createCharacter(t, token, "hero")
	questID := ts.createDailyHabit(t, token, "run")

	w := ts.do(t, http.MethodPost, "/api/activities", token, map[string]interface{}{
		"quest_id":  questID,
		"closed_at": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	activityID := decode(t, w)["id"].(string)
	w = ts.do(t, http.MethodPost, "/api/activities/"+activityID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.doAdmin(t, http.MethodPost, "/api/admin/ranking/refresh", "admin-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["refreshed"])

	// The leaderboard now serves the character.
	w = ts.do(t, http.MethodGet, "/api/ranking/xp", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranking := decode(t, w)["ranking"].([]interface{})
	require.Len(t, ranking, 1)
	entry := ranking[0].(map[string]interface{})
	assert.Equal(t, "hero", entry["name"])
	assert.Equal(t, float64(20), entry["total_xp"])
}
