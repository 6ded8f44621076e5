package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/redis"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

type testServer struct {
	engine   *gin.Engine
	db       *gorm.DB
	tokens   *pkg.TokenManager
	sessions *redis.SessionRepository
}

func newTestServer(t *testing.T, limits config.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	_, rdb := testutil.Redis(t)
	cfg := config.EngagementConfig{
		MaxCommentLength: 200,
		MaxNestingDepth:  3,
		CommentPageSize:  20,
		ContentPageSize:  20,
		MaxPageSize:      50,
		StatsCacheTTL:    time.Minute,
	}
	log := zap.NewNop()
	tokens := pkg.NewTokenManager("a-secret", "r-secret", time.Minute, time.Hour)
	sessions := redis.NewSessionRepository(rdb, time.Minute)
	stats := redis.NewStatsCacheRepository(rdb, cfg.StatsCacheTTL)
	access := service.NewAccessService(db)
	engagements := service.NewEngagementService(db, access, stats, &redis.DistLock{RDB: rdb}, log)

	engine := InitRouter(Deps{
		Log:         log,
		Tokens:      tokens,
		Sessions:    sessions,
		Limiter:     &redis.RateLimiter{RDB: rdb},
		RateLimits:  limits,
		Users:       service.NewUserService(db, access, sessions, tokens),
		Follows:     service.NewFollowService(db),
		Groups:      service.NewGroupService(db),
		Contents:    service.NewContentService(db, access, engagements, cfg, log),
		Engagements: engagements,
		Comments:    service.NewCommentService(db, access, cfg),
	})
	return &testServer{engine: engine, db: db, tokens: tokens, sessions: sessions}
}

// login 直接签发令牌并写入会话
func (s *testServer) login(t *testing.T, userID uint64) string {
	t.Helper()
	pair, err := s.tokens.GeneratePair(userID, model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, s.sessions.AddUserToken(t.Context(), userID, pair.AccessToken))
	return pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
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
	s.engine.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestContentRequiresLogin(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	author := testutil.CreateUser(t, s.db, true)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityPublic, nil)

	code, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/content/SocialPost/%d", post.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", body["code"])
}

func TestStaleSessionRejected(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	u := testutil.CreateUser(t, s.db, true)
	token := s.login(t, u.ID)

	code, _ := s.do(t, http.MethodPost, "/api/user/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/content/SocialPost", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDeniedContentCarriesReason(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	author := testutil.CreateUser(t, s.db, true)
	outsider := testutil.CreateUser(t, s.db, false)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityClubMembers, nil)
	path := fmt.Sprintf("/api/content/SocialPost/%d", post.ID)

	code, body := s.do(t, http.MethodGet, path, s.login(t, outsider.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(privacy.ReasonClubMembersOnly), body["code"])

	code, _ = s.do(t, http.MethodGet, "/api/content/SocialPost/999", s.login(t, author.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/content/Widget/1", s.login(t, author.ID), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBlockedViewerSeesUnavailable(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	author := testutil.CreateUser(t, s.db, true)
	viewer := testutil.CreateUser(t, s.db, true)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityPublic, nil)

	code, _ := s.do(t, http.MethodPost, "/api/follow/", s.login(t, author.ID), gin.H{"followee_id": viewer.ID, "action": "block"})
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/engagement/like/SocialPost/%d", post.ID), s.login(t, viewer.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(privacy.ReasonUnavailable), body["code"])
}

func TestLikeFlow(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	author := testutil.CreateUser(t, s.db, true)
	user := testutil.CreateUser(t, s.db, true)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityPublic, nil)
	token := s.login(t, user.ID)
	path := fmt.Sprintf("/api/engagement/like/SocialPost/%d", post.ID)

	code, body := s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["active"])
	assert.EqualValues(t, 1, body["count"])

	// 重复设置为 true 不再计数
	code, body = s.do(t, http.MethodPost, path, token, gin.H{"active": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["changed"])
	assert.EqualValues(t, 1, body["count"])

	code, body = s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["active"])
	assert.EqualValues(t, 0, body["count"])

	code, body = s.do(t, http.MethodPost, fmt.Sprintf("/api/engagement/view/SocialPost/%d", post.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_action_type", body["code"])

	code, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/engagement/user/SocialPost/%d", post.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	flags := body["flags"].(map[string]any)
	assert.Equal(t, false, flags["liked"])
}

func TestCommentLikeRoute(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	author := testutil.CreateUser(t, s.db, true)
	user := testutil.CreateUser(t, s.db, true)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityPublic, nil)
	token := s.login(t, user.ID)

	code, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/comments/SocialPost/%d", post.ID), token, gin.H{"text": "nice"})
	require.Equal(t, http.StatusOK, code)
	commentID := uint64(body["comment"].(map[string]any)["id"].(float64))

	code, body = s.do(t, http.MethodPost, fmt.Sprintf("/api/engagement/like/Comment/%d", commentID), s.login(t, author.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["active"])
	assert.EqualValues(t, 1, body["count"])

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/engagement/save/Comment/%d", commentID), token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEngagementRateLimited(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{EngagementPerMinute: 2})
	author := testutil.CreateUser(t, s.db, true)
	user := testutil.CreateUser(t, s.db, true)
	post := testutil.CreatePost(t, s.db, author.ID, model.VisibilityPublic, nil)
	token := s.login(t, user.ID)
	path := fmt.Sprintf("/api/engagement/like/SocialPost/%d", post.ID)

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, path, token, nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, body := s.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", body["code"])
}
