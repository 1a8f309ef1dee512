package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questlogrpg/questlog/server/audit"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/config"
	dbutil "github.com/questlogrpg/questlog/server/db"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	db    *gorm.DB
	cache cache.Cache
	sec   config.SecurityConfig
	audit *audit.Service
}

// NewAuthHandler creates a new AuthHandler. auditSvc may be nil in tests.
func NewAuthHandler(db *gorm.DB, c cache.Cache, sec config.SecurityConfig, auditSvc *audit.Service) *AuthHandler {
	return &AuthHandler{db: db, cache: c, sec: sec, audit: auditSvc}
}

type signUpRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// SignUp handles POST /api/auth/sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	acc := model.Account{
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Status:       1,
	}
	if err := h.db.Create(&acc).Error; err != nil {
		if dbutil.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	h.logAuth(c, "sign_up", &acc.ID, "")
	c.JSON(http.StatusCreated, gin.H{"account_id": acc.ID, "email": acc.Email})
}

type signInRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var acc model.Account
	err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if acc.Status == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	token, err := mw.GenerateToken(acc.ID, acc.Email, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	// Store the session so Auth middleware can check token liveness.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Set(ctx, mw.SessionKey(token), acc.Email, h.sec.JWTTTLH)

	// Update last login (best-effort).
	now := time.Now()
	_ = h.db.Model(&acc).Updates(map[string]interface{}{
		"last_login_at": now,
		"last_login_ip": c.ClientIP(),
	}).Error

	h.logAuth(c, "sign_in", &acc.ID, "")
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"account_id": acc.ID,
	})
}

// SignOut handles POST /api/auth/sign-out.
func (h *AuthHandler) SignOut(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	if accountID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var acc model.Account
	if err := h.db.First(&acc, accountID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Invalidate old token.
	header := c.GetHeader("Authorization")
	oldToken := strings.TrimPrefix(header, "Bearer ")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(oldToken))

	newToken, err := mw.GenerateToken(acc.ID, acc.Email, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	_ = h.cache.Set(ctx, mw.SessionKey(newToken), acc.Email, h.sec.JWTTTLH)

	c.JSON(http.StatusOK, gin.H{"token": newToken})
}

func (h *AuthHandler) logAuth(c *gin.Context, action string, accountID *int64, characterID string) {
	if h.audit == nil {
		return
	}
	h.audit.Log(audit.Entry{
		TraceID:     mw.GetTraceID(c),
		AccountID:   accountID,
		CharacterID: characterID,
		Action:      action,
		IP:          c.ClientIP(),
	})
}
