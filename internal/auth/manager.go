package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/geo-accounts/internal/logging"
	"github.com/yourusername/geo-accounts/internal/storage"
)

const (
	reasonBadBody        = "Request body must be a JSON object"
	reasonSignInRequired = "Login and password are required"
	reasonInvalidLogin   = "Invalid login or password"
	reasonConflict       = "User with this login, email, or phone already exists"
	reasonUnknownCountry = "Unknown country code"
	reasonSignInFailed   = "Sign-in failed"
	reasonRegisterFailed = "Registration failed"

	messageRegistered = "User registered successfully"
)

// UserRepository はハンドラーが必要とするユーザー永続化操作です。
type UserRepository interface {
	FindByLogin(ctx context.Context, login string) (*storage.User, error)
	Exists(ctx context.Context, login, email string, phone *string) (bool, error)
	Create(ctx context.Context, user *storage.User) error
}

// Manager は登録・サインイン処理をまとめた構造体です。
type Manager struct {
	users  UserRepository
	tokens *TokenIssuer

	// 存在しないログイン名でも照合を1回行い、応答時間を揃えるためのハッシュ
	dummyHash string
}

// NewManager は認証マネージャーを作成します。
func NewManager(users UserRepository, tokens *TokenIssuer) (*Manager, error) {
	if users == nil {
		return nil, errors.New("users is nil")
	}
	if tokens == nil {
		return nil, errors.New("tokens is nil")
	}
	dummy, err := HashPassword("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Manager{
		users:     users,
		tokens:    tokens,
		dummyHash: dummy,
	}, nil
}

// Tokens はトークンの発行・検証器を返します。
func (m *Manager) Tokens() *TokenIssuer {
	return m.tokens
}

// SignIn は POST /api/auth/sign-in のハンドラーです。
func (m *Manager) SignIn(c *gin.Context) {
	var req signInRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"reason": reasonBadBody})
		return
	}
	if req.Login == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"reason": reasonSignInRequired})
		return
	}

	ctx := c.Request.Context()
	user, err := m.users.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// 未登録とパスワード誤りを区別させない
			VerifyPassword(m.dummyHash, req.Password)
			c.JSON(http.StatusUnauthorized, gin.H{"reason": reasonInvalidLogin})
			return
		}
		logging.From(ctx).Error("sign-in lookup failed", "login", req.Login, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"reason": reasonSignInFailed})
		return
	}

	if !VerifyPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"reason": reasonInvalidLogin})
		return
	}

	token, err := m.tokens.Issue(user.ID, user.Login)
	if err != nil {
		logging.From(ctx).Error("token issue failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"reason": reasonSignInFailed})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Register は POST /api/auth/register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req registerRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"reason": reasonBadBody})
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"reason": "Missing fields: " + strings.Join(missing, ", ")})
		return
	}

	req.Phone = nilIfBlank(req.Phone)
	req.Image = nilIfBlank(req.Image)
	invalid := req.blankFields()
	if len(invalid) == 0 {
		invalid = validate(&req)
	}
	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"reason": "Invalid fields: " + strings.Join(invalid, ", ")})
		return
	}

	ctx := c.Request.Context()
	countryCode := strings.ToUpper(*req.CountryCode)

	exists, err := m.users.Exists(ctx, *req.Login, *req.Email, req.Phone)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"reason": reasonConflict})
		return
	}

	hashed, err := HashPassword(*req.Password)
	if err != nil {
		if isPasswordTooLong(err) {
			c.JSON(http.StatusBadRequest, gin.H{"reason": "Invalid fields: password"})
			return
		}
		respondWithError(c, err)
		return
	}

	user := &storage.User{
		Login:       *req.Login,
		Email:       *req.Email,
		Password:    hashed,
		CountryCode: countryCode,
		IsPublic:    *req.IsPublic,
		Phone:       req.Phone,
		Image:       req.Image,
	}
	if err := m.users.Create(ctx, user); err != nil {
		respondWithError(c, err)
		return
	}

	logging.From(ctx).Info("user registered", "user_id", user.ID, "login", user.Login)
	c.JSON(http.StatusCreated, gin.H{"message": messageRegistered})
}

// respondWithError は永続化層のエラーを分類して応答します。内部の詳細は返さずログに残します。
func respondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"reason": reasonConflict})
	case errors.Is(err, storage.ErrUnknownCountry):
		c.JSON(http.StatusBadRequest, gin.H{"reason": reasonUnknownCountry})
	default:
		logging.From(c.Request.Context()).Error("registration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"reason": reasonRegisterFailed})
	}
}

func nilIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
