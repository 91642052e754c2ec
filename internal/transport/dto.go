package transport

import (
	"time"

	"github.com/styleguard/styleguard/internal/models"
	"github.com/styleguard/styleguard/internal/tokens"
)

type RegisterRequest struct {
	Email    string `json:"email"    form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginRequest follows the OAuth2 password form, where "username" carries
// the email address. A JSON body may use "email" instead.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Login() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type RefreshRequest struct {
	Token        string `json:"token"         form:"token"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func NewTokenResponse(p tokens.Pair, now time.Time) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.AccessExp.Sub(now).Seconds()),
	}
}

type RefreshResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

// UpdateUserRequest changes only the fields present in the body.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

type CorrectionRequest struct {
	OriginalText string `json:"original_text" form:"original_text"`
}

type CorrectionResponse struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	OriginalText  string    `json:"original_text"`
	CorrectedText string    `json:"corrected_text"`
	Language      string    `json:"language"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewCorrectionResponse(c *models.Correction) CorrectionResponse {
	return CorrectionResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		OriginalText:  c.OriginalText,
		CorrectedText: c.CorrectedText,
		Language:      c.Language,
		CreatedAt:     c.CreatedAt,
	}
}

func NewCorrectionList(items []models.Correction) []CorrectionResponse {
	out := make([]CorrectionResponse, 0, len(items))
	for i := range items {
		out = append(out, NewCorrectionResponse(&items[i]))
	}
	return out
}

type SearchResponse struct {
	Total int64                `json:"total"`
	Items []CorrectionResponse `json:"items"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
