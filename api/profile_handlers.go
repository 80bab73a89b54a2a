package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/influence-engine/funnel-go/config"
	"github.com/influence-engine/funnel-go/models"
)

type ProfileRequest struct {
	Firstname string `json:"firstname"`
	Email     string `json:"email"`
	Codeword  string `json:"codeword"`
	NdaSigned bool   `json:"ndaSigned"`
	IsUpdate  bool   `json:"isUpdate"` // true for unlock, false for create
}

type ProfileResponse struct {
	Success bool            `json:"success"`
	Profile *models.Profile `json:"profile,omitempty"`
	Token   string          `json:"token,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ProfileHandler handles both create and unlock profile operations
func (h *Handlers) ProfileHandler(c *gin.Context) {
	var req ProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ProfileResponse{Success: false, Error: "Invalid request format"})
		return
	}

	if req.Email == "" || req.Codeword == "" {
		c.JSON(http.StatusBadRequest, ProfileResponse{Success: false, Error: "Email and codeword required"})
		return
	}

	if req.IsUpdate {
		h.handleUnlockProfile(c, &req)
		return
	}

	if req.Firstname == "" {
		c.JSON(http.StatusBadRequest, ProfileResponse{Success: false, Error: "Firstname required for profile creation"})
		return
	}
	h.handleCreateProfile(c, &req)
}

func (h *Handlers) handleCreateProfile(c *gin.Context, req *ProfileRequest) {
	existing, err := h.Profiles.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Database error checking existing email"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, ProfileResponse{Success: false, Error: "Email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Codeword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Failed to secure codeword"})
		return
	}

	profile := &models.Profile{
		Firstname:    req.Firstname,
		Email:        req.Email,
		CodewordHash: string(hash),
		NdaSigned:    req.NdaSigned,
	}
	if err := h.Profiles.Create(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Failed to create profile"})
		return
	}

	token, err := createProfileToken(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Success: true, Profile: profile, Token: token})
}

func (h *Handlers) handleUnlockProfile(c *gin.Context, req *ProfileRequest) {
	profile, err := h.Profiles.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Database error loading profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, ProfileResponse{Success: false, Error: "Profile not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.CodewordHash), []byte(req.Codeword)); err != nil {
		c.JSON(http.StatusUnauthorized, ProfileResponse{Success: false, Error: "Invalid codeword"})
		return
	}

	token, err := createProfileToken(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Success: true, Profile: profile, Token: token})
}

// GetProfileHandler returns the profile for a bearer token.
func (h *Handlers) GetProfileHandler(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, ProfileResponse{Success: false, Error: "Missing bearer token"})
		return
	}

	profileID, err := parseProfileToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ProfileResponse{Success: false, Error: "Invalid token"})
		return
	}

	profile, err := h.Profiles.GetByID(c.Request.Context(), profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ProfileResponse{Success: false, Error: "Database error loading profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, ProfileResponse{Success: false, Error: "Profile not found"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Success: true, Profile: profile})
}

func createProfileToken(profileID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   profileID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret()))
}

func parseProfileToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.JWTSecret()), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}
