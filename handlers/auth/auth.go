package auth

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDisplayName = "Guest"
	tokenLifetime      = 7 * 24 * time.Hour
)

var jwtSecret []byte

// AppClaims represents the custom claims for the JWT. Subject is the user id.
type AppClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

type (
	GuestRequest struct {
		Name string `json:"name"`
	}

	TokenResponse struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	}
)

// InitAuth reads JWT_SECRET. Without one a random per-process secret is
// used, so tokens do not survive a restart.
func InitAuth() {
	secret := os.Getenv("JWT_SECRET")
	if secret != "" {
		SetSecret([]byte(secret))
		return
	}
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		logrus.WithError(err).Fatal("Failed to generate JWT secret")
	}
	logrus.Warn("JWT_SECRET not set, using a random secret")
	SetSecret(random)
}

func SetSecret(secret []byte) {
	jwtSecret = secret
}

func CreateJWT(userID, name string) (string, error) {
	if name == "" {
		name = DefaultDisplayName
	}
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name: name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// HandleGuest issues a token for a fresh anonymous editor.
func HandleGuest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultDisplayName
	}

	userID := ulid.Make().String()
	token, err := CreateJWT(userID, name)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to sign token"})
		return
	}

	logrus.WithField("user_id", userID).Info("Guest token issued")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, TokenResponse{Token: token, UserID: userID, Name: name})
}
