// Package token issues HS256 JWTs for known users and guards handlers with them.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTTL = time.Hour

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userKey struct{}

// Issuer signs tokens for the users it knows. Users maps a name to its bcrypt hash.
type Issuer struct {
	signingKey []byte
	users      map[string]string
	ttl        time.Duration
	now        func() time.Time
}

func NewIssuer(signingKey []byte, users map[string]string) *Issuer {
	return &Issuer{
		signingKey: signingKey,
		users:      users,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
}

func (i *Issuer) Issue(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      i.now().Add(i.ttl).Unix(),
	})
	return token.SignedString(i.signingKey)
}

func (i *Issuer) GetToken(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	storedPassword, ok := i.users[user.Username]
	if !ok || !checkPasswordHash(user.Password, storedPassword) {
		log.Info().Str("username", user.Username).Msg("Rejected login")
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	tokenString, err := i.Issue(user.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		http.Error(w, "Could not issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": tokenString}); err != nil {
		log.Error().Err(err).Msg("Failed to write token response")
	}
}

// Verify returns the username carried by a valid token.
func (i *Issuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", errors.New("token has no username")
	}
	return username, nil
}

func (i *Issuer) JwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}

		username, err := i.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			hlog.FromRequest(r).Info().Err(err).Msg("Rejected token")
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user", username)
		})
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
	})
}

func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey{}, username)
}

// UserFrom returns the authenticated username stored by JwtMiddleware.
func UserFrom(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(userKey{}).(string)
	return username, ok && username != ""
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
