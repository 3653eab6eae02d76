// Package stubserver is an in-memory stand-in for the production wallet
// backend, serving the same wire contract for development and end-to-end
// tests. It keeps no state beyond process memory.
package stubserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Server binds the store to the HTTP surface and signs bearer tokens.
type Server struct {
	store    *Store
	secret   []byte
	tokenTTL time.Duration
}

func New(store *Store, secret string, tokenTTL time.Duration) *Server {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	return &Server{store: store, secret: []byte(secret), tokenTTL: tokenTTL}
}

// NewHTTPServer wraps the router in a configured *http.Server.
func NewHTTPServer(port uint16, srv *Server) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) mintToken(userID string) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tok, nil
}

func (s *Server) parseToken(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token missing subject")
	}

	return sub, nil
}
