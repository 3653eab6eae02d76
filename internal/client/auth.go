package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atdata/ishare/internal/session"
	"github.com/atdata/ishare/internal/wallet"
)

// RegisterRequest is the /auth/register payload. Role defaults to buyer when
// empty, matching the backend.
type RegisterRequest struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	PhoneNumber string      `json:"phoneNumber"`
	Role        wallet.Role `json:"role,omitempty"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  *wallet.Account `json:"user"`
}

// Register creates an account and, like the browser client, immediately
// captures the returned token and account snapshot as the session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (wallet.Account, error) {
	var resp authResponse

	err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &resp)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("register: %w", err)
	}

	acct, err := c.captureSession("/auth/register", resp)
	if err != nil {
		return wallet.Account{}, err
	}

	return acct, nil
}

// Login authenticates and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (wallet.Account, error) {
	body := map[string]string{"email": email, "password": password}

	var resp authResponse

	err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("login: %w", err)
	}

	acct, err := c.captureSession("/auth/login", resp)
	if err != nil {
		return wallet.Account{}, err
	}

	return acct, nil
}

// Logout clears the stored session. Purely local; the backend keeps no
// session state for bearer tokens.
func (c *Client) Logout() error {
	if c.store == nil {
		return nil
	}

	err := c.store.Clear()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

func (c *Client) captureSession(endpoint string, resp authResponse) (wallet.Account, error) {
	if resp.Token == "" || resp.User == nil {
		return wallet.Account{}, &wallet.EnvelopeError{Endpoint: endpoint, Reason: "missing token or user"}
	}

	if c.store != nil {
		err := c.store.Save(session.Session{Token: resp.Token, Account: *resp.User})
		if err != nil {
			return wallet.Account{}, fmt.Errorf("store session: %w", err)
		}
	}

	return *resp.User, nil
}
