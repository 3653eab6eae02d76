package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atdata/ishare/internal/wallet"
)

// Profile fetches the account and refreshes the cached snapshot. This is the
// explicit refresh trigger: call it after any balance-affecting action
// instead of polling on a timer.
func (c *Client) Profile(ctx context.Context) (wallet.Account, error) {
	var acct wallet.Account

	err := c.do(ctx, http.MethodGet, "/user/profile", nil, nil, &acct)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("fetch profile: %w", err)
	}

	if acct.ID == "" {
		return wallet.Account{}, &wallet.EnvelopeError{Endpoint: "/user/profile", Reason: "missing account id"}
	}

	if c.store != nil {
		sess, lerr := c.store.Load()
		if lerr == nil {
			sess.Account = acct
			if serr := c.store.Save(sess); serr != nil {
				return wallet.Account{}, fmt.Errorf("refresh session snapshot: %w", serr)
			}
		}
	}

	return acct, nil
}

// Balance fetches the current balance only.
func (c *Client) Balance(ctx context.Context) (wallet.Balance, error) {
	var bal wallet.Balance

	err := c.do(ctx, http.MethodGet, "/user/balance", nil, nil, &bal)
	if err != nil {
		return wallet.Balance{}, fmt.Errorf("fetch balance: %w", err)
	}

	return bal, nil
}

// RegenerateAPIKey rotates the account's API credential and returns the new
// key. The stored snapshot is updated so the CLI shows the fresh key.
func (c *Client) RegenerateAPIKey(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
		APIKey  string `json:"apiKey"`
	}

	err := c.do(ctx, http.MethodPost, "/user/regenerate-api-key", nil, nil, &resp)
	if err != nil {
		return "", fmt.Errorf("regenerate api key: %w", err)
	}

	if resp.APIKey == "" {
		return "", &wallet.EnvelopeError{Endpoint: "/user/regenerate-api-key", Reason: "missing apiKey"}
	}

	if c.store != nil {
		sess, lerr := c.store.Load()
		if lerr == nil {
			sess.Account.APIKey = resp.APIKey
			if serr := c.store.Save(sess); serr != nil {
				return "", fmt.Errorf("refresh session snapshot: %w", serr)
			}
		}
	}

	return resp.APIKey, nil
}

// UseData consumes part of the caller's own allotment.
func (c *Client) UseData(ctx context.Context, amountMB int64) (int64, error) {
	body := map[string]int64{"amountMB": amountMB}

	var resp struct {
		Success          bool  `json:"success"`
		RemainingBalance int64 `json:"remainingBalance"`
	}

	err := c.do(ctx, http.MethodPost, "/use-data", nil, body, &resp)
	if err != nil {
		return 0, fmt.Errorf("use data: %w", err)
	}

	return resp.RemainingBalance, nil
}

// UsageHistory lists the caller's data-usage records.
func (c *Client) UsageHistory(ctx context.Context) ([]wallet.UsageRecord, error) {
	var resp struct {
		Usage []wallet.UsageRecord `json:"usage"`
	}

	err := c.do(ctx, http.MethodGet, "/usage-history", nil, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch usage history: %w", err)
	}

	if resp.Usage == nil {
		return nil, &wallet.EnvelopeError{Endpoint: "/usage-history", Reason: "missing usage array"}
	}

	return resp.Usage, nil
}

// LoadHistory lists administrative credits to the caller's account.
func (c *Client) LoadHistory(ctx context.Context) ([]wallet.LoadRecord, error) {
	var resp struct {
		Loads []wallet.LoadRecord `json:"loads"`
	}

	err := c.do(ctx, http.MethodGet, "/loads", nil, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch load history: %w", err)
	}

	if resp.Loads == nil {
		return nil, &wallet.EnvelopeError{Endpoint: "/loads", Reason: "missing loads array"}
	}

	return resp.Loads, nil
}
