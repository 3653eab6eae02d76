package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atdata/ishare/internal/wallet"
)

// Dashboard fetches aggregate statistics. Admin role required.
func (c *Client) Dashboard(ctx context.Context) (wallet.DashboardStats, error) {
	var resp struct {
		Dashboard *wallet.DashboardStats `json:"dashboard"`
	}

	err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, nil, &resp)
	if err != nil {
		return wallet.DashboardStats{}, fmt.Errorf("fetch dashboard: %w", err)
	}

	if resp.Dashboard == nil {
		return wallet.DashboardStats{}, &wallet.EnvelopeError{Endpoint: "/admin/dashboard", Reason: "missing dashboard object"}
	}

	return *resp.Dashboard, nil
}

// Users fetches one page of user records. The response envelope is fixed:
// {"users": [...], "pagination": {...}} and nothing else.
func (c *Client) Users(ctx context.Context, page, limit int) ([]wallet.Account, wallet.Pagination, error) {
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}

	var resp struct {
		Users      []wallet.Account   `json:"users"`
		Pagination *wallet.Pagination `json:"pagination"`
	}

	err := c.do(ctx, http.MethodGet, "/admin/users", query, nil, &resp)
	if err != nil {
		return nil, wallet.Pagination{}, fmt.Errorf("fetch users: %w", err)
	}

	if resp.Users == nil || resp.Pagination == nil {
		return nil, wallet.Pagination{}, &wallet.EnvelopeError{Endpoint: "/admin/users", Reason: "missing users array or pagination"}
	}

	return resp.Users, *resp.Pagination, nil
}

// Transactions fetches one page of transaction records, optionally filtered
// by type ("load", "debit", "transfer", "usage"; empty means all).
func (c *Client) Transactions(ctx context.Context, page, limit int, txType string) ([]wallet.TransactionRecord, wallet.Pagination, error) {
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	if txType != "" && txType != "all" {
		query.Set("type", txType)
	}

	var resp struct {
		Transactions []wallet.TransactionRecord `json:"transactions"`
		Pagination   *wallet.Pagination         `json:"pagination"`
	}

	err := c.do(ctx, http.MethodGet, "/admin/transactions", query, nil, &resp)
	if err != nil {
		return nil, wallet.Pagination{}, fmt.Errorf("fetch transactions: %w", err)
	}

	if resp.Transactions == nil || resp.Pagination == nil {
		return nil, wallet.Pagination{}, &wallet.EnvelopeError{Endpoint: "/admin/transactions", Reason: "missing transactions array or pagination"}
	}

	return resp.Transactions, *resp.Pagination, nil
}

// CreditIshare credits a user's balance (an admin load, distinct from a peer
// transfer).
func (c *Client) CreditIshare(ctx context.Context, req wallet.CreditRequest) error {
	err := c.do(ctx, http.MethodPost, "/admin/credit-ishare", nil, req, nil)
	if err != nil {
		return fmt.Errorf("credit ishare: %w", err)
	}

	return nil
}

// DebitIshare debits a user's balance.
func (c *Client) DebitIshare(ctx context.Context, req wallet.CreditRequest) error {
	err := c.do(ctx, http.MethodPost, "/admin/debit-ishare", nil, req, nil)
	if err != nil {
		return fmt.Errorf("debit ishare: %w", err)
	}

	return nil
}

// BulkCreditIshare credits many users in one call and reports per-row
// outcomes.
func (c *Client) BulkCreditIshare(ctx context.Context, credits []wallet.CreditRequest) (wallet.BulkCreditResult, error) {
	body := map[string][]wallet.CreditRequest{"credits": credits}

	var result wallet.BulkCreditResult

	err := c.do(ctx, http.MethodPost, "/admin/bulk-credit-ishare", nil, body, &result)
	if err != nil {
		return wallet.BulkCreditResult{}, fmt.Errorf("bulk credit ishare: %w", err)
	}

	return result, nil
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, userID string, update wallet.UserUpdate) error {
	err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID), nil, update, nil)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// DeactivateUser marks a user inactive. The backend deactivates rather than
// deletes.
func (c *Client) DeactivateUser(ctx context.Context, userID string) error {
	err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	return nil
}
