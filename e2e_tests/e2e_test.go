package e2etests

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/atdata/ishare/internal/client"
	"github.com/atdata/ishare/internal/session"
	"github.com/atdata/ishare/internal/stubserver"
	"github.com/atdata/ishare/internal/transfer"
	"github.com/atdata/ishare/internal/wallet"
)

func newClient(t *testing.T, baseURL string) (*client.Client, *session.Store) {
	t.Helper()

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	return client.New(client.Config{BaseURL: baseURL, Timeout: 5 * time.Second}, store), store
}

func TestE2E_WalletFlow(t *testing.T) {
	backend := stubserver.NewStore()
	srv := httptest.NewServer(stubserver.New(backend, "e2e-secret", time.Hour).Router())
	defer srv.Close()

	// Clients talk to the mounted API base, the same URL shape the CLI's
	// default configuration uses against a real deployment.
	baseURL := srv.URL + stubserver.BasePath

	ctx := context.Background()

	adminAPI, _ := newClient(t, baseURL)
	aliceAPI, aliceStore := newClient(t, baseURL)
	bobAPI, _ := newClient(t, baseURL)

	const bobPhone = "0244333444"

	t.Run("register_accounts", func(t *testing.T) {
		_, err := adminAPI.Register(ctx, client.RegisterRequest{
			Name: "Admin", Email: "admin@e2e.local", Password: "admin-pw",
			PhoneNumber: "0200000000", Role: wallet.RoleAdmin,
		})
		if err != nil {
			t.Fatalf("register admin: %v", err)
		}

		alice, err := aliceAPI.Register(ctx, client.RegisterRequest{
			Name: "Alice", Email: "alice@e2e.local", Password: "alice-pw",
			PhoneNumber: "0244111222",
		})
		if err != nil {
			t.Fatalf("register alice: %v", err)
		}

		if alice.Role != wallet.RoleBuyer {
			t.Fatalf("default role: want buyer, got %s", alice.Role)
		}

		if alice.IshareBalance != 0 {
			t.Fatalf("fresh balance: want 0, got %d", alice.IshareBalance)
		}

		_, err = bobAPI.Register(ctx, client.RegisterRequest{
			Name: "Bob", Email: "bob@e2e.local", Password: "bob-pw",
			PhoneNumber: bobPhone,
		})
		if err != nil {
			t.Fatalf("register bob: %v", err)
		}
	})

	t.Run("admin_credits_alice", func(t *testing.T) {
		err := adminAPI.CreditIshare(ctx, wallet.CreditRequest{
			UserEmail: "alice@e2e.local", AmountMB: 5120, Reason: "e2e seed",
		})
		if err != nil {
			t.Fatalf("credit: %v", err)
		}

		bal, err := aliceAPI.Balance(ctx)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}

		if bal.IshareBalance != 5120 {
			t.Fatalf("want 5120 after credit, got %d", bal.IshareBalance)
		}
	})

	t.Run("alice_sends_to_bob", func(t *testing.T) {
		// Refresh so the local pre-check sees the credited balance.
		acct, err := aliceAPI.Profile(ctx)
		if err != nil {
			t.Fatalf("profile: %v", err)
		}

		coord := transfer.New(aliceAPI)

		result, newBalance, err := coord.Send(ctx, bobPhone, "1024", "for the weekend", acct.IshareBalance)
		if err != nil {
			t.Fatalf("send: %v", err)
		}

		if newBalance != 4096 {
			t.Fatalf("want 4096, got %d", newBalance)
		}

		if result.Transfer.Status != wallet.StatusCompleted {
			t.Fatalf("want completed, got %s", result.Transfer.Status)
		}

		if coord.State() != transfer.StateSucceeded {
			t.Fatalf("want succeeded, got %s", coord.State())
		}

		bobBal, err := bobAPI.Balance(ctx)
		if err != nil {
			t.Fatalf("bob balance: %v", err)
		}

		if bobBal.IshareBalance != 1024 {
			t.Fatalf("bob: want 1024, got %d", bobBal.IshareBalance)
		}
	})

	t.Run("history_reflects_transfer", func(t *testing.T) {
		sent, err := aliceAPI.Transfers(ctx, client.TransfersSent)
		if err != nil {
			t.Fatalf("alice transfers: %v", err)
		}

		if len(sent) != 1 || sent[0].AmountMB != 1024 || sent[0].Type != "sent" {
			t.Fatalf("unexpected sent history: %+v", sent)
		}

		received, err := bobAPI.Transfers(ctx, client.TransfersReceived)
		if err != nil {
			t.Fatalf("bob transfers: %v", err)
		}

		if len(received) != 1 || received[0].Type != "received" || received[0].SenderName != "Alice" {
			t.Fatalf("unexpected received history: %+v", received)
		}
	})

	t.Run("insufficient_balance_rejected_server_side", func(t *testing.T) {
		// Skip the local pre-check to prove the backend stays authoritative.
		coord := transfer.New(aliceAPI)

		_, _, err := coord.Send(ctx, bobPhone, "999999", "", transfer.BalanceUnknown)

		var rejected *wallet.RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("want RejectedError, got %v", err)
		}

		if rejected.Message != "Insufficient balance" {
			t.Fatalf("want server message, got %q", rejected.Message)
		}

		if coord.State() != transfer.StateRejected {
			t.Fatalf("want rejected, got %s", coord.State())
		}
	})

	t.Run("unknown_recipient_rejected", func(t *testing.T) {
		coord := transfer.New(aliceAPI)

		_, _, err := coord.Send(ctx, "0555555555", "10", "", transfer.BalanceUnknown)

		var rejected *wallet.RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("want RejectedError, got %v", err)
		}

		if rejected.Message != "Recipient not found" {
			t.Fatalf("want recipient message, got %q", rejected.Message)
		}
	})

	t.Run("use_data_and_histories", func(t *testing.T) {
		remaining, err := aliceAPI.UseData(ctx, 96)
		if err != nil {
			t.Fatalf("use data: %v", err)
		}

		if remaining != 4000 {
			t.Fatalf("want 4000 remaining, got %d", remaining)
		}

		usage, err := aliceAPI.UsageHistory(ctx)
		if err != nil {
			t.Fatalf("usage history: %v", err)
		}

		if len(usage) != 1 || usage[0].AmountMB != 96 {
			t.Fatalf("unexpected usage history: %+v", usage)
		}

		loads, err := aliceAPI.LoadHistory(ctx)
		if err != nil {
			t.Fatalf("load history: %v", err)
		}

		if len(loads) != 1 || loads[0].AmountMB != 5120 {
			t.Fatalf("unexpected load history: %+v", loads)
		}
	})

	t.Run("api_key_rotation", func(t *testing.T) {
		newKey, err := aliceAPI.RegenerateAPIKey(ctx)
		if err != nil {
			t.Fatalf("regenerate: %v", err)
		}

		// A key-only client with no session must work with the fresh key.
		keyClient := client.New(client.Config{BaseURL: baseURL, Timeout: 5 * time.Second, APIKey: newKey}, nil)

		bal, err := keyClient.Balance(ctx)
		if err != nil {
			t.Fatalf("key client balance: %v", err)
		}

		if bal.IshareBalance != 4000 {
			t.Fatalf("want 4000 via api key, got %d", bal.IshareBalance)
		}
	})

	t.Run("admin_reads", func(t *testing.T) {
		stats, err := adminAPI.Dashboard(ctx)
		if err != nil {
			t.Fatalf("dashboard: %v", err)
		}

		if stats.Users.Total != 3 || stats.Users.Active != 3 {
			t.Fatalf("unexpected user stats: %+v", stats.Users)
		}

		if stats.Ishare.TotalDataLoaded != 5120 || stats.Ishare.TotalDataUsed != 96 {
			t.Fatalf("unexpected ishare stats: %+v", stats.Ishare)
		}

		users, pagination, err := adminAPI.Users(ctx, 1, 2)
		if err != nil {
			t.Fatalf("users: %v", err)
		}

		if len(users) != 2 || pagination.TotalPages != 2 || pagination.Total != 3 {
			t.Fatalf("unexpected page: %d users, %+v", len(users), pagination)
		}

		txns, _, err := adminAPI.Transactions(ctx, 1, 20, "transfer")
		if err != nil {
			t.Fatalf("transactions: %v", err)
		}

		if len(txns) != 1 || txns[0].Type != "transfer" {
			t.Fatalf("unexpected transactions: %+v", txns)
		}
	})

	t.Run("admin_debit_and_bulk_credit", func(t *testing.T) {
		err := adminAPI.DebitIshare(ctx, wallet.CreditRequest{
			UserEmail: "bob@e2e.local", AmountMB: 24, Reason: "adjustment",
		})
		if err != nil {
			t.Fatalf("debit: %v", err)
		}

		result, err := adminAPI.BulkCreditIshare(ctx, []wallet.CreditRequest{
			{UserEmail: "alice@e2e.local", AmountMB: 100, Reason: "promo"},
			{UserEmail: "ghost@e2e.local", AmountMB: 100, Reason: "promo"},
		})
		if err != nil {
			t.Fatalf("bulk credit: %v", err)
		}

		if len(result.Results) != 1 || len(result.Errors) != 1 {
			t.Fatalf("unexpected bulk result: %+v", result)
		}
	})

	t.Run("admin_deactivates_bob", func(t *testing.T) {
		users, _, err := adminAPI.Users(ctx, 1, 20)
		if err != nil {
			t.Fatalf("users: %v", err)
		}

		var bobID string

		for _, u := range users {
			if u.Email == "bob@e2e.local" {
				bobID = u.ID
			}
		}

		if bobID == "" {
			t.Fatal("bob not in user list")
		}

		err = adminAPI.DeactivateUser(ctx, bobID)
		if err != nil {
			t.Fatalf("deactivate: %v", err)
		}

		_, err = bobAPI.Balance(ctx)
		if !errors.Is(err, wallet.ErrUnauthorized) {
			t.Fatalf("deactivated bob: want ErrUnauthorized, got %v", err)
		}
	})

	t.Run("logout_clears_session", func(t *testing.T) {
		err := aliceAPI.Logout()
		if err != nil {
			t.Fatalf("logout: %v", err)
		}

		_, err = aliceStore.Load()
		if !errors.Is(err, session.ErrNotAuthenticated) {
			t.Fatalf("want cleared session, got %v", err)
		}

		_, err = aliceAPI.Profile(ctx)
		if !errors.Is(err, wallet.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized after logout, got %v", err)
		}
	})
}
