package stubserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atdata/ishare/internal/wallet"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()

	store := NewStore()
	srv := httptest.NewServer(New(store, "test-secret", time.Hour).Router())
	t.Cleanup(srv.Close)

	return srv, store
}

// apiURL joins a route onto the mounted base path, the same URL shape the
// CLI's default configuration produces.
func apiURL(srv *httptest.Server, path string) string {
	return srv.URL + BasePath + path
}

func register(t *testing.T, srv *httptest.Server, name, email, phone string, role wallet.Role) (string, wallet.Account) {
	t.Helper()

	body, _ := json.Marshal(map[string]any{
		"name": name, "email": email, "password": "pw12345",
		"phoneNumber": phone, "role": role,
	})

	resp, err := http.Post(apiURL(srv, "/auth/register"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: want 201, got %d", email, resp.StatusCode)
	}

	var out struct {
		Token string         `json:"token"`
		User  wallet.Account `json:"user"`
	}

	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	return out.Token, out.User
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		err := json.NewEncoder(&reqBody).Encode(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer

	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	return resp, buf.Bytes()
}

func TestTransfer_DebitsAndCredits(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	senderToken, sender := register(t, srv, "Sender", "sender@x.y", "0244111222", wallet.RoleBuyer)
	_, recipient := register(t, srv, "Recipient", "recipient@x.y", "0244333444", wallet.RoleBuyer)

	err := store.Credit(sender.Email, 5120, "seed")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, apiURL(srv, "/transfer/send"), senderToken,
		wallet.TransferRequest{PhoneNumber: "0244333444", AmountMB: 1024, Note: "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send: want 200, got %d (%s)", resp.StatusCode, body)
	}

	var result wallet.TransferResult

	err = json.Unmarshal(body, &result)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if !result.Success || result.SenderNewBalance != 4096 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if result.Transfer.ID == "" || result.Transfer.Status != wallet.StatusCompleted {
		t.Fatalf("unexpected receipt: %+v", result.Transfer)
	}

	got, err := store.Get(recipient.ID)
	if err != nil {
		t.Fatalf("get recipient: %v", err)
	}

	if got.IshareBalance != 1024 {
		t.Fatalf("recipient not credited: %d", got.IshareBalance)
	}
}

func TestTransfer_Rejections(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)

	token, sender := register(t, srv, "Sender", "s@x.y", "0244111222", wallet.RoleBuyer)
	register(t, srv, "Recipient", "r@x.y", "0244333444", wallet.RoleBuyer)

	err := store.Credit(sender.Email, 100, "seed")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	tests := []struct {
		name       string
		req        wallet.TransferRequest
		wantStatus int
		wantError  string
	}{
		{
			name:       "insufficient_balance",
			req:        wallet.TransferRequest{PhoneNumber: "0244333444", AmountMB: 1000},
			wantStatus: http.StatusBadRequest,
			wantError:  "Insufficient balance",
		},
		{
			name:       "recipient_not_found",
			req:        wallet.TransferRequest{PhoneNumber: "0999999999", AmountMB: 10},
			wantStatus: http.StatusBadRequest,
			wantError:  "Recipient not found",
		},
		{
			name:       "zero_amount",
			req:        wallet.TransferRequest{PhoneNumber: "0244333444", AmountMB: 0},
			wantStatus: http.StatusBadRequest,
			wantError:  "amountMB must be at least 1",
		},
		{
			name:       "bad_phone",
			req:        wallet.TransferRequest{PhoneNumber: "12345", AmountMB: 10},
			wantStatus: http.StatusBadRequest,
			wantError:  "phoneNumber must be 10 digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, apiURL(srv, "/transfer/send"), token, tt.req)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("want %d, got %d (%s)", tt.wantStatus, resp.StatusCode, body)
			}

			var env struct {
				Error string `json:"error"`
			}

			err := json.Unmarshal(body, &env)
			if err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}

			if env.Error != tt.wantError {
				t.Fatalf("want error %q, got %q", tt.wantError, env.Error)
			}
		})
	}
}

func TestAuth_RequiredAndRoles(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	buyerToken, _ := register(t, srv, "Buyer", "b@x.y", "0244111222", wallet.RoleBuyer)
	adminToken, _ := register(t, srv, "Admin", "a@x.y", "0200000000", wallet.RoleAdmin)

	resp, _ := doJSON(t, http.MethodGet, apiURL(srv, "/user/profile"), "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no credentials: want 401, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, apiURL(srv, "/admin/dashboard"), buyerToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("buyer on admin route: want 403, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, apiURL(srv, "/admin/dashboard"), adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin on admin route: want 200, got %d", resp.StatusCode)
	}
}

func TestAPIKey_AuthAndRotation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	token, acct := register(t, srv, "Dev", "dev@x.y", "0244111222", wallet.RoleDeveloper)

	keyRequest := func(key string) int {
		req, _ := http.NewRequest(http.MethodGet, apiURL(srv, "/user/balance"), nil)
		req.Header.Set("X-API-Key", key)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("key request: %v", err)
		}
		resp.Body.Close()

		return resp.StatusCode
	}

	if code := keyRequest(acct.APIKey); code != http.StatusOK {
		t.Fatalf("fresh key: want 200, got %d", code)
	}

	resp, body := doJSON(t, http.MethodPost, apiURL(srv, "/user/regenerate-api-key"), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("regenerate: want 200, got %d (%s)", resp.StatusCode, body)
	}

	var out struct {
		APIKey string `json:"apiKey"`
	}

	err := json.Unmarshal(body, &out)
	if err != nil || out.APIKey == "" {
		t.Fatalf("decode new key: %v (%s)", err, body)
	}

	if code := keyRequest(acct.APIKey); code != http.StatusUnauthorized {
		t.Fatalf("old key must stop working, got %d", code)
	}

	if code := keyRequest(out.APIKey); code != http.StatusOK {
		t.Fatalf("new key: want 200, got %d", code)
	}
}

func TestStore_BulkCreditPartialFailure(t *testing.T) {
	t.Parallel()

	store := NewStore()

	_, err := store.Register("A", "a@x.y", "pw", "0244111222", wallet.RoleBuyer)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	result := store.BulkCredit([]wallet.CreditRequest{
		{UserEmail: "a@x.y", AmountMB: 100, Reason: "ok"},
		{UserEmail: "missing@x.y", AmountMB: 100},
		{UserEmail: "a@x.y", AmountMB: 0},
	})

	if len(result.Results) != 1 || len(result.Errors) != 2 {
		t.Fatalf("want 1 success / 2 errors, got %+v", result)
	}
}

func TestStore_DeactivatedUserCannotAuthenticate(t *testing.T) {
	t.Parallel()

	store := NewStore()

	acct, err := store.Register("A", "a@x.y", "pw", "0244111222", wallet.RoleBuyer)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	err = store.Deactivate(acct.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = store.Authenticate("a@x.y", "pw")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("want ErrAccountInactive, got %v", err)
	}
}

func TestRoutes_MountedUnderBasePath(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	token, _ := register(t, srv, "User", "u@x.y", "0244111222", wallet.RoleBuyer)

	// The API lives where the CLI's default base URL points.
	resp, body := doJSON(t, http.MethodGet, apiURL(srv, "/user/profile"), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile under %s: want 200, got %d (%s)", BasePath, resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/user/profile", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("profile at root: want 404, got %d", resp.StatusCode)
	}

	// Health stays at the root for load balancers and scrapers.
	healthResp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	healthResp.Body.Close()

	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: want 200, got %d", healthResp.StatusCode)
	}
}

func TestStore_DuplicatePhoneRejected(t *testing.T) {
	t.Parallel()

	store := NewStore()

	_, err := store.Register("A", "a@x.y", "pw", "0244111222", wallet.RoleBuyer)
	if err != nil {
		t.Fatalf("register first: %v", err)
	}

	_, err = store.Register("B", "b@x.y", "pw", "0244111222", wallet.RoleBuyer)
	if !errors.Is(err, ErrPhoneTaken) {
		t.Fatalf("want ErrPhoneTaken, got %v", err)
	}

	// The original mapping must survive the rejected attempt.
	acct, err := store.GetByPhone("0244111222")
	if err != nil {
		t.Fatalf("get by phone: %v", err)
	}

	if acct.Email != "a@x.y" {
		t.Fatalf("phone mapping changed owner: %s", acct.Email)
	}
}
