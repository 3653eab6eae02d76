package stubserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atdata/ishare/internal/wallet"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a size-capped JSON body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// storeError maps store sentinels onto HTTP statuses with the backend's
// message wording.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrPhoneTaken):
		writeError(w, http.StatusConflict, "Phone number already registered")
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrAccountInactive):
		writeError(w, http.StatusUnauthorized, "Account is inactive")
	case errors.Is(err, ErrRecipientNotFound):
		writeError(w, http.StatusBadRequest, "Recipient not found")
	case errors.Is(err, ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		slog.Error("stub store error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Auth ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string      `json:"name"`
		Email       string      `json:"email"`
		Password    string      `json:"password"`
		PhoneNumber string      `json:"phoneNumber"`
		Role        wallet.Role `json:"role"`
	}

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	acct, err := s.store.Register(req.Name, req.Email, req.Password, req.PhoneNumber, req.Role)
	if err != nil {
		storeError(w, err)
		return
	}

	token, err := s.mintToken(acct.ID)
	if err != nil {
		slog.Error("mint token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": acct})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		storeError(w, err)
		return
	}

	token, err := s.mintToken(acct.ID)
	if err != nil {
		slog.Error("mint token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct})
}

// --- User ---

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r)

	writeJSON(w, http.StatusOK, wallet.Balance{
		IshareBalance: acct.IshareBalance,
		BalanceInGB:   fmt.Sprintf("%.2f", float64(acct.IshareBalance)/1024.0),
	})
}

func (s *Server) handleRegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.store.RegenerateAPIKey(accountFrom(r).ID)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API key regenerated successfully",
		"apiKey":  key,
	})
}

// --- Transfers ---

func (s *Server) handleSendTransfer(w http.ResponseWriter, r *http.Request) {
	var req wallet.TransferRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.PhoneNumber) != 10 {
		writeError(w, http.StatusBadRequest, "phoneNumber must be 10 digits")
		return
	}

	if req.AmountMB < 1 {
		writeError(w, http.StatusBadRequest, "amountMB must be at least 1")
		return
	}

	receipt, newBalance, err := s.store.Transfer(accountFrom(r).ID, req.PhoneNumber, req.AmountMB, req.Note)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wallet.TransferResult{
		Success:          true,
		SenderNewBalance: newBalance,
		Transfer:         receipt,
	})
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("type")
	transfers := s.store.TransfersFor(accountFrom(r).ID, filter)

	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}

// --- Usage / loads ---

func (s *Server) handleUseData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountMB int64 `json:"amountMB"`
	}

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AmountMB < 1 {
		writeError(w, http.StatusBadRequest, "amountMB must be at least 1")
		return
	}

	remaining, err := s.store.UseData(accountFrom(r).ID, req.AmountMB)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "remainingBalance": remaining})
}

func (s *Server) handleUsageHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"usage": s.store.UsageFor(accountFrom(r).ID)})
}

func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"loads": s.store.LoadsFor(accountFrom(r).ID)})
}

// --- Admin ---

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"dashboard": s.store.Dashboard()})
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	return page, limit
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	users, pagination := s.store.Users(page, limit)

	writeJSON(w, http.StatusOK, map[string]any{"users": users, "pagination": pagination})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	txns, pagination := s.store.Transactions(page, limit, r.URL.Query().Get("type"))

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns, "pagination": pagination})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req wallet.CreditRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AmountMB < 1 {
		writeError(w, http.StatusBadRequest, "amountMB must be at least 1")
		return
	}

	err = s.store.Credit(req.UserEmail, req.AmountMB, req.Reason)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ISHARE credited successfully"})
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req wallet.CreditRequest

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AmountMB < 1 {
		writeError(w, http.StatusBadRequest, "amountMB must be at least 1")
		return
	}

	err = s.store.Debit(req.UserEmail, req.AmountMB, req.Reason)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ISHARE debited successfully"})
}

func (s *Server) handleBulkCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credits []wallet.CreditRequest `json:"credits"`
	}

	err := decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Credits) == 0 {
		writeError(w, http.StatusBadRequest, "credits must not be empty")
		return
	}

	writeJSON(w, http.StatusOK, s.store.BulkCredit(req.Credits))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var update wallet.UserUpdate

	err := decode(w, r, &update)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.UpdateUser(chi.URLParam(r, "userId"), update)
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	err := s.store.Deactivate(chi.URLParam(r, "userId"))
	if err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deactivated successfully"})
}
