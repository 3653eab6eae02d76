package stubserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atdata/ishare/internal/wallet"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrPhoneTaken          = errors.New("phone number already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountInactive     = errors.New("account is inactive")
)

type user struct {
	wallet.Account
	passwordHash []byte
}

type transferRecord struct {
	id             string
	senderID       string
	senderName     string
	recipientID    string
	recipientName  string
	recipientPhone string
	amountMB       int64
	note           string
	status         wallet.TransferStatus
	createdAt      time.Time
}

// Store is the in-memory state behind the stub backend. Everything lives
// under one mutex; this is a test double, not a database.
type Store struct {
	mu       sync.Mutex
	users    map[string]*user  // by id
	byEmail  map[string]string // email -> id
	byPhone  map[string]string // phone -> id
	byAPIKey map[string]string // api key -> id

	transfers []transferRecord
	usage     map[string][]wallet.UsageRecord
	loads     map[string][]wallet.LoadRecord
	txns      []wallet.TransactionRecord

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*user),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		byAPIKey: make(map[string]string),
		usage:    make(map[string][]wallet.UsageRecord),
		loads:    make(map[string][]wallet.LoadRecord),
		now:      time.Now,
	}
}

// Register creates an account with a zero balance and a fresh API key.
func (s *Store) Register(name, email, password, phone string, role wallet.Role) (wallet.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = wallet.RoleBuyer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return wallet.Account{}, ErrEmailTaken
	}

	if phone != "" {
		if _, taken := s.byPhone[phone]; taken {
			return wallet.Account{}, ErrPhoneTaken
		}
	}

	u := &user{
		Account: wallet.Account{
			ID:          uuid.NewString(),
			Name:        name,
			Email:       email,
			PhoneNumber: phone,
			Role:        role,
			IsActive:    true,
			APIKey:      newAPIKey(),
			CreatedAt:   s.now(),
		},
		passwordHash: hash,
	}

	s.insertLocked(u)

	return u.Account, nil
}

// Authenticate checks email + password and returns the account.
func (s *Store) Authenticate(email, password string) (wallet.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return wallet.Account{}, ErrInvalidCredentials
	}

	u := s.users[id]

	err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password))
	if err != nil {
		return wallet.Account{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		return wallet.Account{}, ErrAccountInactive
	}

	return u.Account, nil
}

func (s *Store) Get(id string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return wallet.Account{}, ErrUserNotFound
	}

	return u.Account, nil
}

func (s *Store) GetByAPIKey(key string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAPIKey[key]
	if !ok {
		return wallet.Account{}, ErrUserNotFound
	}

	return s.users[id].Account, nil
}

func (s *Store) GetByPhone(phone string) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPhone[phone]
	if !ok {
		return wallet.Account{}, ErrUserNotFound
	}

	return s.users[id].Account, nil
}

// Transfer debits the sender, credits the recipient when one is registered
// under the phone number, and records the movement. The balance check happens
// here, authoritatively, regardless of any client-side pre-check.
func (s *Store) Transfer(senderID, phone string, amountMB int64, note string) (wallet.TransferReceipt, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.users[senderID]
	if !ok {
		return wallet.TransferReceipt{}, 0, ErrUserNotFound
	}

	if sender.IshareBalance < amountMB {
		return wallet.TransferReceipt{}, 0, ErrInsufficientBalance
	}

	recipientID, ok := s.byPhone[phone]
	if !ok {
		return wallet.TransferReceipt{}, 0, ErrRecipientNotFound
	}

	recipient := s.users[recipientID]

	sender.IshareBalance -= amountMB
	recipient.IshareBalance += amountMB

	rec := transferRecord{
		id:             uuid.NewString(),
		senderID:       sender.ID,
		senderName:     sender.Name,
		recipientID:    recipient.ID,
		recipientName:  recipient.Name,
		recipientPhone: phone,
		amountMB:       amountMB,
		note:           note,
		status:         wallet.StatusCompleted,
		createdAt:      s.now(),
	}
	s.transfers = append(s.transfers, rec)

	s.txns = append(s.txns, wallet.TransactionRecord{
		ID:          rec.id,
		Type:        "transfer",
		AmountMB:    amountMB,
		UserEmail:   sender.Email,
		Description: fmt.Sprintf("transfer to %s", phone),
		CreatedAt:   rec.createdAt,
	})

	receipt := wallet.TransferReceipt{
		ID:        rec.id,
		AmountMB:  amountMB,
		Status:    rec.status,
		CreatedAt: rec.createdAt,
	}

	return receipt, sender.IshareBalance, nil
}

// TransfersFor lists transfers involving the user, newest first.
// filter is "all", "sent" or "received".
func (s *Store) TransfersFor(userID, filter string) []wallet.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wallet.Transfer, 0)

	for i := len(s.transfers) - 1; i >= 0; i-- {
		rec := s.transfers[i]

		var direction string

		switch {
		case rec.senderID == userID:
			direction = "sent"
		case rec.recipientID == userID:
			direction = "received"
		default:
			continue
		}

		if filter != "" && filter != "all" && filter != direction {
			continue
		}

		out = append(out, wallet.Transfer{
			ID:                   rec.id,
			Type:                 direction,
			AmountMB:             rec.amountMB,
			RecipientPhoneNumber: rec.recipientPhone,
			RecipientName:        rec.recipientName,
			SenderName:           rec.senderName,
			Note:                 rec.note,
			Status:               rec.status,
			CreatedAt:            rec.createdAt,
		})
	}

	return out
}

// UseData burns part of the user's own allotment.
func (s *Store) UseData(userID string, amountMB int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}

	if u.IshareBalance < amountMB {
		return 0, ErrInsufficientBalance
	}

	u.IshareBalance -= amountMB

	rec := wallet.UsageRecord{ID: uuid.NewString(), AmountMB: amountMB, CreatedAt: s.now()}
	s.usage[userID] = append(s.usage[userID], rec)

	s.txns = append(s.txns, wallet.TransactionRecord{
		ID:        rec.ID,
		Type:      "usage",
		AmountMB:  amountMB,
		UserEmail: u.Email,
		CreatedAt: rec.CreatedAt,
	})

	return u.IshareBalance, nil
}

// UsageFor never returns nil: empty histories serialize as [] so clients
// can tell "no records" apart from a malformed response.
func (s *Store) UsageFor(userID string) []wallet.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]wallet.UsageRecord{}, s.usage[userID]...)
}

func (s *Store) LoadsFor(userID string) []wallet.LoadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]wallet.LoadRecord{}, s.loads[userID]...)
}

// RegenerateAPIKey rotates the user's API credential; the old key stops
// working immediately.
func (s *Store) RegenerateAPIKey(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return "", ErrUserNotFound
	}

	delete(s.byAPIKey, u.APIKey)
	u.APIKey = newAPIKey()
	s.byAPIKey[u.APIKey] = u.ID

	return u.APIKey, nil
}

// Credit adds balance to the account registered under email. A positive
// amount is required by the handler layer.
func (s *Store) Credit(email string, amountMB int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creditLocked(email, amountMB, reason)
}

func (s *Store) creditLocked(email string, amountMB int64, reason string) error {
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return ErrUserNotFound
	}

	u := s.users[id]
	u.IshareBalance += amountMB

	rec := wallet.LoadRecord{ID: uuid.NewString(), AmountMB: amountMB, Reason: reason, CreatedAt: s.now()}
	s.loads[id] = append(s.loads[id], rec)

	s.txns = append(s.txns, wallet.TransactionRecord{
		ID:          rec.ID,
		Type:        "load",
		AmountMB:    amountMB,
		UserEmail:   u.Email,
		Description: reason,
		CreatedAt:   rec.CreatedAt,
	})

	return nil
}

// Debit removes balance from the account registered under email.
func (s *Store) Debit(email string, amountMB int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return ErrUserNotFound
	}

	u := s.users[id]
	if u.IshareBalance < amountMB {
		return ErrInsufficientBalance
	}

	u.IshareBalance -= amountMB

	s.txns = append(s.txns, wallet.TransactionRecord{
		ID:          uuid.NewString(),
		Type:        "debit",
		AmountMB:    amountMB,
		UserEmail:   u.Email,
		Description: reason,
		CreatedAt:   s.now(),
	})

	return nil
}

// BulkCredit applies each row independently and reports per-row outcomes.
func (s *Store) BulkCredit(credits []wallet.CreditRequest) wallet.BulkCreditResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := wallet.BulkCreditResult{Results: []string{}, Errors: []string{}}

	for _, cr := range credits {
		if cr.AmountMB < 1 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid amount", cr.UserEmail))
			continue
		}

		err := s.creditLocked(cr.UserEmail, cr.AmountMB, cr.Reason)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", cr.UserEmail, err))
			continue
		}

		result.Results = append(result.Results, cr.UserEmail)
	}

	return result
}

// Users returns one page of accounts plus pagination, ordered by creation.
func (s *Store) Users(page, limit int) ([]wallet.Account, wallet.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]wallet.Account, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u.Account)
	}

	sortByCreated(all)

	return paginate(all, page, limit)
}

// Transactions returns one page of transaction records, newest first,
// optionally filtered by type.
func (s *Store) Transactions(page, limit int, txType string) ([]wallet.TransactionRecord, wallet.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]wallet.TransactionRecord, 0, len(s.txns))

	for i := len(s.txns) - 1; i >= 0; i-- {
		if txType != "" && txType != "all" && s.txns[i].Type != txType {
			continue
		}

		filtered = append(filtered, s.txns[i])
	}

	return paginate(filtered, page, limit)
}

// UpdateUser applies a partial update.
func (s *Store) UpdateUser(id string, update wallet.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	if update.Name != nil {
		u.Name = *update.Name
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if other, taken := s.byEmail[email]; taken && other != id {
			return ErrEmailTaken
		}

		delete(s.byEmail, u.Email)
		u.Email = email
		s.byEmail[email] = id
	}

	if update.Role != nil {
		u.Role = *update.Role
	}

	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}

	return nil
}

// Deactivate marks the user inactive without removing any records.
func (s *Store) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	u.IsActive = false

	return nil
}

// Dashboard aggregates the admin statistics over the whole store.
func (s *Store) Dashboard() wallet.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats wallet.DashboardStats

	stats.Users.Total = len(s.users)

	for _, u := range s.users {
		if u.IsActive {
			stats.Users.Active++
		}

		stats.Ishare.RemainingData += u.IshareBalance
	}

	for _, recs := range s.loads {
		stats.Ishare.TotalLoads += len(recs)

		for _, r := range recs {
			stats.Ishare.TotalDataLoaded += r.AmountMB
		}
	}

	for _, recs := range s.usage {
		for _, r := range recs {
			stats.Ishare.TotalDataUsed += r.AmountMB
		}
	}

	recent := len(s.txns)
	if recent > 10 {
		recent = 10
	}

	stats.RecentActivity = make([]wallet.TransactionRecord, 0, recent)
	for i := len(s.txns) - 1; i >= len(s.txns)-recent; i-- {
		stats.RecentActivity = append(stats.RecentActivity, s.txns[i])
	}

	return stats
}

func (s *Store) insertLocked(u *user) {
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	s.byAPIKey[u.APIKey] = u.ID

	if u.PhoneNumber != "" {
		s.byPhone[u.PhoneNumber] = u.ID
	}
}

func newAPIKey() string {
	// Two UUIDs stripped of dashes give the backend's 64-hex-char key shape.
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func sortByCreated(accounts []wallet.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}

func paginate[T any](items []T, page, limit int) ([]T, wallet.Pagination) {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = 20
	}

	total := len(items)

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}

	end := start + limit
	if end > total {
		end = total
	}

	pg := wallet.Pagination{Page: page, TotalPages: totalPages, Total: total}

	return append([]T{}, items[start:end]...), pg
}
