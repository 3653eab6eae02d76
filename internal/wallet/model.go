package wallet

import "time"

// Role is the account class governing which endpoints an account may call.
type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// TransferStatus is the closed set of states a transfer record may carry.
// The synchronous send flow only ever produces "completed"; "pending" shows
// up when reading historical transfer lists.
type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"
	StatusCompleted TransferStatus = "completed"
	StatusFailed    TransferStatus = "failed"
)

// Account is the backend's view of a user. Read-only on this side; it is
// refreshed from /user/profile after every balance-affecting operation.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phoneNumber"`
	Role          Role      `json:"role"`
	IshareBalance int64     `json:"ishareBalance"`
	IsActive      bool      `json:"isActive"`
	APIKey        string    `json:"apiKey,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Balance is the /user/balance response.
type Balance struct {
	IshareBalance int64  `json:"ishareBalance"`
	BalanceInGB   string `json:"balanceInGB"`
}

// TransferRequest is a validated, normalized send request. Construct it via
// transfer.Validate; hand-built values skip the local pre-checks.
type TransferRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	AmountMB    int64  `json:"amountMB"`
	Note        string `json:"note,omitempty"`
}

// TransferReceipt is the server-assigned record inside a TransferResult.
type TransferReceipt struct {
	ID        string         `json:"id"`
	AmountMB  int64          `json:"amountMB"`
	Status    TransferStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt,omitzero"`
}

// TransferResult is the /transfer/send response. Consumed once, to update the
// displayed balance, then discarded.
type TransferResult struct {
	Success          bool            `json:"success"`
	SenderNewBalance int64           `json:"senderNewBalance"`
	Transfer         TransferReceipt `json:"transfer"`
}

// Transfer is a history item from /transfers.
type Transfer struct {
	ID                   string         `json:"id"`
	Type                 string         `json:"type"` // "sent" or "received"
	AmountMB             int64          `json:"amountMB"`
	RecipientPhoneNumber string         `json:"recipientPhoneNumber"`
	RecipientName        string         `json:"recipientName,omitempty"`
	SenderName           string         `json:"senderName,omitempty"`
	Note                 string         `json:"note,omitempty"`
	Status               TransferStatus `json:"status"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// UsageRecord is a /usage-history item.
type UsageRecord struct {
	ID        string    `json:"id"`
	AmountMB  int64     `json:"amountMB"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoadRecord is a /loads item: an administrative credit, distinct from a
// peer transfer.
type LoadRecord struct {
	ID        string    `json:"id"`
	AmountMB  int64     `json:"amountMB"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pagination accompanies paged admin lists.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// DashboardStats is the /admin/dashboard payload.
type DashboardStats struct {
	Users struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"users"`
	Ishare struct {
		TotalLoads      int   `json:"totalLoads"`
		TotalDataLoaded int64 `json:"totalDataLoaded"`
		TotalDataUsed   int64 `json:"totalDataUsed"`
		RemainingData   int64 `json:"remainingData"`
	} `json:"ishare"`
	RecentActivity []TransactionRecord `json:"recentActivity"`
}

// TransactionRecord is an /admin/transactions item covering loads, debits and
// transfers alike.
type TransactionRecord struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"` // "load", "debit", "transfer", "usage"
	AmountMB    int64     `json:"amountMB"`
	UserEmail   string    `json:"userEmail,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreditRequest is the /admin/credit-ishare and /admin/debit-ishare payload,
// and one element of a bulk credit.
type CreditRequest struct {
	UserEmail string `json:"userEmail"`
	AmountMB  int64  `json:"amountMB"`
	Reason    string `json:"reason,omitempty"`
}

// BulkCreditResult reports per-row outcomes of /admin/bulk-credit-ishare.
type BulkCreditResult struct {
	Results []string `json:"results"`
	Errors  []string `json:"errors"`
}

// UserUpdate carries the mutable Account fields for PUT /admin/users/{id}.
// Nil pointers are omitted so the backend treats them as "unchanged".
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}
