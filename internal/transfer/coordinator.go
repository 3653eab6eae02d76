// Package transfer implements the client-side balance-transfer flow:
// local validation, submission to the backend, and reconciliation of the
// cached balance with the authoritative server response.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/atdata/ishare/internal/wallet"
)

// BalanceUnknown skips the local insufficient-balance pre-check when the
// caller has no cached balance. The backend remains the final authority
// either way.
const BalanceUnknown int64 = -1

const maxNoteLength = 200

// State tracks a single request instance through the send flow. Succeeded,
// Rejected and Failed are terminal; a new request restarts at Idle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Sender submits a validated request to the backend transfer endpoint with
// the caller's credential attached. Implemented by *client.Client.
type Sender interface {
	SendTransfer(ctx context.Context, req wallet.TransferRequest) (wallet.TransferResult, error)
}

// Coordinator drives one transfer at a time: at most one in-flight request
// per session. It reads the cached balance and computes its replacement but
// never mutates shared state itself.
type Coordinator struct {
	sender Sender
	state  State
}

func New(sender Sender) *Coordinator {
	return &Coordinator{sender: sender, state: StateIdle}
}

// State reports the current position in the send flow.
func (c *Coordinator) State() State {
	return c.state
}

// Validate checks a prospective transfer locally and returns the normalized
// request. No side effects, no network. currentBalance may be BalanceUnknown,
// in which case the balance pre-check is skipped.
//
// The phone number must already be digits-only; stripping separators from
// user input is the surrounding UI's job.
func Validate(phoneNumber, amountMB, note string, currentBalance int64) (wallet.TransferRequest, error) {
	if len(phoneNumber) != 10 || !isDigits(phoneNumber) {
		return wallet.TransferRequest{}, wallet.ErrInvalidPhoneNumber
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(amountMB), 10, 64)
	if err != nil || amount < 1 {
		return wallet.TransferRequest{}, wallet.ErrInvalidAmount
	}

	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return wallet.TransferRequest{}, wallet.ErrInvalidNote
	}

	if currentBalance != BalanceUnknown && amount > currentBalance {
		return wallet.TransferRequest{}, wallet.ErrInsufficientBalance
	}

	return wallet.TransferRequest{
		PhoneNumber: phoneNumber,
		AmountMB:    amount,
		Note:        note,
	}, nil
}

// Submit sends a validated request. It does not retry and attaches no
// idempotency key; resubmission after a timeout may duplicate the transfer
// server-side. Failures surface as wallet.ErrNetworkUnavailable (no response)
// or *wallet.RejectedError (backend refusal).
func (c *Coordinator) Submit(ctx context.Context, req wallet.TransferRequest) (wallet.TransferResult, error) {
	result, err := c.sender.SendTransfer(ctx, req)
	if err != nil {
		return wallet.TransferResult{}, fmt.Errorf("submit transfer: %w", err)
	}

	return result, nil
}

// Reconcile returns the new balance to display. Pure: calling it twice with
// the same result yields the same value. A result with Success=false should
// never reach here (Submit already failed in that case), so it is reported
// as wallet.ErrInvariantViolation.
func Reconcile(result wallet.TransferResult) (int64, error) {
	if !result.Success {
		return 0, wallet.ErrInvariantViolation
	}

	return result.SenderNewBalance, nil
}

// Send runs the full flow: Validate, Submit, Reconcile. It returns the
// server's result and the new balance to display. The state machine ends in
// Succeeded, Rejected (backend refusal) or Failed (validation or transport).
func (c *Coordinator) Send(ctx context.Context, phoneNumber, amountMB, note string, currentBalance int64) (wallet.TransferResult, int64, error) {
	c.state = StateValidating

	req, err := Validate(phoneNumber, amountMB, note, currentBalance)
	if err != nil {
		c.state = StateFailed

		return wallet.TransferResult{}, 0, err
	}

	c.state = StateSubmitting

	result, err := c.Submit(ctx, req)
	if err != nil {
		var rejected *wallet.RejectedError
		if errors.As(err, &rejected) {
			c.state = StateRejected
		} else {
			c.state = StateFailed
		}

		return wallet.TransferResult{}, 0, err
	}

	newBalance, err := Reconcile(result)
	if err != nil {
		c.state = StateFailed

		return wallet.TransferResult{}, 0, err
	}

	c.state = StateSucceeded

	return result, newBalance, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
