package models

import "time"

// ReasonCode represents why a credit balance changed
type ReasonCode string

const (
	ReasonInitial          ReasonCode = "initial"
	ReasonCardGeneration   ReasonCode = "card_generation"
	ReasonManualAdjustment ReasonCode = "manual_adjustment"
	ReasonAdminAdjustment  ReasonCode = "admin_adjustment"
)

// IsDebitReason returns true for reasons that spend credits
func (r ReasonCode) IsDebitReason() bool {
	return r == ReasonCardGeneration
}

// String returns the string representation of the reason code
func (r ReasonCode) String() string {
	return string(r)
}

// LedgerEntry is one immutable row of the credit ledger
type LedgerEntry struct {
	ID            int64          `db:"id"`
	AccountID     string         `db:"account_id"`
	Delta         int64          `db:"delta"`
	BalanceBefore int64          `db:"balance_before"`
	BalanceAfter  int64          `db:"balance_after"`
	ReasonCode    ReasonCode     `db:"reason_code"`
	ActorID       string         `db:"actor_id"`
	Metadata      map[string]any `db:"metadata"`
	CreatedAt     time.Time      `db:"created_at"`
}
