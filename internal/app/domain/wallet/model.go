package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits a stored amount may carry.
const AmountScale = 4

// MaxAmount is the exclusive upper bound for any amount or balance; stored
// values have 16 integer digits.
var MaxAmount = decimal.New(1, 16)

// Wallet holds the balance owned by a single actor.
type Wallet struct {
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int64           `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// TransferKind tags why value moved between two wallets.
type TransferKind string

const (
	KindTip    TransferKind = "tip"
	KindGift   TransferKind = "gift"
	KindRefund TransferKind = "refund"
)

// Valid reports whether k is a known transfer kind.
func (k TransferKind) Valid() bool {
	switch k {
	case KindTip, KindGift, KindRefund:
		return true
	}
	return false
}

// Transfer is the immutable record of a completed value movement.
type Transfer struct {
	ID             string          `json:"id" db:"id"`
	FromOwner      string          `json:"from_owner" db:"from_owner"`
	ToOwner        string          `json:"to_owner" db:"to_owner"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Kind           TransferKind    `json:"kind" db:"kind"`
	PostID         string          `json:"post_id,omitempty" db:"post_id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// SameRequest reports whether other describes the same movement, ignoring
// server-assigned fields. Used to tell a retry from a reused idempotency key.
func (t Transfer) SameRequest(other Transfer) bool {
	return t.FromOwner == other.FromOwner &&
		t.ToOwner == other.ToOwner &&
		t.Amount.Equal(other.Amount) &&
		t.Kind == other.Kind &&
		t.PostID == other.PostID
}

// ValidAmount reports whether amount is strictly positive, below MaxAmount
// and representable at AmountScale.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || amount.GreaterThanOrEqual(MaxAmount) {
		return false
	}
	return amount.Equal(amount.Truncate(AmountScale))
}
