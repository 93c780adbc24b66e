package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RelationshipKind classifies a transaction record.
type RelationshipKind string

const (
	KindTransfer RelationshipKind = "Transfer"
	KindSpend    RelationshipKind = "Spend"
	KindReceived RelationshipKind = "Received"
)

// AllKinds lists the relationship kinds in their canonical sort order.
var AllKinds = []RelationshipKind{KindReceived, KindSpend, KindTransfer}

var kindAliases = map[string]RelationshipKind{
	"transfer":    KindTransfer,
	"transferred": KindTransfer,
	"sent":        KindTransfer,
	"send":        KindTransfer,
	"spend":       KindSpend,
	"spent":       KindSpend,
	"purchase":    KindSpend,
	"redeem":      KindSpend,
	"received":    KindReceived,
	"receive":     KindReceived,
	"inbound":     KindReceived,
	"reward":      KindReceived,
}

// ParseKind resolves a relationship kind case-insensitively, accepting common aliases.
func ParseKind(s string) (RelationshipKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return kind, nil
}

// Human returns the kind as shown in tooltips.
func (k RelationshipKind) Human() string {
	switch k {
	case KindTransfer:
		return "Transfer between accounts"
	case KindSpend:
		return "Spend"
	case KindReceived:
		return "Received"
	default:
		return string(k)
	}
}

// UsesPoints reports whether records of this kind carry reward points rather than an amount.
func (k RelationshipKind) UsesPoints() bool {
	return k == KindTransfer || k == KindReceived
}

// TransactionRecord is one row of input data.
type TransactionRecord struct {
	OccurredAt      time.Time
	ActorID         string
	ActorName       string
	CounterpartID   string
	CounterpartName string
	OrderID         string
	Currency        string
	Kind            RelationshipKind
	Amount          decimal.Decimal
	Points          decimal.Decimal
}

// ActorKey returns the composite key of the originating account.
func (r TransactionRecord) ActorKey() EntityKey {
	return NewEntityKey(r.ActorID, r.ActorName)
}

// CounterpartKey returns the composite key of the other side.
func (r TransactionRecord) CounterpartKey() EntityKey {
	return NewEntityKey(r.CounterpartID, r.CounterpartName)
}

// Value returns the meaningful quantity of the record for its kind.
func (r TransactionRecord) Value() decimal.Decimal {
	if r.Kind.UsesPoints() {
		return r.Points
	}
	return r.Amount
}

// EntityKey identifies a node by id and display name.
type EntityKey struct {
	ID   string
	Name string
}

// NewEntityKey trims both parts.
func NewEntityKey(id, name string) EntityKey {
	return EntityKey{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// String renders the key as "id|name". Backslashes and pipes inside either
// part are escaped, so distinct keys never render the same.
func (k EntityKey) String() string {
	return keyEscaper.Replace(k.ID) + "|" + keyEscaper.Replace(k.Name)
}

// Label is the display name, falling back to the id.
func (k EntityKey) Label() string {
	if k.Name != "" {
		return k.Name
	}
	return k.ID
}

// Matches reports whether v equals the id or the name of the key.
func (k EntityKey) Matches(v string) bool {
	return v != "" && (k.ID == v || k.Name == v || k.String() == v)
}
