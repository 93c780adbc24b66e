package csvreader

import (
	"strings"

	"github.com/iho/rewardgraph/internal/domain"
)

// Field is a canonical record field.
type Field string

const (
	FieldActorID         Field = "actor_id"
	FieldActorName       Field = "actor_name"
	FieldKind            Field = "relationship_kind"
	FieldTargetType      Field = "target_type"
	FieldCounterpartID   Field = "counterpart_id"
	FieldCounterpartName Field = "counterpart_name"
	FieldAmount          Field = "amount"
	FieldCurrency        Field = "currency"
	FieldPoints          Field = "points"
	FieldOccurredAt      Field = "occurred_at"
	FieldOrderID         Field = "order_id"
)

// column maps one canonical field to the header names it may appear under.
// Candidates are tried in order; the first header that matches wins.
// A required field is also satisfied when its alternate resolves.
type column struct {
	field      Field
	candidates []string
	required   bool
	alternate  Field
}

var columns = []column{
	{
		field:      FieldActorID,
		candidates: []string{"actor_id", "user_id", "sender_id", "from_user_id", "from_id", "account_id", "customer_id"},
		required:   true,
		alternate:  FieldActorName,
	},
	{
		field:      FieldActorName,
		candidates: []string{"actor_name", "username", "user_name", "sender_name", "sender", "from_user", "from", "tracked_username"},
	},
	{
		field:      FieldKind,
		candidates: []string{"relationship_kind", "relationship_type", "relationship", "rel_type", "transaction_type", "type"},
		required:   true,
		alternate:  FieldTargetType,
	},
	{
		field:      FieldTargetType,
		candidates: []string{"target_type", "counterpart_type"},
	},
	{
		field:      FieldCounterpartID,
		candidates: []string{"counterpart_id", "receiver_id", "to_user_id", "to_id", "target_id", "merchant_id", "source_id"},
		required:   true,
		alternate:  FieldCounterpartName,
	},
	{
		field:      FieldCounterpartName,
		candidates: []string{"counterpart_name", "receiver_name", "receiver", "to_user", "to", "target_name", "target", "merchant_name", "merchant", "source_name", "source"},
	},
	{
		field:      FieldAmount,
		candidates: []string{"amount", "total_amount", "spend_amount", "spent", "price"},
		required:   true,
	},
	{
		field:      FieldCurrency,
		candidates: []string{"currency", "currency_code"},
	},
	{
		field:      FieldPoints,
		candidates: []string{"points", "reward_points", "total_received", "received_points", "rp"},
		required:   true,
	},
	{
		field:      FieldOccurredAt,
		candidates: []string{"occurred_at", "created_at", "timestamp", "transaction_time", "datetime", "date", "time"},
	},
	{
		field:      FieldOrderID,
		candidates: []string{"order_id", "order_no", "transaction_id", "txn_id", "id"},
		required:   true,
	},
}

// Mapping holds the header index resolved for each canonical field.
type Mapping map[Field]int

// Has reports whether the field resolved to a column.
func (m Mapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Get returns the trimmed cell value of field in row, or "" when absent.
func (m Mapping) Get(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// Resolve matches header names to canonical fields case-insensitively.
// Every required field without a match (and without a matching alternate) is
// reported in a single *domain.MissingColumnError.
func Resolve(header []string) (Mapping, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	m := make(Mapping)
	claimed := make(map[int]bool)
	for _, c := range columns {
		for _, candidate := range c.candidates {
			if i, ok := positions[candidate]; ok && !claimed[i] {
				m[c.field] = i
				claimed[i] = true
				break
			}
		}
	}

	var missing []string
	for _, c := range columns {
		if !c.required || m.Has(c.field) {
			continue
		}
		if c.alternate != "" && m.Has(c.alternate) {
			continue
		}
		missing = append(missing, string(c.field))
	}

	if len(missing) > 0 {
		return nil, &domain.MissingColumnError{Fields: missing}
	}

	return m, nil
}
