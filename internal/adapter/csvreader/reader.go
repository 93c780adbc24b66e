// Package csvreader turns uploaded CSV files into transaction records.
package csvreader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardgraph/internal/domain"
)

// MaxReportedProblems caps how many dropped rows are described individually.
// Dropped still counts every one.
const MaxReportedProblems = 100

var (
	errEmptyValue     = errors.New("value is empty")
	errNotANumber     = errors.New("not a number")
	errUnknownTarget  = errors.New("unknown target type")
	errUnparsableTime = errors.New("unrecognized timestamp format")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

var moneyPattern = regexp.MustCompile(`^([A-Za-z]{3}|[$€£¥])?\s*([+-]?[0-9][0-9,]*(?:\.[0-9]+)?|[+-]?\.[0-9]+)\s*([A-Za-z]{3}|RP|rp)?$`)

var targetKinds = map[string]domain.RelationshipKind{
	"user":     domain.KindTransfer,
	"account":  domain.KindTransfer,
	"member":   domain.KindTransfer,
	"merchant": domain.KindSpend,
	"store":    domain.KindSpend,
	"shop":     domain.KindSpend,
	"vendor":   domain.KindSpend,
	"source":   domain.KindReceived,
	"campaign": domain.KindReceived,
	"system":   domain.KindReceived,
	"issuer":   domain.KindReceived,
}

// Parser reads CSV uploads. It has no state and is safe for concurrent use.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements usecase.RecordParser.
func (p *Parser) Parse(r io.Reader) (*domain.LoadResult, error) {
	return Read(r)
}

// Read parses r. Header problems abort with *domain.MissingColumnError; rows
// with unparsable values are dropped and reported in the result.
func Read(r io.Reader) (*domain.LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrEmptyUpload
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	mapping, err := Resolve(header)
	if err != nil {
		return nil, err
	}

	result := &domain.LoadResult{
		Records:       make([]domain.TransactionRecord, 0),
		HasTimestamps: mapping.Has(FieldOccurredAt),
	}

	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				drop(result, domain.MalformedValueError{Row: row, Field: "row", Err: err})
				continue
			}
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		if isBlank(fields) {
			continue
		}

		record, problem := parseRow(mapping, fields, row)
		if problem != nil {
			drop(result, *problem)
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

func drop(r *domain.LoadResult, problem domain.MalformedValueError) {
	r.Dropped++
	if len(r.Problems) < MaxReportedProblems {
		r.Problems = append(r.Problems, problem)
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRow(m Mapping, fields []string, row int) (domain.TransactionRecord, *domain.MalformedValueError) {
	malformed := func(field Field, value string, err error) *domain.MalformedValueError {
		return &domain.MalformedValueError{Row: row, Field: string(field), Value: value, Err: err}
	}

	rec := domain.TransactionRecord{
		ActorID:         m.Get(fields, FieldActorID),
		ActorName:       m.Get(fields, FieldActorName),
		CounterpartID:   m.Get(fields, FieldCounterpartID),
		CounterpartName: m.Get(fields, FieldCounterpartName),
		OrderID:         m.Get(fields, FieldOrderID),
		Currency:        strings.ToUpper(m.Get(fields, FieldCurrency)),
	}

	if rec.ActorID == "" {
		rec.ActorID = rec.ActorName
	}
	if rec.ActorID == "" {
		return rec, malformed(FieldActorID, "", errEmptyValue)
	}
	if rec.CounterpartID == "" {
		rec.CounterpartID = rec.CounterpartName
	}
	if rec.CounterpartID == "" {
		return rec, malformed(FieldCounterpartID, "", errEmptyValue)
	}

	kind, err := resolveKind(m.Get(fields, FieldKind), m.Get(fields, FieldTargetType))
	if err != nil {
		raw := m.Get(fields, FieldKind)
		if raw == "" {
			raw = m.Get(fields, FieldTargetType)
		}
		return rec, malformed(FieldKind, raw, err)
	}
	rec.Kind = kind

	raw := m.Get(fields, FieldAmount)
	amount, currency, err := ParseMoney(raw)
	if err != nil {
		return rec, malformed(FieldAmount, raw, err)
	}
	if rec.Currency == "" {
		rec.Currency = currency
	}

	raw = m.Get(fields, FieldPoints)
	points, _, err := ParseMoney(raw)
	if err != nil {
		return rec, malformed(FieldPoints, raw, err)
	}

	// only the value meaningful for the kind is kept
	if kind.UsesPoints() {
		rec.Points = points
		rec.Currency = ""
	} else {
		rec.Amount = amount
	}

	if m.Has(FieldOccurredAt) {
		raw = m.Get(fields, FieldOccurredAt)
		at, err := ParseTimestamp(raw)
		if err != nil {
			return rec, malformed(FieldOccurredAt, raw, err)
		}
		rec.OccurredAt = at
	}

	return rec, nil
}

func resolveKind(kindValue, targetValue string) (domain.RelationshipKind, error) {
	var kindErr error
	if kindValue != "" {
		kind, err := domain.ParseKind(kindValue)
		if err == nil {
			return kind, nil
		}
		kindErr = err
	}

	if targetValue != "" {
		if kind, ok := targetKinds[strings.ToLower(targetValue)]; ok {
			return kind, nil
		}
		if kindErr == nil {
			return "", fmt.Errorf("%w: %q", errUnknownTarget, targetValue)
		}
	}

	if kindErr != nil {
		return "", kindErr
	}
	return "", errEmptyValue
}

// ParseMoney parses amounts such as "1,234.50", "$12", "12.00 USD" or "150RP".
// An empty value is zero. The returned currency is empty when none was given.
func ParseMoney(s string) (decimal.Decimal, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, "", nil
	}

	match := moneyPattern.FindStringSubmatch(s)
	if match == nil {
		return decimal.Zero, "", errNotANumber
	}

	value, err := decimal.NewFromString(strings.ReplaceAll(match[2], ",", ""))
	if err != nil {
		return decimal.Zero, "", err
	}

	currency := match[1]
	if code, ok := currencySymbols[currency]; ok {
		currency = code
	}
	if currency == "" && !strings.EqualFold(match[3], domain.PointsUnit) {
		currency = match[3]
	}

	return value, strings.ToUpper(currency), nil
}

// ParseTimestamp accepts RFC 3339, common date/time layouts and Unix seconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyValue
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	return time.Time{}, errUnparsableTime
}
