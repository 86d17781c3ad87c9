package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of an entry. It is fixed at creation.
type Kind string

const (
	KindIncome  Kind = "ingreso"
	KindExpense Kind = "egreso"
)

const (
	// DefaultCategory is applied when an entry is created without a category.
	DefaultCategory = "Varios"

	// UncategorizedLabel names the breakdown bucket for entries with an empty category.
	UncategorizedLabel = "Sin Categoría"

	// PartialPaymentPrefix is prepended to the original name of a bill when a
	// partial payment creates its settlement entry.
	PartialPaymentPrefix = "Pago parcial: "

	maxNameLength     = 120
	maxCategoryLength = 60

	// amountScale is the number of decimals a stored amount keeps.
	amountScale = 2
)

// maxAmount is the first value the monto column (NUMERIC(14,2)) cannot hold.
var maxAmount = decimal.New(1, 12)

// SettlementTolerance is the currency rounding window inside which a partial
// payment is treated as paying the whole amount.
var SettlementTolerance = decimal.New(1, -2)

// Suggested categories per kind. Categories are free text; these only seed
// the choices offered to the user.
var suggestedCategories = map[Kind][]string{
	KindIncome:  {"Varios", "Sueldo", "Alquiler", "Venta", "Intereses", "Regalo"},
	KindExpense: {"Varios", "Comida", "Transporte", "Servicios", "Ocio", "Salud", "Hogar", "Educación"},
}

// Domain errors
var (
	// ErrValidation marks malformed user input. Every specific validation
	// error below wraps it.
	ErrValidation = errors.New("validation error")

	ErrInvalidAmount        = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountPrecision      = fmt.Errorf("%w: at most two decimals", ErrInvalidAmount)
	ErrAmountTooLarge       = fmt.Errorf("%w: above the storable maximum", ErrInvalidAmount)
	ErrAmountExceedsBalance = fmt.Errorf("%w: payment exceeds the outstanding amount", ErrValidation)
	ErrInvalidKind          = fmt.Errorf("%w: kind must be 'ingreso' or 'egreso'", ErrValidation)
	ErrInvalidName          = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidCategory      = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrAlreadySettled       = fmt.Errorf("%w: entry is already settled", ErrValidation)
	ErrPartialNotAllowed    = fmt.Errorf("%w: partial payments apply to expenses only", ErrValidation)

	ErrConnection           = errors.New("record store unavailable")
	ErrNotFound             = errors.New("entry not found")
	ErrSettlementInFlight   = errors.New("a settlement for this entry is already in progress")
	ErrSettlementIncomplete = errors.New("settlement incomplete: remainder saved but payment record missing")
)

// Entry is a single income or expense record owned by one user.
type Entry struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Name      string          `json:"nombre"`
	Amount    decimal.Decimal `json:"monto"`
	Kind      Kind            `json:"tipo"`
	Category  string          `json:"categoria"`
	Paid      bool            `json:"pagado"`
	DueDate   *time.Time      `json:"fecha_vencimiento,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsPending reports whether the entry still represents money owed or expected.
func (e *Entry) IsPending() bool {
	return !e.Paid
}

// CreateParams contains parameters for creating a new entry
type CreateParams struct {
	UserID    int64
	Name      string
	Amount    decimal.Decimal
	Kind      Kind
	Category  string
	Paid      bool
	DueDate   *time.Time
	CreatedAt time.Time
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: valid user ID is required", ErrValidation)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" || len([]rune(name)) > maxNameLength {
		return ErrInvalidName
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	return ValidateCategory(p.Category)
}

// withDefaults trims free-text fields and fills the per-kind default category.
func (p CreateParams) withDefaults(now time.Time) CreateParams {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.DueDate != nil {
		d := truncateToDate(*p.DueDate)
		p.DueDate = &d
	}
	return p
}

// UpdateParams is the only mutation allowed on a stored entry. It has no
// kind field: the kind of an entry never changes.
type UpdateParams struct {
	// Reduce is subtracted from the stored amount. The store applies it only
	// while the stored amount still covers it.
	Reduce *decimal.Decimal
	Paid   *bool
}

// IsEmpty reports whether the patch would change nothing.
func (p UpdateParams) IsEmpty() bool {
	return p.Reduce == nil && p.Paid == nil
}

// ValidateAmount accepts positive amounts in whole cents that fit the store.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.Equal(a.Truncate(amountScale)) {
		return ErrAmountPrecision
	}
	if a.GreaterThanOrEqual(maxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Valid checks if the kind is one of the two known variants.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidKind
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ValidateCategory checks a category after defaulting.
func ValidateCategory(c string) error {
	c = strings.TrimSpace(c)
	if len([]rune(c)) > maxCategoryLength {
		return ErrInvalidCategory
	}
	return nil
}

// SuggestedCategories returns the suggested category list for a kind.
func SuggestedCategories(k Kind) []string {
	s := suggestedCategories[k]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// PartialPaymentName builds the name of the settlement entry created by a
// partial payment of the named bill.
func PartialPaymentName(billName string) string {
	return PartialPaymentPrefix + billName
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
