package core

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type (
	// TransactionInput is the client supplied shape of a transaction.
	TransactionInput struct {
		Amount      RawAmount `json:"amount"`
		Date        string    `json:"date"`
		Description string    `json:"description"`
		Category    string    `json:"category"`

		mistyped fieldSet
	}

	// BudgetInput is the client supplied shape of a budget.
	BudgetInput struct {
		Category string    `json:"category"`
		Amount   RawAmount `json:"amount"`
		Month    string    `json:"month"`

		mistyped fieldSet
	}

	// CategoryInput is the client supplied shape of a new category.
	CategoryInput struct {
		Category string `json:"category"`

		mistyped fieldSet
	}
)

// fieldSet records the JSON fields whose value had the wrong type.
type fieldSet map[string]bool

// decodeFields unmarshals each named member of the JSON object in data into
// its target. A member of the wrong type leaves the target untouched and is
// recorded instead of failing the whole object.
func decodeFields(data []byte, targets map[string]any) (fieldSet, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	if members == nil {
		return nil, errors.New("expected a JSON object")
	}
	var mistyped fieldSet
	for name, raw := range members {
		target, ok := targets[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return nil, err
			}
			if mistyped == nil {
				mistyped = fieldSet{}
			}
			mistyped[name] = true
		}
	}
	return mistyped, nil
}

func (in *TransactionInput) UnmarshalJSON(data []byte) error {
	var out TransactionInput
	mistyped, err := decodeFields(data, map[string]any{
		"amount":      &out.Amount,
		"date":        &out.Date,
		"description": &out.Description,
		"category":    &out.Category,
	})
	if err != nil {
		return err
	}
	out.mistyped = mistyped
	*in = out
	return nil
}

func (in *BudgetInput) UnmarshalJSON(data []byte) error {
	var out BudgetInput
	mistyped, err := decodeFields(data, map[string]any{
		"category": &out.Category,
		"amount":   &out.Amount,
		"month":    &out.Month,
	})
	if err != nil {
		return err
	}
	out.mistyped = mistyped
	*in = out
	return nil
}

func (in *CategoryInput) UnmarshalJSON(data []byte) error {
	var out CategoryInput
	mistyped, err := decodeFields(data, map[string]any{"category": &out.Category})
	if err != nil {
		return err
	}
	out.mistyped = mistyped
	*in = out
	return nil
}

// ValidateTransaction checks every field rule of a transaction and returns
// the normalized record. All violations are reported, not just the first.
func ValidateTransaction(in TransactionInput) (Transaction, ValidationErrors) {
	var errs ValidationErrors
	t := Transaction{
		Description: CleanText(in.Description),
		Category:    CleanText(in.Category),
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		errs.add("amount", "Amount must be a positive number", err)
	}
	t.Amount = amount

	date, err := ParseDate(strings.TrimSpace(in.Date))
	switch {
	case in.mistyped["date"]:
		errs.add("date", "Date must be a string", ErrInvalidDate)
	case err != nil:
		errs.add("date", "Invalid date format", ErrInvalidDate)
	}
	t.Date = date

	switch {
	case in.mistyped["description"]:
		errs.add("description", "Description must be a string", ErrEmptyDescription)
	case t.Description == "":
		errs.add("description", "Description is required", ErrEmptyDescription)
	}
	switch {
	case in.mistyped["category"]:
		errs.add("category", "Category must be a string", ErrEmptyCategory)
	case t.Category == "":
		errs.add("category", "Category is required", ErrEmptyCategory)
	}

	if len(errs) > 0 {
		return Transaction{}, errs
	}
	return t, nil
}

// ValidateBudget checks the budget rules, including the YYYY-MM month pattern.
func ValidateBudget(in BudgetInput) (Budget, ValidationErrors) {
	var errs ValidationErrors
	b := Budget{
		Category: CleanText(in.Category),
		Month:    strings.TrimSpace(in.Month),
	}

	switch {
	case in.mistyped["category"]:
		errs.add("category", "Category must be a string", ErrEmptyCategory)
	case b.Category == "":
		errs.add("category", "Category is required", ErrEmptyCategory)
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		errs.add("amount", "Amount must be a positive number", err)
	}
	b.Amount = amount

	switch {
	case in.mistyped["month"]:
		errs.add("month", "Month must be a string", ErrInvalidMonth)
	case b.Month == "":
		errs.add("month", "Month is required", ErrInvalidMonth)
	case !monthPattern.MatchString(b.Month):
		errs.add("month", "Month must be in the format YYYY-MM", ErrInvalidMonth)
	}

	if len(errs) > 0 {
		return Budget{}, errs
	}
	return b, nil
}

// ValidateCategory checks a category name and returns it cleaned.
func ValidateCategory(in CategoryInput) (string, ValidationErrors) {
	name := CleanText(in.Category)
	if in.mistyped["category"] {
		return "", ValidationErrors{{Field: "category", Message: "Category must be a string", Err: ErrEmptyCategory}}
	}
	if name == "" {
		return "", ValidationErrors{{Field: "category", Message: "Category is required", Err: ErrEmptyCategory}}
	}
	return name, nil
}

// CategoryKey is the case-insensitive identity of a category name.
func CategoryKey(name string) string {
	return strings.ToLower(CleanText(name))
}

// CleanText removes control characters except tab, newline and carriage
// return, and trims surrounding whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ValidMonth reports whether s has the YYYY-MM shape.
func ValidMonth(s string) bool {
	return monthPattern.MatchString(s)
}
