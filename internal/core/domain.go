// Package core holds the diary domain model and the pure transforms over it:
// calendar grids, per-day aggregation and report statistics.
package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the canonical calendar-date format used for entry dates and date keys.
const DateLayout = "2006-01-02"

// UnknownLabel is shown wherever an entry references a category or item that cannot be resolved.
const UnknownLabel = "(unknown)"

const (
	maxNameLength    = 60
	maxContentLength = 2000
)

type (
	Category struct {
		ID       string
		Name     string
		Color    string // optional display hint, "#rrggbb"
		IsActive bool
		Order    int
		Items    []Item
	}

	Item struct {
		ID         string
		CategoryID string
		Name       string
		Emoji      string
		IsActive   bool
		Order      int
	}

	Entry struct {
		ID         string
		EntryDate  string // YYYY-MM-DD
		CategoryID string
		ItemID     string
		Content    string
		CreatedAt  time.Time
		UpdatedAt  time.Time

		// Denormalized for display; filled by the store, may be nil.
		Category *Category
		Item     *Item
	}

	// EntryFilter selects a window of entries. At most one field should be set;
	// the zero value matches every entry.
	EntryFilter struct {
		Date  string // YYYY-MM-DD
		Month string // YYYY-MM
		Year  int
	}
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidMonth          = errors.New("invalid month")
	ErrEmptyContent          = errors.New("empty content")
	ErrContentTooLong        = errors.New("content too long (max 2000 characters)")
	ErrEmptyName             = errors.New("empty name")
	ErrNameTooLong           = errors.New("name too long (max 60 characters)")
	ErrInvalidColor          = errors.New("invalid color")
	ErrMissingCategory       = errors.New("missing category")
	ErrMissingItem           = errors.New("missing item")
	ErrItemCategoryMismatch  = errors.New("item does not belong to category")
	ErrInactiveTaxonomy      = errors.New("category or item is inactive")
	ErrHardDeleteUnsupported = errors.New("hard delete not supported for this entity")
)

var validationErrors = []error{
	ErrInvalidDate, ErrInvalidMonth, ErrEmptyContent, ErrContentTooLong,
	ErrEmptyName, ErrNameTooLong, ErrInvalidColor, ErrMissingCategory,
	ErrMissingItem, ErrItemCategoryMismatch, ErrInactiveTaxonomy,
}

// IsValidationError reports whether err stems from bad user input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateName checks a category or item name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateColor accepts an empty color or a #rgb / #rrggbb hex value.
func ValidateColor(color string) error {
	if color == "" || colorPattern.MatchString(color) {
		return nil
	}
	return ErrInvalidColor
}

func (c Category) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	return ValidateColor(c.Color)
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.CategoryID) == "" {
		return ErrMissingCategory
	}
	return ValidateName(i.Name)
}

// FindItem returns the item with the given id, or false.
func (c Category) FindItem(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// ActiveItems returns the category's active items in their current order.
func (c Category) ActiveItems() []Item {
	out := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if it.IsActive {
			out = append(out, it)
		}
	}
	return out
}

// Validate checks the user-editable fields of an entry. Taxonomy consistency
// is checked by the service layer, which has access to the store.
func (e Entry) Validate() error {
	if _, err := ParseDate(e.EntryDate); err != nil {
		return err
	}
	content := strings.TrimSpace(e.Content)
	if content == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return ErrContentTooLong
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrMissingCategory
	}
	if strings.TrimSpace(e.ItemID) == "" {
		return ErrMissingItem
	}
	return nil
}

// DateKey returns the day an entry belongs to.
func (e Entry) DateKey() string {
	return DateKey(e.EntryDate)
}

// CategoryName resolves the display name, falling back to UnknownLabel.
func (e Entry) CategoryName() string {
	if e.Category != nil && e.Category.Name != "" {
		return e.Category.Name
	}
	return UnknownLabel
}

// ItemName resolves the display name, falling back to UnknownLabel.
func (e Entry) ItemName() string {
	if e.Item != nil && e.Item.Name != "" {
		return e.Item.Name
	}
	return UnknownLabel
}

// ItemEmoji returns the item's emoji or an empty string.
func (e Entry) ItemEmoji() string {
	if e.Item != nil {
		return e.Item.Emoji
	}
	return ""
}

// DateKey normalizes a stored date or timestamp to its calendar day by taking
// the first 10 characters of the ISO-8601 string, with no timezone conversion.
func DateKey(s string) string {
	if len(s) < len(DateLayout) {
		return s
	}
	return s[:len(DateLayout)]
}

// ParseDate parses a YYYY-MM-DD string (or the date prefix of an ISO timestamp).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, DateKey(strings.TrimSpace(s)))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM string into a year and zero-based month.
func ParseMonth(s string) (year, month0 int, err error) {
	t, perr := time.Parse("2006-01", strings.TrimSpace(s))
	if perr != nil {
		return 0, 0, ErrInvalidMonth
	}
	return t.Year(), int(t.Month()) - 1, nil
}

// MonthKey formats a year and zero-based month as YYYY-MM.
func MonthKey(year, month0 int) string {
	return time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Matches reports whether the entry falls inside the filter window.
func (f EntryFilter) Matches(e Entry) bool {
	key := e.DateKey()
	switch {
	case f.Date != "":
		return key == DateKey(f.Date)
	case f.Month != "":
		return strings.HasPrefix(key, f.Month+"-")
	case f.Year != 0:
		t, err := ParseDate(key)
		return err == nil && t.Year() == f.Year
	}
	return true
}
