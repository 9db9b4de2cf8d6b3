package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

const maxTextLength = 200

type (
	TransactionType  string
	NotificationType string
	Plan             string
	Theme            string

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	}

	// TransactionPatch replaces only the fields that are set.
	TransactionPatch struct {
		Type        *TransactionType `json:"type,omitempty"`
		Category    *string          `json:"category,omitempty"`
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *time.Time       `json:"date,omitempty"`
	}

	Contribution struct {
		ID     string          `json:"id"`
		Amount decimal.Decimal `json:"amount"`
		Date   time.Time       `json:"date"`
		Note   string          `json:"note,omitempty"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Title         string          `json:"title"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		Deadline      time.Time       `json:"deadline"`
		Category      string          `json:"category"`
		Contributions []Contribution  `json:"contributions"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// GoalPatch cannot touch CurrentAmount, which only grows through contributions.
	GoalPatch struct {
		Title        *string          `json:"title,omitempty"`
		TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
		Deadline     *time.Time       `json:"deadline,omitempty"`
		Category     *string          `json:"category,omitempty"`
	}

	CryptoAsset struct {
		ID            string          `json:"id"`
		Symbol        string          `json:"symbol"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		PurchasePrice decimal.Decimal `json:"purchasePrice"`
		PurchaseDate  time.Time       `json:"purchaseDate"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	CryptoAssetPatch struct {
		Symbol        *string          `json:"symbol,omitempty"`
		Name          *string          `json:"name,omitempty"`
		Amount        *decimal.Decimal `json:"amount,omitempty"`
		PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
		PurchaseDate  *time.Time       `json:"purchaseDate,omitempty"`
	}

	Notification struct {
		ID        string           `json:"id"`
		Type      NotificationType `json:"type"`
		Category  string           `json:"category"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		IsRead    bool             `json:"isRead"`
		CreatedAt time.Time        `json:"createdAt"`
		Link      string           `json:"link,omitempty"`
		Icon      string           `json:"icon,omitempty"`
	}

	Subscription struct {
		CurrentPlan  Plan       `json:"currentPlan"`
		TrialEndsAt  *time.Time `json:"trialEndsAt,omitempty"`
		SubscribedAt *time.Time `json:"subscribedAt,omitempty"`
		ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	}

	Settings struct {
		Currency      string          `json:"currency"`
		Language      string          `json:"language"`
		DateFormat    string          `json:"dateFormat"`
		Notifications map[string]bool `json:"notifications"`
		// MonthlyBudget of zero disables budget warnings.
		MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
	}

	Profile struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Avatar string `json:"avatar,omitempty"`
		Phone  string `json:"phone,omitempty"`
		Bio    string `json:"bio,omitempty"`
	}
)

var (
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrTextTooLong       = errors.New("text too long (max 200 characters)")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyTitle        = errors.New("empty title")
	ErrInvalidTarget     = errors.New("target amount must be greater than zero")
	ErrEmptySymbol       = errors.New("empty symbol")
	ErrInvalidPrice      = errors.New("invalid purchase price")
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrInvalidTheme      = errors.New("invalid theme")
	ErrInvalidNotifyType = errors.New("invalid notification type")
	ErrInvalidCurrency   = errors.New("unknown currency")
	ErrInvalidLanguage   = errors.New("invalid language tag")
	ErrInvalidEmail      = errors.New("invalid email")
)

func (t TransactionType) Valid() bool { return t == Income || t == Expense }

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro || p == PlanEnterprise
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSuccess, NotificationWarning, NotificationError, NotificationInfo:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if err := CheckAmount(t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxTextLength {
		return ErrTextTooLong
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Apply returns a copy of t with the patch fields replaced.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if len(g.Title) > maxTextLength {
		return ErrTextTooLong
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if err := CheckAmount(g.TargetAmount); err != nil {
		return err
	}
	if err := CheckAmount(g.CurrentAmount); err != nil {
		return err
	}
	if g.Deadline.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(g.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (p GoalPatch) Apply(g Goal) Goal {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.Deadline != nil {
		g.Deadline = *p.Deadline
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	return g
}

// IsCompleted reports whether the saved amount reached the target.
func (g Goal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

func (c Contribution) Validate() error {
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := CheckAmount(c.Amount); err != nil {
		return err
	}
	if c.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(c.Note) > maxTextLength {
		return ErrTextTooLong
	}
	return nil
}

func (a CryptoAsset) Validate() error {
	if strings.TrimSpace(a.Symbol) == "" {
		return ErrEmptySymbol
	}
	if !a.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := CheckAmount(a.Amount); err != nil {
		return err
	}
	if a.PurchasePrice.IsNegative() {
		return ErrInvalidPrice
	}
	if err := CheckAmount(a.PurchasePrice); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}
	if a.PurchaseDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (p CryptoAssetPatch) Apply(a CryptoAsset) CryptoAsset {
	if p.Symbol != nil {
		a.Symbol = *p.Symbol
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Amount != nil {
		a.Amount = *p.Amount
	}
	if p.PurchasePrice != nil {
		a.PurchasePrice = *p.PurchasePrice
	}
	if p.PurchaseDate != nil {
		a.PurchaseDate = *p.PurchaseDate
	}
	return a
}

func (n Notification) Validate() error {
	if !n.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNotifyType, n.Type)
	}
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// DefaultSettings are used until the user saves their own.
func DefaultSettings() Settings {
	return Settings{
		Currency:   DefaultCurrency,
		Language:   "en",
		DateFormat: "2006-01-02",
		Notifications: map[string]bool{
			"transactions": true,
			"goals":        true,
			"budget":       true,
			"subscription": true,
		},
		MonthlyBudget: decimal.Zero,
	}
}

// Validate checks the currency code and the BCP 47 language tag. On success
// the currency is upper-cased and the language canonicalized.
func (s *Settings) Validate() error {
	if !IsKnownCurrency(s.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, s.Currency)
	}
	tag, err := language.Parse(s.Language)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, s.Language)
	}
	if err := CheckAmount(s.MonthlyBudget); err != nil {
		return err
	}
	s.Currency = strings.ToUpper(s.Currency)
	s.Language = tag.String()
	return nil
}

// Base returns the primary language subtag, e.g. "pt" for "pt-BR".
func (s Settings) Base() string {
	tag, err := language.Parse(s.Language)
	if err != nil {
		return fallbackLanguage
	}
	base, _ := tag.Base()
	return base.String()
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyTitle
	}
	if len(p.Name) > maxTextLength || len(p.Bio) > 500 {
		return ErrTextTooLong
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// NotificationsEnabled reports whether notifications of the given category
// are switched on. Categories without an explicit toggle are enabled.
func (s Settings) NotificationsEnabled(category string) bool {
	if on, ok := s.Notifications[category]; ok {
		return on
	}
	return true
}

// NewDate returns midnight UTC of the given calendar day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
