package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusActive    LoanStatus = "active"
	StatusPaid      LoanStatus = "paid"
	StatusOverdue   LoanStatus = "overdue"
	StatusDefaulted LoanStatus = "defaulted"
)

type PaymentFrequency string

const (
	FrequencyWeekly    PaymentFrequency = "weekly"
	FrequencyBiweekly  PaymentFrequency = "biweekly"
	FrequencyMonthly   PaymentFrequency = "monthly"
	FrequencyQuarterly PaymentFrequency = "quarterly"
	FrequencyYearly    PaymentFrequency = "yearly"
	FrequencyCustom    PaymentFrequency = "custom"
)

type Borrower struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Loan struct {
	ID           string          `json:"id"`
	BorrowerID   string          `json:"borrower_id"`
	BorrowerName string          `json:"borrower_name"` // Denormalized from Borrower; the store re-syncs it on rename
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"` // Annual rate in percent, e.g. 12 for 12% APR
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `json:"due_date"`
	Status       LoanStatus      `json:"status"` // Derived; recomputed by the store, never set by callers

	Frequency         PaymentFrequency `json:"frequency"`
	NextPaymentDate   *time.Time       `json:"next_payment_date,omitempty"`
	Installments      int              `json:"installments,omitempty"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	ID        string          `json:"id"`
	LoanID    string          `json:"loan_id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Settings are the defaults offered when creating a new loan. The engine never
// reads them.
type Settings struct {
	DefaultInterestRate     decimal.Decimal  `json:"default_interest_rate"`
	DefaultPaymentFrequency PaymentFrequency `json:"default_payment_frequency"`
	DefaultInstallments     int              `json:"default_installments"`
	Currency                string           `json:"currency"`
}

// LoanDetails bundles a loan with its borrower and payment history for detail views.
type LoanDetails struct {
	Loan     Loan      `json:"loan"`
	Borrower Borrower  `json:"borrower"`
	Payments []Payment `json:"payments"`
}

// LoanMetrics are the dashboard aggregates over the whole portfolio.
type LoanMetrics struct {
	TotalLent         decimal.Decimal `json:"total_lent"`
	InterestCollected decimal.Decimal `json:"interest_collected"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	ReceivedThisMonth decimal.Decimal `json:"received_this_month"`
}

// StatusDistribution counts loans per status.
type StatusDistribution struct {
	Active    int `json:"active"`
	Paid      int `json:"paid"`
	Overdue   int `json:"overdue"`
	Defaulted int `json:"defaulted"`
}
