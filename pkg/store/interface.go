package store

import (
	"time"

	"github.com/Danieloutliers/loanbook/pkg/interchange"
	"github.com/Danieloutliers/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

// NewBorrower carries the caller-supplied fields for a borrower; id and
// created-at are stamped by the store.
type NewBorrower struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// NewLoan carries the caller-supplied fields for a loan. The borrower name is
// denormalized from the referenced borrower and the status always starts out
// active.
type NewLoan struct {
	BorrowerID        string                  `json:"borrower_id"`
	Principal         decimal.Decimal         `json:"principal"`
	InterestRate      decimal.Decimal         `json:"interest_rate"`
	IssueDate         time.Time               `json:"issue_date"`
	DueDate           time.Time               `json:"due_date"`
	Frequency         models.PaymentFrequency `json:"frequency"`
	NextPaymentDate   *time.Time              `json:"next_payment_date,omitempty"`
	Installments      int                     `json:"installments,omitempty"`
	InstallmentAmount *decimal.Decimal        `json:"installment_amount,omitempty"`
	Notes             string                  `json:"notes,omitempty"`
}

// NewPayment carries the caller-supplied fields for a payment. When Principal
// or Interest is omitted the store allocates both through the accounting
// engine.
type NewPayment struct {
	LoanID    string           `json:"loan_id"`
	Date      time.Time        `json:"date"`
	Amount    decimal.Decimal  `json:"amount"`
	Principal *decimal.Decimal `json:"principal,omitempty"`
	Interest  *decimal.Decimal `json:"interest,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// BorrowerPatch is a partial borrower update; nil fields are left untouched.
type BorrowerPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// LoanPatch is a partial loan update; nil fields are left untouched. Changing
// the borrower re-resolves the denormalized borrower name.
type LoanPatch struct {
	BorrowerID        *string                  `json:"borrower_id,omitempty"`
	Principal         *decimal.Decimal         `json:"principal,omitempty"`
	InterestRate      *decimal.Decimal         `json:"interest_rate,omitempty"`
	IssueDate         *time.Time               `json:"issue_date,omitempty"`
	DueDate           *time.Time               `json:"due_date,omitempty"`
	Frequency         *models.PaymentFrequency `json:"frequency,omitempty"`
	NextPaymentDate   *time.Time               `json:"next_payment_date,omitempty"`
	Installments      *int                     `json:"installments,omitempty"`
	InstallmentAmount *decimal.Decimal         `json:"installment_amount,omitempty"`
	Notes             *string                  `json:"notes,omitempty"`
}

// PaymentPatch is a partial payment update; nil fields are left untouched.
type PaymentPatch struct {
	LoanID    *string          `json:"loan_id,omitempty"`
	Date      *time.Time       `json:"date,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Principal *decimal.Decimal `json:"principal,omitempty"`
	Interest  *decimal.Decimal `json:"interest,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	DefaultInterestRate     *decimal.Decimal         `json:"default_interest_rate,omitempty"`
	DefaultPaymentFrequency *models.PaymentFrequency `json:"default_payment_frequency,omitempty"`
	DefaultInstallments     *int                     `json:"default_installments,omitempty"`
	Currency                *string                  `json:"currency,omitempty"`
}

// Store defines the operations over the loan portfolio: borrowers, their
// loans, and the loans' payments.
type Store interface {
	CreateBorrower(in NewBorrower) (*models.Borrower, error)
	UpdateBorrower(id string, patch BorrowerPatch) (*models.Borrower, error)
	DeleteBorrower(id string) error
	GetBorrower(id string) (*models.Borrower, error)
	GetAllBorrowers() ([]models.Borrower, error)

	CreateLoan(in NewLoan) (*models.Loan, error)
	UpdateLoan(id string, patch LoanPatch) (*models.Loan, error)
	DeleteLoan(id string) error
	GetLoan(id string) (*models.Loan, error)
	GetLoanDetails(id string) (*models.LoanDetails, error)
	GetAllLoans() ([]models.Loan, error)
	GetLoansForBorrower(borrowerID string) ([]models.Loan, error)
	GetOverdueLoans() ([]models.Loan, error)
	GetUpcomingDueLoans(days int) ([]models.Loan, error)

	CreatePayment(in NewPayment) (*models.Payment, error)
	UpdatePayment(id string, patch PaymentPatch) (*models.Payment, error)
	DeletePayment(id string) error
	GetAllPayments() ([]models.Payment, error)
	GetPaymentsForLoan(loanID string) ([]models.Payment, error)

	// ResyncLoanStatuses recomputes the status of every loan in the
	// portfolio. The store runs it after any payment mutation; callers may
	// also run it on a schedule, since statuses depend on the calendar.
	ResyncLoanStatuses()

	Metrics() (models.LoanMetrics, error)
	StatusCounts() (models.StatusDistribution, error)

	Settings() models.Settings
	UpdateSettings(patch SettingsPatch) models.Settings

	Export() interchange.Data
	Import(data interchange.Data) error
}
