// Package engine implements the loan accounting calculations: amounts due,
// balances, interest accrual, payment allocation and status classification.
// Every function is pure; callers pass the reference time explicitly so results
// are reproducible. A nil loan yields the zero value of the result type, which
// lets display code call straight through without guarding.
package engine

import (
	"time"

	"github.com/Danieloutliers/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultedAfterDays is the overdue threshold past which a loan is considered
// defaulted.
const DefaultedAfterDays = 90

var (
	hundred    = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(365)
)

// Distribution is the split of a payment between principal and interest.
// Principal + Interest always equals the payment amount.
type Distribution struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
}

// periodsPerYear returns how many payment periods of the given frequency fit
// in a year. Custom frequency has no fixed period and reports 0.
func periodsPerYear(frequency models.PaymentFrequency) int64 {
	switch frequency {
	case models.FrequencyWeekly:
		return 52
	case models.FrequencyBiweekly:
		return 26
	case models.FrequencyMonthly:
		return 12
	case models.FrequencyQuarterly:
		return 4
	case models.FrequencyYearly:
		return 1
	default:
		return 0
	}
}

// daysBetween returns the number of whole days from one instant to the next,
// truncating partial days.
func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}

// TotalDue returns principal plus total interest for a loan.
//
// With a periodic frequency and an installment count the interest is the
// period rate (annual rate over periods per year) applied once per
// installment. Custom-frequency loans, and loans missing either field, charge
// simple interest over the calendar days between issue and due date instead.
// The two branches use different day-count conventions on purpose; they match
// how the books have always been kept.
func TotalDue(loan *models.Loan) decimal.Decimal {
	if loan == nil {
		return decimal.Zero
	}

	rate := loan.InterestRate.Div(hundred)

	if loan.Frequency != "" && loan.Installments > 0 {
		if periods := periodsPerYear(loan.Frequency); periods > 0 {
			periodRate := rate.Div(decimal.NewFromInt(periods))
			interest := loan.Principal.Mul(periodRate).Mul(decimal.NewFromInt(int64(loan.Installments)))
			return loan.Principal.Add(interest)
		}
	}

	days := daysBetween(loan.IssueDate, loan.DueDate)
	interest := loan.Principal.Mul(rate).Mul(decimal.NewFromInt(days)).Div(daysInYear)
	return loan.Principal.Add(interest)
}

// RemainingBalance returns the total still owed after all payments, floored at
// zero.
func RemainingBalance(loan *models.Loan, payments []models.Payment) decimal.Decimal {
	if loan == nil {
		return decimal.Zero
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	balance := TotalDue(loan).Sub(paid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// PrincipalBalance returns the principal still outstanding after the principal
// portions of all payments, floored at zero.
func PrincipalBalance(loan *models.Loan, payments []models.Payment) decimal.Decimal {
	if loan == nil {
		return decimal.Zero
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Principal)
	}

	balance := loan.Principal.Sub(paid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// overdueReference is the date a loan is measured against: the next scheduled
// payment when one exists, the final due date otherwise.
func overdueReference(loan *models.Loan) time.Time {
	if loan.NextPaymentDate != nil {
		return *loan.NextPaymentDate
	}
	return loan.DueDate
}

// DaysOverdue returns how many whole days past its reference date a loan is,
// or 0 if it is paid or not yet late.
func DaysOverdue(loan *models.Loan, now time.Time) int {
	if loan == nil || loan.Status == models.StatusPaid {
		return 0
	}

	ref := overdueReference(loan)
	if now.After(ref) {
		return int(daysBetween(ref, now))
	}
	return 0
}

// IsOverdue reports whether an unpaid loan is past its next payment date or
// its due date.
func IsOverdue(loan *models.Loan, now time.Time) bool {
	if loan == nil || loan.Status == models.StatusPaid {
		return false
	}

	if loan.NextPaymentDate != nil && now.After(*loan.NextPaymentDate) {
		return true
	}
	return now.After(loan.DueDate)
}

// PaymentDistribution splits a payment between accrued interest and principal.
//
// Interest accrues on the remaining principal since the most recent payment
// (or since issue). Periodic frequencies charge a flat one-period rate
// regardless of elapsed days; custom frequency charges a daily rate over the
// days actually elapsed. Note this daily convention differs from TotalDue's
// custom branch, which counts issue-to-due calendar days; both are kept as-is.
// Whatever the payment does not cover in interest rolls nothing forward: a
// payment smaller than the accrued interest is absorbed entirely as interest.
func PaymentDistribution(loan *models.Loan, amount decimal.Decimal, payments []models.Payment, now time.Time) Distribution {
	if loan == nil {
		return Distribution{Principal: decimal.Zero, Interest: decimal.Zero}
	}

	rate := loan.InterestRate.Div(hundred)

	lastPaymentDate := loan.IssueDate
	for _, p := range payments {
		if p.Date.After(lastPaymentDate) {
			lastPaymentDate = p.Date
		}
	}
	daysSinceLastPayment := daysBetween(lastPaymentDate, now)

	remainingPrincipal := PrincipalBalance(loan, payments)

	var accrued decimal.Decimal
	switch {
	case loan.Frequency == models.FrequencyCustom:
		accrued = remainingPrincipal.Mul(rate).Mul(decimal.NewFromInt(daysSinceLastPayment)).Div(daysInYear)
	case loan.Frequency == "":
		// No frequency recorded: a full annual period.
		accrued = remainingPrincipal.Mul(rate)
	default:
		periods := periodsPerYear(loan.Frequency)
		if periods == 0 {
			// Unrecognized frequency falls back to a single day's interest.
			accrued = remainingPrincipal.Mul(rate.Div(daysInYear))
		} else {
			accrued = remainingPrincipal.Mul(rate.Div(decimal.NewFromInt(periods)))
		}
	}

	if amount.GreaterThan(accrued) {
		return Distribution{Principal: amount.Sub(accrued), Interest: accrued}
	}
	return Distribution{Principal: decimal.Zero, Interest: amount}
}

// NextStatus classifies a loan from its terms, payment history and the
// current date. A zero remaining balance always wins: a defaulted loan that is
// later settled in full comes back as paid.
func NextStatus(loan *models.Loan, payments []models.Payment, now time.Time) models.LoanStatus {
	if loan == nil {
		return models.StatusActive
	}

	if !RemainingBalance(loan, payments).IsPositive() {
		return models.StatusPaid
	}

	daysOverdue := DaysOverdue(loan, now)
	if daysOverdue >= DefaultedAfterDays {
		return models.StatusDefaulted
	}
	if daysOverdue > 0 {
		return models.StatusOverdue
	}

	return models.StatusActive
}

// NextPaymentDate advances a date by one payment period. Custom frequency
// falls back to monthly.
func NextPaymentDate(from time.Time, frequency models.PaymentFrequency) time.Time {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	case models.FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case models.FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// InstallmentAmount returns the per-installment share of the total due, or the
// whole total when the loan has no installment count.
func InstallmentAmount(loan *models.Loan) decimal.Decimal {
	if loan == nil {
		return decimal.Zero
	}
	if loan.Installments <= 0 {
		return TotalDue(loan)
	}
	return TotalDue(loan).Div(decimal.NewFromInt(int64(loan.Installments)))
}
