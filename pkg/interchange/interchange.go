// Package interchange defines the flat record set used for bulk export and
// import of a loan portfolio. Records keep optional values as empty strings
// and zeros so the payload stays spreadsheet-friendly; there is no schema
// versioning, every payload is read as the current shape.
package interchange

import (
	"fmt"
	"time"

	"github.com/Danieloutliers/loanbook/pkg/models"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type BorrowerRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

type LoanRecord struct {
	ID                string          `json:"id"`
	BorrowerID        string          `json:"borrower_id"`
	BorrowerName      string          `json:"borrower_name"`
	Principal         decimal.Decimal `json:"principal"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	IssueDate         string          `json:"issue_date"`
	DueDate           string          `json:"due_date"`
	Status            string          `json:"status"`
	Frequency         string          `json:"frequency"`
	NextPaymentDate   string          `json:"next_payment_date"`
	Installments      int             `json:"installments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Notes             string          `json:"notes"`
	CreatedAt         string          `json:"created_at"`
}

type PaymentRecord struct {
	ID        string          `json:"id"`
	LoanID    string          `json:"loan_id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Notes     string          `json:"notes"`
	CreatedAt string          `json:"created_at"`
}

// Data is a full portfolio snapshot. All three record sets must be present
// for an import to be accepted.
type Data struct {
	Borrowers []BorrowerRecord `json:"borrowers"`
	Loans     []LoanRecord     `json:"loans"`
	Payments  []PaymentRecord  `json:"payments"`
}

func Marshal(d Data) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func Unmarshal(b []byte) (Data, error) {
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("decoding interchange payload: %w", err)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	return t.Format(time.RFC3339)
}

// parseDate accepts both full timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t, nil
}

// FromCollections flattens the three entity collections into a snapshot.
func FromCollections(borrowers []models.Borrower, loans []models.Loan, payments []models.Payment) Data {
	d := Data{
		Borrowers: make([]BorrowerRecord, 0, len(borrowers)),
		Loans:     make([]LoanRecord, 0, len(loans)),
		Payments:  make([]PaymentRecord, 0, len(payments)),
	}

	for _, b := range borrowers {
		d.Borrowers = append(d.Borrowers, BorrowerRecord{
			ID:        b.ID,
			Name:      b.Name,
			Email:     b.Email,
			Phone:     b.Phone,
			CreatedAt: formatDate(b.CreatedAt),
		})
	}

	for _, l := range loans {
		rec := LoanRecord{
			ID:           l.ID,
			BorrowerID:   l.BorrowerID,
			BorrowerName: l.BorrowerName,
			Principal:    l.Principal,
			InterestRate: l.InterestRate,
			IssueDate:    formatDate(l.IssueDate),
			DueDate:      formatDate(l.DueDate),
			Status:       string(l.Status),
			Frequency:    string(l.Frequency),
			Installments: l.Installments,
			Notes:        l.Notes,
			CreatedAt:    formatDate(l.CreatedAt),
		}
		if l.NextPaymentDate != nil {
			rec.NextPaymentDate = formatDate(*l.NextPaymentDate)
		}
		if l.InstallmentAmount != nil {
			rec.InstallmentAmount = *l.InstallmentAmount
		}
		d.Loans = append(d.Loans, rec)
	}

	for _, p := range payments {
		d.Payments = append(d.Payments, PaymentRecord{
			ID:        p.ID,
			LoanID:    p.LoanID,
			Date:      formatDate(p.Date),
			Amount:    p.Amount,
			Principal: p.Principal,
			Interest:  p.Interest,
			Notes:     p.Notes,
			CreatedAt: formatDate(p.CreatedAt),
		})
	}

	return d
}

// Collections rebuilds the entity collections from a snapshot. Records without
// a created-at are stamped with defaultCreatedAt. Records go back in
// dependency order: borrowers, then loans, then payments.
func (d Data) Collections(defaultCreatedAt time.Time) ([]models.Borrower, []models.Loan, []models.Payment, error) {
	borrowers := make([]models.Borrower, 0, len(d.Borrowers))
	for _, rec := range d.Borrowers {
		createdAt, err := createdAtOrDefault(rec.CreatedAt, defaultCreatedAt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("borrower %s: %w", rec.ID, err)
		}
		borrowers = append(borrowers, models.Borrower{
			ID:        rec.ID,
			Name:      rec.Name,
			Email:     rec.Email,
			Phone:     rec.Phone,
			CreatedAt: createdAt,
		})
	}

	loans := make([]models.Loan, 0, len(d.Loans))
	for _, rec := range d.Loans {
		issueDate, err := parseDate(rec.IssueDate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loan %s issue date: %w", rec.ID, err)
		}
		dueDate, err := parseDate(rec.DueDate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loan %s due date: %w", rec.ID, err)
		}
		createdAt, err := createdAtOrDefault(rec.CreatedAt, defaultCreatedAt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loan %s: %w", rec.ID, err)
		}

		loan := models.Loan{
			ID:           rec.ID,
			BorrowerID:   rec.BorrowerID,
			BorrowerName: rec.BorrowerName,
			Principal:    rec.Principal,
			InterestRate: rec.InterestRate,
			IssueDate:    issueDate,
			DueDate:      dueDate,
			Status:       models.LoanStatus(rec.Status),
			Frequency:    models.PaymentFrequency(rec.Frequency),
			Installments: rec.Installments,
			Notes:        rec.Notes,
			CreatedAt:    createdAt,
		}
		if rec.NextPaymentDate != "" {
			next, err := parseDate(rec.NextPaymentDate)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("loan %s next payment date: %w", rec.ID, err)
			}
			loan.NextPaymentDate = &next
		}
		if !rec.InstallmentAmount.IsZero() {
			amount := rec.InstallmentAmount
			loan.InstallmentAmount = &amount
		}
		loans = append(loans, loan)
	}

	payments := make([]models.Payment, 0, len(d.Payments))
	for _, rec := range d.Payments {
		date, err := parseDate(rec.Date)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("payment %s date: %w", rec.ID, err)
		}
		createdAt, err := createdAtOrDefault(rec.CreatedAt, defaultCreatedAt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("payment %s: %w", rec.ID, err)
		}
		payments = append(payments, models.Payment{
			ID:        rec.ID,
			LoanID:    rec.LoanID,
			Date:      date,
			Amount:    rec.Amount,
			Principal: rec.Principal,
			Interest:  rec.Interest,
			Notes:     rec.Notes,
			CreatedAt: createdAt,
		})
	}

	return borrowers, loans, payments, nil
}

func createdAtOrDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("created at: %w", err)
	}
	return t, nil
}
