package store

import (
	"errors"
	"testing"
	"time"

	"github.com/Danieloutliers/loanbook/pkg/interchange"
	"github.com/Danieloutliers/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(now time.Time) *MemoryStore {
	s := NewMemoryStore(models.Settings{
		DefaultInterestRate:     decimal.NewFromInt(5),
		DefaultPaymentFrequency: models.FrequencyMonthly,
		DefaultInstallments:     12,
		Currency:                "BRL",
	})
	s.SetClock(func() time.Time { return now })
	return s
}

// seedLoan creates a borrower and a 10000 @ 12% monthly loan with 6
// installments, total due 10600.
func seedLoan(t *testing.T, s *MemoryStore, name string) (*models.Borrower, *models.Loan) {
	t.Helper()

	borrower, err := s.CreateBorrower(NewBorrower{Name: name})
	if err != nil {
		t.Fatalf("Failed to create borrower: %v", err)
	}

	loan, err := s.CreateLoan(NewLoan{
		BorrowerID:   borrower.ID,
		Principal:    decimal.NewFromInt(10000),
		InterestRate: decimal.NewFromInt(12),
		IssueDate:    testNow.AddDate(0, -3, 0),
		DueDate:      testNow.AddDate(0, 3, 0),
		Frequency:    models.FrequencyMonthly,
		Installments: 6,
	})
	if err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	return borrower, loan
}

func TestCreateBorrower_SequentialIDs(t *testing.T) {
	s := newTestStore(testNow)

	first, err := s.CreateBorrower(NewBorrower{Name: "Maria"})
	if err != nil {
		t.Fatalf("Failed to create borrower: %v", err)
	}
	second, _ := s.CreateBorrower(NewBorrower{Name: "João"})

	if first.ID != "1" || second.ID != "2" {
		t.Errorf("Expected ids 1 and 2, got %s and %s", first.ID, second.ID)
	}
	if !first.CreatedAt.Equal(testNow) {
		t.Errorf("Expected created at %s, got %s", testNow, first.CreatedAt)
	}
}

func TestCreateBorrower_RequiresName(t *testing.T) {
	s := newTestStore(testNow)

	_, err := s.CreateBorrower(NewBorrower{Name: "  "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCreateLoan_DenormalizesBorrowerName(t *testing.T) {
	s := newTestStore(testNow)
	borrower, loan := seedLoan(t, s, "Maria")

	if loan.BorrowerName != borrower.Name {
		t.Errorf("Expected borrower name %q on loan, got %q", borrower.Name, loan.BorrowerName)
	}
	if loan.Status != models.StatusActive {
		t.Errorf("Expected new loan to be active, got %s", loan.Status)
	}
}

func TestCreateLoan_UnknownBorrower(t *testing.T) {
	s := newTestStore(testNow)

	_, err := s.CreateLoan(NewLoan{BorrowerID: "99", Principal: decimal.NewFromInt(100)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestCreateLoan_RejectsNonPositivePrincipal(t *testing.T) {
	s := newTestStore(testNow)
	borrower, _ := s.CreateBorrower(NewBorrower{Name: "Maria"})

	_, err := s.CreateLoan(NewLoan{BorrowerID: borrower.ID, Principal: decimal.Zero})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestUpdateBorrower_RenamePropagatesToOwnLoansOnly(t *testing.T) {
	s := newTestStore(testNow)
	maria, mariaLoan := seedLoan(t, s, "Maria")
	_, joaoLoan := seedLoan(t, s, "João")

	newName := "Maria Silva"
	if _, err := s.UpdateBorrower(maria.ID, BorrowerPatch{Name: &newName}); err != nil {
		t.Fatalf("Failed to rename borrower: %v", err)
	}

	got, _ := s.GetLoan(mariaLoan.ID)
	if got.BorrowerName != newName {
		t.Errorf("Expected renamed borrower on loan, got %q", got.BorrowerName)
	}

	other, _ := s.GetLoan(joaoLoan.ID)
	if other.BorrowerName != "João" {
		t.Errorf("Other borrower's loan must be untouched, got %q", other.BorrowerName)
	}
}

func TestDeleteBorrower_ConflictWithUnpaidLoan(t *testing.T) {
	s := newTestStore(testNow)
	borrower, _ := seedLoan(t, s, "Maria")

	err := s.DeleteBorrower(borrower.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected conflict, got %v", err)
	}

	// Nothing may have been touched by the failed delete.
	if _, err := s.GetBorrower(borrower.ID); err != nil {
		t.Errorf("Borrower must survive a failed delete: %v", err)
	}
	loans, _ := s.GetAllLoans()
	if len(loans) != 1 {
		t.Errorf("Expected 1 loan after failed delete, got %d", len(loans))
	}
}

func TestDeleteBorrower_CascadesWhenPaid(t *testing.T) {
	s := newTestStore(testNow)
	borrower, loan := seedLoan(t, s, "Maria")

	// Settle the loan in full so the borrower becomes deletable.
	if _, err := s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(10600)}); err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}
	got, _ := s.GetLoan(loan.ID)
	if got.Status != models.StatusPaid {
		t.Fatalf("Expected paid loan, got %s", got.Status)
	}

	if err := s.DeleteBorrower(borrower.ID); err != nil {
		t.Fatalf("Failed to delete borrower: %v", err)
	}

	if _, err := s.GetLoan(loan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected cascade delete of loan, got %v", err)
	}
	payments, _ := s.GetAllPayments()
	if len(payments) != 0 {
		t.Errorf("Expected cascade delete of payments, got %d left", len(payments))
	}
}

func TestDeleteLoan_CascadesPayments(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(500)})
	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(500)})

	if err := s.DeleteLoan(loan.ID); err != nil {
		t.Fatalf("Failed to delete loan: %v", err)
	}

	payments, _ := s.GetPaymentsForLoan(loan.ID)
	if len(payments) != 0 {
		t.Errorf("Expected no orphaned payments, got %d", len(payments))
	}
}

func TestCreatePayment_AllocatesThroughEngine(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	// One monthly period of interest on 10000 at 12% APR is 100.
	payment, err := s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(1750)})
	if err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	if !payment.Interest.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected interest 100, got %s", payment.Interest)
	}
	if !payment.Principal.Equal(decimal.NewFromInt(1650)) {
		t.Errorf("Expected principal 1650, got %s", payment.Principal)
	}
}

func TestCreatePayment_KeepsExplicitSplit(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	principal := decimal.NewFromInt(900)
	interest := decimal.NewFromInt(100)
	payment, err := s.CreatePayment(NewPayment{
		LoanID:    loan.ID,
		Date:      testNow,
		Amount:    decimal.NewFromInt(1000),
		Principal: &principal,
		Interest:  &interest,
	})
	if err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	if !payment.Principal.Equal(principal) || !payment.Interest.Equal(interest) {
		t.Errorf("Expected caller's split 900/100, got %s/%s", payment.Principal, payment.Interest)
	}
}

func TestCreatePayment_UnknownLoan(t *testing.T) {
	s := newTestStore(testNow)

	_, err := s.CreatePayment(NewPayment{LoanID: "42", Date: testNow, Amount: decimal.NewFromInt(100)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestCreatePayment_SweepsEveryLoan(t *testing.T) {
	s := newTestStore(testNow)
	_, paidInto := seedLoan(t, s, "Maria")
	_, lateLoan := seedLoan(t, s, "João")

	// Push the second loan 45 days past its next payment date.
	next := testNow.AddDate(0, 0, -45)
	if _, err := s.UpdateLoan(lateLoan.ID, LoanPatch{NextPaymentDate: &next}); err != nil {
		t.Fatalf("Failed to update loan: %v", err)
	}

	// A payment on the first loan sweeps statuses portfolio-wide.
	if _, err := s.CreatePayment(NewPayment{LoanID: paidInto.ID, Date: testNow, Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	got, _ := s.GetLoan(lateLoan.ID)
	if got.Status != models.StatusOverdue {
		t.Errorf("Expected sweep to mark the other loan overdue, got %s", got.Status)
	}
}

func TestPaidIsTerminal(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	payment, err := s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(10600)})
	if err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	got, _ := s.GetLoan(loan.ID)
	if got.Status != models.StatusPaid {
		t.Fatalf("Expected paid, got %s", got.Status)
	}

	// The sweep never moves a paid loan back, even after its payment goes away.
	if err := s.DeletePayment(payment.ID); err != nil {
		t.Fatalf("Failed to delete payment: %v", err)
	}
	got, _ = s.GetLoan(loan.ID)
	if got.Status != models.StatusPaid {
		t.Errorf("Paid must be terminal, got %s", got.Status)
	}
}

func TestResyncLoanStatuses_Defaulted(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	next := testNow.AddDate(0, 0, -95)
	s.UpdateLoan(loan.ID, LoanPatch{NextPaymentDate: &next})

	s.ResyncLoanStatuses()

	got, _ := s.GetLoan(loan.ID)
	if got.Status != models.StatusDefaulted {
		t.Errorf("Expected defaulted at 95 days, got %s", got.Status)
	}
}

func TestGetPaymentsForLoan_SortedByDate(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")

	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(100)})
	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow.AddDate(0, 0, -30), Amount: decimal.NewFromInt(100)})

	payments, _ := s.GetPaymentsForLoan(loan.ID)
	if len(payments) != 2 {
		t.Fatalf("Expected 2 payments, got %d", len(payments))
	}
	if !payments[0].Date.Before(payments[1].Date) {
		t.Error("Expected payments sorted ascending by date")
	}
}

func TestGetOverdueLoans(t *testing.T) {
	s := newTestStore(testNow)
	_, current := seedLoan(t, s, "Maria")
	_, late := seedLoan(t, s, "João")

	next := testNow.AddDate(0, 0, -45)
	s.UpdateLoan(late.ID, LoanPatch{NextPaymentDate: &next})
	s.ResyncLoanStatuses()

	overdue, _ := s.GetOverdueLoans()
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Fatalf("Expected only loan %s overdue, got %v", late.ID, overdue)
	}

	got, _ := s.GetLoan(current.ID)
	if got.Status != models.StatusActive {
		t.Errorf("Expected on-time loan to stay active, got %s", got.Status)
	}
}

func TestGetUpcomingDueLoans(t *testing.T) {
	s := newTestStore(testNow)
	_, soon := seedLoan(t, s, "Maria")
	_, later := seedLoan(t, s, "João")
	seedLoan(t, s, "Ana") // no next payment date, never upcoming

	in5 := testNow.AddDate(0, 0, 5)
	in20 := testNow.AddDate(0, 0, 20)
	s.UpdateLoan(soon.ID, LoanPatch{NextPaymentDate: &in5})
	s.UpdateLoan(later.ID, LoanPatch{NextPaymentDate: &in20})

	upcoming, _ := s.GetUpcomingDueLoans(15)
	if len(upcoming) != 1 || upcoming[0].ID != soon.ID {
		t.Fatalf("Expected only loan %s within 15 days, got %d loans", soon.ID, len(upcoming))
	}

	upcoming, _ = s.GetUpcomingDueLoans(30)
	if len(upcoming) != 2 {
		t.Fatalf("Expected 2 loans within 30 days, got %d", len(upcoming))
	}
	if upcoming[0].ID != soon.ID {
		t.Error("Expected soonest next payment first")
	}
}

func TestMetrics(t *testing.T) {
	s := newTestStore(testNow)
	_, paying := seedLoan(t, s, "Maria")
	_, defaulted := seedLoan(t, s, "João")

	next := testNow.AddDate(0, 0, -100)
	s.UpdateLoan(defaulted.ID, LoanPatch{NextPaymentDate: &next})

	// 1750 paid 10 days ago: 100 interest, 1650 principal; sweeps the other
	// loan into default.
	s.CreatePayment(NewPayment{LoanID: paying.ID, Date: testNow.AddDate(0, 0, -10), Amount: decimal.NewFromInt(1750)})

	m, err := s.Metrics()
	if err != nil {
		t.Fatalf("Failed to compute metrics: %v", err)
	}

	if !m.TotalLent.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected total lent 20000, got %s", m.TotalLent)
	}
	if !m.InterestCollected.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected interest collected 100, got %s", m.InterestCollected)
	}
	if !m.OverdueAmount.Equal(decimal.NewFromInt(10600)) {
		t.Errorf("Expected overdue amount 10600, got %s", m.OverdueAmount)
	}
	if !m.ReceivedThisMonth.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("Expected received this month 1750, got %s", m.ReceivedThisMonth)
	}
}

func TestStatusCounts(t *testing.T) {
	s := newTestStore(testNow)
	seedLoan(t, s, "Maria")
	_, late := seedLoan(t, s, "João")

	next := testNow.AddDate(0, 0, -45)
	s.UpdateLoan(late.ID, LoanPatch{NextPaymentDate: &next})
	s.ResyncLoanStatuses()

	dist, _ := s.StatusCounts()
	if dist.Active != 1 || dist.Overdue != 1 || dist.Paid != 0 || dist.Defaulted != 0 {
		t.Errorf("Unexpected distribution: %+v", dist)
	}
}

func TestUpdateSettings(t *testing.T) {
	s := newTestStore(testNow)

	currency := "USD"
	installments := 6
	got := s.UpdateSettings(SettingsPatch{Currency: &currency, DefaultInstallments: &installments})

	if got.Currency != "USD" || got.DefaultInstallments != 6 {
		t.Errorf("Unexpected settings after patch: %+v", got)
	}
	if got.DefaultPaymentFrequency != models.FrequencyMonthly {
		t.Errorf("Untouched fields must keep their value, got %s", got.DefaultPaymentFrequency)
	}
}

func TestImport_MissingRecordSetRejected(t *testing.T) {
	s := newTestStore(testNow)
	seedLoan(t, s, "Maria")

	err := s.Import(interchange.Data{
		Loans:    []interchange.LoanRecord{},
		Payments: []interchange.PaymentRecord{},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for missing borrowers, got %v", err)
	}

	// Existing collections must be untouched by the rejected import.
	borrowers, _ := s.GetAllBorrowers()
	loans, _ := s.GetAllLoans()
	if len(borrowers) != 1 || len(loans) != 1 {
		t.Errorf("Expected collections unchanged, got %d borrowers and %d loans", len(borrowers), len(loans))
	}
}

func TestImport_ReplacesCollectionsAndDefaultsCreatedAt(t *testing.T) {
	s := newTestStore(testNow)
	seedLoan(t, s, "ToBeReplaced")

	data := interchange.Data{
		Borrowers: []interchange.BorrowerRecord{
			{ID: "7", Name: "Maria"},
		},
		Loans: []interchange.LoanRecord{
			{
				ID:           "3",
				BorrowerID:   "7",
				BorrowerName: "Maria",
				Principal:    decimal.NewFromInt(10000),
				InterestRate: decimal.NewFromInt(12),
				IssueDate:    "2025-01-01",
				DueDate:      "2025-12-01",
				Status:       "active",
				Frequency:    "monthly",
				Installments: 6,
			},
		},
		Payments: []interchange.PaymentRecord{
			{
				ID:        "1",
				LoanID:    "3",
				Date:      "2025-02-01",
				Amount:    decimal.NewFromInt(1750),
				Principal: decimal.NewFromInt(1650),
				Interest:  decimal.NewFromInt(100),
			},
		},
	}

	if err := s.Import(data); err != nil {
		t.Fatalf("Failed to import: %v", err)
	}

	borrowers, _ := s.GetAllBorrowers()
	if len(borrowers) != 1 || borrowers[0].ID != "7" {
		t.Fatalf("Expected the imported borrower only, got %v", borrowers)
	}
	if !borrowers[0].CreatedAt.Equal(testNow) {
		t.Errorf("Expected missing created at to default to now, got %s", borrowers[0].CreatedAt)
	}

	loan, err := s.GetLoan("3")
	if err != nil {
		t.Fatalf("Imported loan missing: %v", err)
	}
	if loan.Status != models.StatusActive {
		t.Errorf("Expected active after import sweep, got %s", loan.Status)
	}

	payments, _ := s.GetPaymentsForLoan("3")
	if len(payments) != 1 {
		t.Errorf("Expected 1 imported payment, got %d", len(payments))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")
	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(1750)})

	restored := newTestStore(testNow)
	if err := restored.Import(s.Export()); err != nil {
		t.Fatalf("Failed to import export: %v", err)
	}

	got, err := restored.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("Loan missing after round trip: %v", err)
	}
	if !got.Principal.Equal(loan.Principal) || got.BorrowerName != "Maria" {
		t.Errorf("Loan fields lost in round trip: %+v", got)
	}

	payments, _ := restored.GetPaymentsForLoan(loan.ID)
	if len(payments) != 1 || !payments[0].Amount.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("Payments lost in round trip: %v", payments)
	}
}

func TestGetLoanDetails(t *testing.T) {
	s := newTestStore(testNow)
	borrower, loan := seedLoan(t, s, "Maria")
	s.CreatePayment(NewPayment{LoanID: loan.ID, Date: testNow, Amount: decimal.NewFromInt(500)})

	details, err := s.GetLoanDetails(loan.ID)
	if err != nil {
		t.Fatalf("Failed to get details: %v", err)
	}
	if details.Borrower.ID != borrower.ID {
		t.Errorf("Expected borrower %s, got %s", borrower.ID, details.Borrower.ID)
	}
	if len(details.Payments) != 1 {
		t.Errorf("Expected 1 payment in details, got %d", len(details.Payments))
	}
}

func TestUpdateLoan_ReassignBorrower(t *testing.T) {
	s := newTestStore(testNow)
	_, loan := seedLoan(t, s, "Maria")
	other, _ := s.CreateBorrower(NewBorrower{Name: "João"})

	got, err := s.UpdateLoan(loan.ID, LoanPatch{BorrowerID: &other.ID})
	if err != nil {
		t.Fatalf("Failed to reassign loan: %v", err)
	}
	if got.BorrowerName != "João" {
		t.Errorf("Expected borrower name re-resolved, got %q", got.BorrowerName)
	}

	missing := "99"
	if _, err := s.UpdateLoan(loan.ID, LoanPatch{BorrowerID: &missing}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for unknown borrower, got %v", err)
	}
}
