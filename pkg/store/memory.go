package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Danieloutliers/loanbook/pkg/engine"
	"github.com/Danieloutliers/loanbook/pkg/models"
)

// MemoryStore keeps the whole portfolio in memory with no durability, guarded
// by a single reader-writer lock. Any payment mutation rewrites loan statuses
// across the entire collection, so writers are strictly serialized.
type MemoryStore struct {
	mu        sync.RWMutex
	borrowers map[string]*models.Borrower
	loans     map[string]*models.Loan
	payments  map[string]*models.Payment
	settings  models.Settings
	now       func() time.Time
}

// NewMemoryStore creates an empty portfolio with the given defaults for new
// loans.
func NewMemoryStore(settings models.Settings) *MemoryStore {
	return &MemoryStore{
		borrowers: make(map[string]*models.Borrower),
		loans:     make(map[string]*models.Loan),
		payments:  make(map[string]*models.Payment),
		settings:  settings,
		now:       time.Now,
	}
}

// SetClock overrides the store's time source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// nextID returns the next sequential id for a collection: one past the
// largest existing numeric id. Ids are independent per collection.
func nextID[T any](items map[string]T) string {
	max := 0
	for id := range items {
		if n, err := strconv.Atoi(id); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// paymentsForLoanLocked returns a loan's payments sorted by date ascending.
// Callers must hold at least the read lock.
func (s *MemoryStore) paymentsForLoanLocked(loanID string) []models.Payment {
	var out []models.Payment
	for _, p := range s.payments {
		if p.LoanID == loanID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// resyncLocked recomputes every loan's status against its own payment subset.
// Paid loans are terminal and skipped. Callers must hold the write lock.
func (s *MemoryStore) resyncLocked() {
	now := s.now()
	for _, loan := range s.loans {
		if loan.Status == models.StatusPaid {
			continue
		}
		if next := engine.NextStatus(loan, s.paymentsForLoanLocked(loan.ID), now); next != loan.Status {
			loan.Status = next
		}
	}
}

// ResyncLoanStatuses recomputes the status of every loan in the portfolio.
func (s *MemoryStore) ResyncLoanStatuses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resyncLocked()
}

// --- Borrowers ---

func (s *MemoryStore) CreateBorrower(in NewBorrower) (*models.Borrower, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: borrower name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := &models.Borrower{
		ID:        nextID(s.borrowers),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: s.now(),
	}
	s.borrowers[b.ID] = b

	out := *b
	return &out, nil
}

func (s *MemoryStore) UpdateBorrower(id string, patch BorrowerPatch) (*models.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrowers[id]
	if !ok {
		return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, id)
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: borrower name is required", ErrValidation)
		}
		b.Name = *patch.Name
		// Re-sync the denormalized name on every loan this borrower owns.
		for _, loan := range s.loans {
			if loan.BorrowerID == id {
				loan.BorrowerName = b.Name
			}
		}
	}
	if patch.Email != nil {
		b.Email = *patch.Email
	}
	if patch.Phone != nil {
		b.Phone = *patch.Phone
	}

	out := *b
	return &out, nil
}

func (s *MemoryStore) DeleteBorrower(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.borrowers[id]; !ok {
		return fmt.Errorf("%w: borrower %s", ErrNotFound, id)
	}

	for _, loan := range s.loans {
		if loan.BorrowerID == id && loan.Status != models.StatusPaid {
			return fmt.Errorf("%w: borrower %s still has unpaid loans", ErrConflict, id)
		}
	}

	delete(s.borrowers, id)
	for loanID, loan := range s.loans {
		if loan.BorrowerID != id {
			continue
		}
		delete(s.loans, loanID)
		for paymentID, p := range s.payments {
			if p.LoanID == loanID {
				delete(s.payments, paymentID)
			}
		}
	}
	return nil
}

func (s *MemoryStore) GetBorrower(id string) (*models.Borrower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.borrowers[id]
	if !ok {
		return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, id)
	}
	out := *b
	return &out, nil
}

func (s *MemoryStore) GetAllBorrowers() ([]models.Borrower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Borrower, 0, len(s.borrowers))
	for _, b := range s.borrowers {
		out = append(out, *b)
	}
	sortByID(out, func(b models.Borrower) string { return b.ID })
	return out, nil
}

// --- Loans ---

func (s *MemoryStore) CreateLoan(in NewLoan) (*models.Loan, error) {
	if !in.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: loan principal must be positive", ErrValidation)
	}
	if in.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	borrower, ok := s.borrowers[in.BorrowerID]
	if !ok {
		return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, in.BorrowerID)
	}

	loan := &models.Loan{
		ID:                nextID(s.loans),
		BorrowerID:        in.BorrowerID,
		BorrowerName:      borrower.Name,
		Principal:         in.Principal,
		InterestRate:      in.InterestRate,
		IssueDate:         in.IssueDate,
		DueDate:           in.DueDate,
		Status:            models.StatusActive,
		Frequency:         in.Frequency,
		NextPaymentDate:   in.NextPaymentDate,
		Installments:      in.Installments,
		InstallmentAmount: in.InstallmentAmount,
		Notes:             in.Notes,
		CreatedAt:         s.now(),
	}
	s.loans[loan.ID] = loan

	out := *loan
	return &out, nil
}

func (s *MemoryStore) UpdateLoan(id string, patch LoanPatch) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, id)
	}

	if patch.Principal != nil && !patch.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: loan principal must be positive", ErrValidation)
	}
	if patch.InterestRate != nil && patch.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	}

	if patch.BorrowerID != nil && *patch.BorrowerID != loan.BorrowerID {
		borrower, ok := s.borrowers[*patch.BorrowerID]
		if !ok {
			return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, *patch.BorrowerID)
		}
		loan.BorrowerID = borrower.ID
		loan.BorrowerName = borrower.Name
	}
	if patch.Principal != nil {
		loan.Principal = *patch.Principal
	}
	if patch.InterestRate != nil {
		loan.InterestRate = *patch.InterestRate
	}
	if patch.IssueDate != nil {
		loan.IssueDate = *patch.IssueDate
	}
	if patch.DueDate != nil {
		loan.DueDate = *patch.DueDate
	}
	if patch.Frequency != nil {
		loan.Frequency = *patch.Frequency
	}
	if patch.NextPaymentDate != nil {
		next := *patch.NextPaymentDate
		loan.NextPaymentDate = &next
	}
	if patch.Installments != nil {
		loan.Installments = *patch.Installments
	}
	if patch.InstallmentAmount != nil {
		amount := *patch.InstallmentAmount
		loan.InstallmentAmount = &amount
	}
	if patch.Notes != nil {
		loan.Notes = *patch.Notes
	}

	out := *loan
	return &out, nil
}

func (s *MemoryStore) DeleteLoan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loans[id]; !ok {
		return fmt.Errorf("%w: loan %s", ErrNotFound, id)
	}

	delete(s.loans, id)
	for paymentID, p := range s.payments {
		if p.LoanID == id {
			delete(s.payments, paymentID)
		}
	}
	return nil
}

func (s *MemoryStore) GetLoan(id string) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, id)
	}
	out := *loan
	return &out, nil
}

func (s *MemoryStore) GetLoanDetails(id string) (*models.LoanDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, id)
	}

	details := &models.LoanDetails{
		Loan:     *loan,
		Payments: s.paymentsForLoanLocked(id),
	}
	// An imported portfolio may reference a borrower that no longer exists;
	// the detail view still renders with whatever is on the loan.
	if borrower, ok := s.borrowers[loan.BorrowerID]; ok {
		details.Borrower = *borrower
	} else {
		details.Borrower = models.Borrower{ID: loan.BorrowerID, Name: loan.BorrowerName}
	}
	return details, nil
}

func (s *MemoryStore) GetAllLoans() ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLoansLocked(), nil
}

func (s *MemoryStore) allLoansLocked() []models.Loan {
	out := make([]models.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		out = append(out, *loan)
	}
	sortByID(out, func(l models.Loan) string { return l.ID })
	return out
}

func (s *MemoryStore) GetLoansForBorrower(borrowerID string) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Loan{}
	for _, loan := range s.loans {
		if loan.BorrowerID == borrowerID {
			out = append(out, *loan)
		}
	}
	sortByID(out, func(l models.Loan) string { return l.ID })
	return out, nil
}

// GetOverdueLoans returns loans currently overdue or defaulted.
func (s *MemoryStore) GetOverdueLoans() ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Loan{}
	for _, loan := range s.loans {
		if loan.Status == models.StatusOverdue || loan.Status == models.StatusDefaulted {
			out = append(out, *loan)
		}
	}
	sortByID(out, func(l models.Loan) string { return l.ID })
	return out, nil
}

// GetUpcomingDueLoans returns active loans whose next payment falls strictly
// between now and now plus the given number of days, soonest first.
func (s *MemoryStore) GetUpcomingDueLoans(days int) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	cutoff := now.AddDate(0, 0, days)

	out := []models.Loan{}
	for _, loan := range s.loans {
		if loan.Status != models.StatusActive || loan.NextPaymentDate == nil {
			continue
		}
		if loan.NextPaymentDate.After(now) && loan.NextPaymentDate.Before(cutoff) {
			out = append(out, *loan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return scheduleDate(out[i]).Before(scheduleDate(out[j]))
	})
	return out, nil
}

func scheduleDate(loan models.Loan) time.Time {
	if loan.NextPaymentDate != nil {
		return *loan.NextPaymentDate
	}
	return loan.DueDate
}

// --- Payments ---

func (s *MemoryStore) CreatePayment(in NewPayment) (*models.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[in.LoanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, in.LoanID)
	}

	p := &models.Payment{
		ID:        nextID(s.payments),
		LoanID:    in.LoanID,
		Date:      in.Date,
		Amount:    in.Amount,
		Notes:     in.Notes,
		CreatedAt: s.now(),
	}
	if in.Principal != nil && in.Interest != nil {
		p.Principal = *in.Principal
		p.Interest = *in.Interest
	} else {
		dist := engine.PaymentDistribution(loan, in.Amount, s.paymentsForLoanLocked(in.LoanID), s.now())
		p.Principal = dist.Principal
		p.Interest = dist.Interest
	}

	s.payments[p.ID] = p
	s.resyncLocked()

	out := *p
	return &out, nil
}

func (s *MemoryStore) UpdatePayment(id string, patch PaymentPatch) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, id)
	}

	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if patch.LoanID != nil && *patch.LoanID != p.LoanID {
		if _, ok := s.loans[*patch.LoanID]; !ok {
			return nil, fmt.Errorf("%w: loan %s", ErrNotFound, *patch.LoanID)
		}
		p.LoanID = *patch.LoanID
	}
	if patch.Date != nil {
		p.Date = *patch.Date
	}
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.Principal != nil {
		p.Principal = *patch.Principal
	}
	if patch.Interest != nil {
		p.Interest = *patch.Interest
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}

	s.resyncLocked()

	out := *p
	return &out, nil
}

func (s *MemoryStore) DeletePayment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[id]; !ok {
		return fmt.Errorf("%w: payment %s", ErrNotFound, id)
	}
	delete(s.payments, id)
	s.resyncLocked()
	return nil
}

func (s *MemoryStore) GetAllPayments() ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, *p)
	}
	sortByID(out, func(p models.Payment) string { return p.ID })
	return out, nil
}

func (s *MemoryStore) GetPaymentsForLoan(loanID string) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.paymentsForLoanLocked(loanID)
	if out == nil {
		out = []models.Payment{}
	}
	return out, nil
}

// sortByID orders a slice by its numeric string id.
func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		a, _ := strconv.Atoi(id(items[i]))
		b, _ := strconv.Atoi(id(items[j]))
		return a < b
	})
}
