package store

import (
	"fmt"

	"github.com/Danieloutliers/loanbook/pkg/interchange"
	"github.com/Danieloutliers/loanbook/pkg/models"
)

// Export snapshots the three collections as flat interchange records.
func (s *MemoryStore) Export() interchange.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()

	borrowers := make([]models.Borrower, 0, len(s.borrowers))
	for _, b := range s.borrowers {
		borrowers = append(borrowers, *b)
	}
	sortByID(borrowers, func(b models.Borrower) string { return b.ID })

	loans := s.allLoansLocked()

	payments := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		payments = append(payments, *p)
	}
	sortByID(payments, func(p models.Payment) string { return p.ID })

	return interchange.FromCollections(borrowers, loans, payments)
}

// Import replaces all three collections with the snapshot's contents, in
// dependency order: borrowers, then loans, then payments. A payload missing
// any of the three record sets, or carrying unparseable records, is rejected
// before anything is touched. Records without a created-at are stamped with
// the current time, and loan statuses are recomputed once the data is in.
func (s *MemoryStore) Import(data interchange.Data) error {
	if data.Borrowers == nil || data.Loans == nil || data.Payments == nil {
		return fmt.Errorf("%w: import needs borrowers, loans and payments record sets", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	borrowers, loans, payments, err := data.Collections(s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.borrowers = make(map[string]*models.Borrower, len(borrowers))
	for i := range borrowers {
		s.borrowers[borrowers[i].ID] = &borrowers[i]
	}
	s.loans = make(map[string]*models.Loan, len(loans))
	for i := range loans {
		s.loans[loans[i].ID] = &loans[i]
	}
	s.payments = make(map[string]*models.Payment, len(payments))
	for i := range payments {
		s.payments[payments[i].ID] = &payments[i]
	}

	s.resyncLocked()
	return nil
}
