package store

import (
	"github.com/Danieloutliers/loanbook/pkg/engine"
	"github.com/Danieloutliers/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

// Metrics computes the dashboard aggregates over the whole portfolio.
func (s *MemoryStore) Metrics() (models.LoanMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := models.LoanMetrics{
		TotalLent:         decimal.Zero,
		InterestCollected: decimal.Zero,
		OverdueAmount:     decimal.Zero,
		ReceivedThisMonth: decimal.Zero,
	}

	for _, loan := range s.loans {
		m.TotalLent = m.TotalLent.Add(loan.Principal)
		if loan.Status == models.StatusOverdue || loan.Status == models.StatusDefaulted {
			remaining := engine.RemainingBalance(loan, s.paymentsForLoanLocked(loan.ID))
			m.OverdueAmount = m.OverdueAmount.Add(remaining)
		}
	}

	oneMonthAgo := s.now().AddDate(0, -1, 0)
	for _, p := range s.payments {
		m.InterestCollected = m.InterestCollected.Add(p.Interest)
		if p.Date.After(oneMonthAgo) {
			m.ReceivedThisMonth = m.ReceivedThisMonth.Add(p.Amount)
		}
	}

	return m, nil
}

// StatusCounts tallies loans per status.
func (s *MemoryStore) StatusCounts() (models.StatusDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dist models.StatusDistribution
	for _, loan := range s.loans {
		switch loan.Status {
		case models.StatusActive:
			dist.Active++
		case models.StatusPaid:
			dist.Paid++
		case models.StatusOverdue:
			dist.Overdue++
		case models.StatusDefaulted:
			dist.Defaulted++
		}
	}
	return dist, nil
}

// Settings returns the current new-loan defaults.
func (s *MemoryStore) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings merges a partial settings update and returns the result.
func (s *MemoryStore) UpdateSettings(patch SettingsPatch) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.DefaultInterestRate != nil {
		s.settings.DefaultInterestRate = *patch.DefaultInterestRate
	}
	if patch.DefaultPaymentFrequency != nil {
		s.settings.DefaultPaymentFrequency = *patch.DefaultPaymentFrequency
	}
	if patch.DefaultInstallments != nil {
		s.settings.DefaultInstallments = *patch.DefaultInstallments
	}
	if patch.Currency != nil {
		s.settings.Currency = *patch.Currency
	}
	return s.settings
}
