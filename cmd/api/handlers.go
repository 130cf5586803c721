package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Danieloutliers/loanbook/pkg/interchange"
	"github.com/Danieloutliers/loanbook/pkg/store"
	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const defaultUpcomingDays = 15

// Server holds the portfolio store behind the HTTP surface.
type Server struct {
	store store.Store
	log   *logrus.Logger
}

func NewServer(s store.Store, log *logrus.Logger) *Server {
	return &Server{store: s, log: log}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/borrowers", s.listBorrowersHandler).Methods("GET")
	r.HandleFunc("/borrowers", s.createBorrowerHandler).Methods("POST")
	r.HandleFunc("/borrowers/{id}", s.getBorrowerHandler).Methods("GET")
	r.HandleFunc("/borrowers/{id}", s.updateBorrowerHandler).Methods("PUT")
	r.HandleFunc("/borrowers/{id}", s.deleteBorrowerHandler).Methods("DELETE")
	r.HandleFunc("/borrowers/{id}/loans", s.listBorrowerLoansHandler).Methods("GET")

	// Fixed paths before the {id} routes so "overdue" is not read as an id.
	r.HandleFunc("/loans/overdue", s.overdueLoansHandler).Methods("GET")
	r.HandleFunc("/loans/upcoming", s.upcomingLoansHandler).Methods("GET")
	r.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	r.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	r.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	r.HandleFunc("/loans/{id}", s.updateLoanHandler).Methods("PUT")
	r.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	r.HandleFunc("/loans/{id}/details", s.loanDetailsHandler).Methods("GET")
	r.HandleFunc("/loans/{id}/payments", s.listLoanPaymentsHandler).Methods("GET")
	r.HandleFunc("/loans/{id}/payments", s.createPaymentHandler).Methods("POST")

	r.HandleFunc("/payments", s.listPaymentsHandler).Methods("GET")
	r.HandleFunc("/payments/{id}", s.updatePaymentHandler).Methods("PUT")
	r.HandleFunc("/payments/{id}", s.deletePaymentHandler).Methods("DELETE")

	r.HandleFunc("/metrics", s.metricsHandler).Methods("GET")
	r.HandleFunc("/metrics/status", s.statusDistributionHandler).Methods("GET")

	r.HandleFunc("/settings", s.getSettingsHandler).Methods("GET")
	r.HandleFunc("/settings", s.updateSettingsHandler).Methods("PUT")

	r.HandleFunc("/export", s.exportHandler).Methods("GET")
	r.HandleFunc("/import", s.importHandler).Methods("POST")

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// --- Borrowers ---

func (s *Server) createBorrowerHandler(w http.ResponseWriter, r *http.Request) {
	var in store.NewBorrower
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	borrower, err := s.store.CreateBorrower(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, borrower)
}

func (s *Server) listBorrowersHandler(w http.ResponseWriter, r *http.Request) {
	borrowers, err := s.store.GetAllBorrowers()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, borrowers)
}

func (s *Server) getBorrowerHandler(w http.ResponseWriter, r *http.Request) {
	borrower, err := s.store.GetBorrower(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, borrower)
}

func (s *Server) updateBorrowerHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.BorrowerPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	borrower, err := s.store.UpdateBorrower(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, borrower)
}

func (s *Server) deleteBorrowerHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBorrower(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBorrowerLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.store.GetLoansForBorrower(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loans)
}

// --- Loans ---

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var in store.NewLoan
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.store.CreateLoan(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.store.GetAllLoans()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loans)
}

func (s *Server) overdueLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.store.GetOverdueLoans()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loans)
}

func (s *Server) upcomingLoansHandler(w http.ResponseWriter, r *http.Request) {
	days := defaultUpcomingDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	loans, err := s.store.GetUpcomingDueLoans(days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loans)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loan, err := s.store.GetLoan(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loan)
}

func (s *Server) loanDetailsHandler(w http.ResponseWriter, r *http.Request) {
	details, err := s.store.GetLoanDetails(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.LoanPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.store.UpdateLoan(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLoan(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Payments ---

func (s *Server) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var in store.NewPayment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in.LoanID = mux.Vars(r)["id"]

	payment, err := s.store.CreatePayment(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) listLoanPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := s.store.GetPaymentsForLoan(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payments)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := s.store.GetAllPayments()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payments)
}

func (s *Server) updatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.PaymentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payment, err := s.store.UpdatePayment(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payment)
}

func (s *Server) deletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePayment(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Reporting, settings, interchange ---

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.Metrics()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) statusDistributionHandler(w http.ResponseWriter, r *http.Request) {
	dist, err := s.store.StatusCounts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dist)
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Settings())
}

func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.UpdateSettings(patch))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := interchange.Marshal(s.store.Export())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := interchange.Unmarshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Import(data); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
