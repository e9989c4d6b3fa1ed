package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Account routes
	api.HandleFunc("/accounts", handler.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts", handler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts/{id}", handler.DeleteAccount).Methods("DELETE")

	// Transaction entry and history
	api.HandleFunc("/accounts/{id}/transactions", handler.ListTransactions).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", handler.CreateTransaction).Methods("POST")
	api.HandleFunc("/transactions/{id}", handler.DeleteTransaction).Methods("DELETE")

	// Reports
	api.HandleFunc("/accounts/{id}/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/accounts/{id}/pnl", handler.GetRealizedPL).Methods("GET")

	// Fee schedule
	api.HandleFunc("/charges/preview", handler.PreviewCharges).Methods("POST")
	api.HandleFunc("/fees", handler.ListFeeRates).Methods("GET")
	api.HandleFunc("/fees", handler.UpdateFeeRate).Methods("PUT")

	return r
}
