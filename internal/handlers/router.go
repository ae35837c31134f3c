package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the OTP routes. Extra middleware (session, logging) is
// applied in the given order to every route.
func NewRouter(h *OTPHandlers, middlewares ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	otp := router.PathPrefix("/otp").Subrouter()
	for _, mw := range middlewares {
		otp.Use(mw)
	}
	otp.HandleFunc("/{userId:[0-9]+}", h.GetPassword).Methods("GET", "OPTIONS")
	otp.HandleFunc("/{userId:[0-9]+}/validate", h.Validate).Methods("POST", "OPTIONS")

	return router
}
