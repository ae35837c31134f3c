package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/qcom/otpd/internal/service"
	"github.com/sirupsen/logrus"
)

// maxValidateBodyBytes caps a validate request body; a password field never
// comes close.
const maxValidateBodyBytes = 4 << 10

type OTPHandlers struct {
	otpService *service.OTPService
	logger     *logrus.Logger
}

func NewOTPHandlers(otpService *service.OTPService, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otpService: otpService,
		logger:     logger,
	}
}

type PasswordResponse struct {
	Password string `json:"password"`
}

type ValidateRequest struct {
	Password string `json:"password"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// GetPassword issues a new one-time password for the user in the path.
func (h *OTPHandlers) GetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid User Id")
		return
	}

	password, err := h.otpService.Create(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to create OTP")
		h.respondWithError(w, http.StatusInternalServerError, "Password generation failed. Please try again.")
		return
	}

	h.respondWithJSON(w, http.StatusOK, PasswordResponse{Password: password})
}

// Validate checks the submitted password, read from a form field or a JSON
// body. The answer is always a boolean so callers cannot tell an unknown
// user from an expired or wrong password.
func (h *OTPHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid User Id")
		return
	}

	password := h.submittedPassword(w, r)
	valid := h.otpService.Validate(r.Context(), userID, password)

	h.respondWithJSON(w, http.StatusOK, ValidateResponse{Valid: valid})
}

func (h *OTPHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respondWithError(w, http.StatusNotFound, "Malformed request")
}

// submittedPassword yields "" for an unreadable or oversized body, which
// never validates.
func (h *OTPHandlers) submittedPassword(w http.ResponseWriter, r *http.Request) string {
	r.Body = http.MaxBytesReader(w, r.Body, maxValidateBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.WithError(err).Debug("Invalid validate request body")
			return ""
		}
		return req.Password
	}

	if err := r.ParseForm(); err != nil {
		h.logger.WithError(err).Debug("Invalid validate request form")
		return ""
	}
	return r.FormValue("password")
}

func parseUserID(r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

func (h *OTPHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Warn("Failed to write response")
	}
}

func (h *OTPHandlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respondWithJSON(w, status, ErrorResponse{Error: message})
}
