package handlers

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stk-crm/internal/auth"
	"stk-crm/internal/middleware"
	"stk-crm/internal/models"
	"stk-crm/internal/util"
)

// JSON response helpers
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"detail": message})
}

func jsonMessage(w http.ResponseWriter, message string) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// storeError maps repository errors to responses. Unknown errors are logged
// and answered with 500 and fallback.
func storeError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var transition *models.TransitionError
	var handover *models.HandoverError

	switch {
	case errors.Is(err, models.ErrNotFound):
		jsonError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrAlreadyPending):
		jsonError(w, http.StatusBadRequest, "Quotation already sent for approval")
	case errors.Is(err, models.ErrAlreadyHandedOver):
		jsonError(w, http.StatusBadRequest, "Lead already handed over to store")
	case errors.Is(err, models.ErrNotCheckedIn):
		jsonError(w, http.StatusBadRequest, "You haven't checked in yet")
	case errors.As(err, &handover):
		jsonError(w, http.StatusBadRequest, handover.Error())
	case errors.As(err, &transition):
		jsonError(w, http.StatusBadRequest, transition.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		jsonError(w, http.StatusBadRequest, "Invalid action")
	case errors.Is(err, models.ErrDuplicate):
		jsonError(w, http.StatusConflict, "Record already exists")
	default:
		logger.Error(fallback, zap.Error(err))
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}

// authError maps auth service errors to responses.
func authError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		jsonError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrMissingToken):
		jsonError(w, http.StatusBadRequest, "Refresh token required")
	case errors.Is(err, auth.ErrInvalidToken):
		jsonError(w, http.StatusUnauthorized, "Refresh token expired or invalid")
	case errors.Is(err, auth.ErrUnknownPrincipal):
		jsonError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrTokenRevoked):
		jsonError(w, http.StatusForbidden, "Invalid refresh token")
	default:
		logger.Error("auth failure", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Authentication failed")
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, true, nil
}

// Timestamp accepts RFC 3339 times as well as bare YYYY-MM-DD dates and
// naive "YYYY-MM-DDTHH:MM:SS" times, the latter two in local time.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02T15:04"}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	if parsed, err := util.ParseDateLocal(s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func nullTime(t *Timestamp) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.Time, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// optional renders a nullable column as JSON null or its value.
func optional(v interface{ Value() (driver.Value, error) }) interface{} {
	val, _ := v.Value()
	return val
}

// principal is the authenticated caller. Routes are wrapped in RequireAuth,
// so it is never nil inside a handler.
func principal(r *http.Request) *auth.Principal {
	return middleware.GetPrincipal(r)
}

// roleTitle turns SALES_EXECUTIVE into "Sales Executive".
func roleTitle(role string) string {
	if role == "" {
		return "Sales Executive"
	}
	words := strings.Split(strings.ToLower(role), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
