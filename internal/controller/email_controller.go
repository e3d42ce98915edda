// internal/controller/email_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	appErrors "github.com/Tzelon/thunder-mail/internal/errors"
	"github.com/Tzelon/thunder-mail/internal/middleware"
	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/service"
)

type EmailController struct {
	EmailService *service.EmailService
	Logger       zerolog.Logger
}

// SendEmail accepts a send request for the authenticated org and runs it
// through the pipeline. Request-level failures (validation, template,
// consent, quota) map to client errors; mid-dispatch failures surface in
// the 202 report per destination.
func (c *EmailController) SendEmail(w http.ResponseWriter, r *http.Request) {
	org := middleware.OrgFromContext(r.Context())
	if org == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := c.EmailService.Send(r.Context(), org, &req)
	if err != nil {
		status, message := classifySendError(err)
		if status == http.StatusInternalServerError {
			c.Logger.Error().Err(err).Str("org", org.Domain).Msg("send request failed")
		}
		writeError(w, status, message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(report)
}

func classifySendError(err error) (int, string) {
	var validation *appErrors.ValidationError
	var tmpl *appErrors.TemplateSyntaxError
	var noDest *appErrors.NoValidDestinations
	var quota *appErrors.QuotaExceeded

	switch {
	case errors.As(err, &validation), errors.As(err, &tmpl), errors.As(err, &noDest):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &quota):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "unable to fulfill your request: " + err.Error()
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
