// internal/handler/tracking_handler.go
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

// now is stubbed in tests.
var now = time.Now

// trackingPixel is a fixed 1x1 transparent GIF.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandler serves the endpoints recipients hit from inside an email:
// the open pixel, click-through redirects and the unsubscribe link. Every
// endpoint answers success whether or not the tracking id resolves, so an
// unknown id leaks nothing to the caller.
type TrackingHandler struct {
	Activities  repository.ActivityRepositoryInterface
	Subscribers repository.SubscriberRepositoryInterface
	Logger      zerolog.Logger
}

// Unsubscribe flips the recipient's subscriber flag and records the action
// on the activity history.
func (h *TrackingHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")

	activity, err := h.Activities.GetByTrackingID(trackingID)
	if err != nil {
		h.Logger.Error().Err(err).Str("tracking_id", trackingID).Msg("unsubscribe lookup failed")
	}
	if activity != nil {
		if err := h.Subscribers.Unsubscribe(activity.OrgID, activity.Recipient); err != nil {
			h.Logger.Error().Err(err).Str("recipient", activity.Recipient).Msg("unsubscribe update failed")
		}
		h.appendHistory(trackingID, model.HistoryEntry{
			Status:     model.StatusUnsubscribe,
			OccurredAt: now(),
		})
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("unsubscribed successfully from this email list"))
}

// TrackOpen records an open and always returns the pixel. Repeated opens
// each append a new history row; the opened flag only ever goes true.
func (h *TrackingHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")

	if activity := h.getActivity(trackingID); activity != nil {
		h.appendHistory(trackingID, model.HistoryEntry{
			Status:     model.StatusOpened,
			OccurredAt: now(),
			Meta:       map[string]any{"userAgent": r.UserAgent()},
		})
		if err := h.Activities.SetOpened(trackingID); err != nil {
			h.Logger.Error().Err(err).Str("tracking_id", trackingID).Msg("set opened failed")
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", strconv.Itoa(len(trackingPixel)))
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// ClickThrough records the click and redirects to the original target,
// normalizing scheme-less URLs to https.
func (h *TrackingHandler) ClickThrough(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")
	target := r.URL.Query().Get("url")

	if activity := h.getActivity(trackingID); activity != nil {
		h.appendHistory(trackingID, model.HistoryEntry{
			Status:     model.StatusClicked,
			OccurredAt: now(),
			Meta:       map[string]any{"userAgent": r.UserAgent(), "url": target},
		})
		if err := h.Activities.SetClicked(trackingID); err != nil {
			h.Logger.Error().Err(err).Str("tracking_id", trackingID).Msg("set clicked failed")
		}
	}

	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func (h *TrackingHandler) getActivity(trackingID string) *model.Activity {
	activity, err := h.Activities.GetByTrackingID(trackingID)
	if err != nil {
		h.Logger.Error().Err(err).Str("tracking_id", trackingID).Msg("activity lookup failed")
		return nil
	}
	return activity
}

func (h *TrackingHandler) appendHistory(trackingID string, entry model.HistoryEntry) {
	if err := h.Activities.AppendHistory(trackingID, entry); err != nil {
		h.Logger.Error().Err(err).Str("tracking_id", trackingID).Msg("append history failed")
	}
}
