package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/relaykit/pkg/dispatch"
	"github.com/dmitrymomot/relaykit/pkg/subscription"
)

// Handle returns the module's HTTP surface, ready to mount:
//
//	r := chi.NewRouter()
//	r.Mount("/", relaySvc.Handle())
//
// Routes:
//
//	POST   /devices        register a device or web push subscription
//	DELETE /devices        deregister by user id or subscription id
//	GET    /devices        list registered devices
//	POST   /notifications  send a notification
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/devices", s.handleRegister)
	r.Delete("/devices", s.handleDeregister)
	r.Get("/devices", s.handleListDevices)
	r.Post("/notifications", s.handleSend)

	return r
}

// registerPayload accepts both snake_case and camelCase field names, since
// the iOS and browser clients historically disagreed on the wire casing.
type registerPayload struct {
	UserID      string         `json:"user_id"`
	DeviceToken string         `json:"device_token"`
	BundleID    string         `json:"bundle_id"`
	Platform    string         `json:"platform"`
	WebPush     *webPushTarget `json:"subscription"`
}

type webPushTarget struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (p *registerPayload) UnmarshalJSON(data []byte) error {
	type alias registerPayload
	var aux struct {
		alias
		UserIDAlt      string         `json:"userId"`
		DeviceTokenAlt string         `json:"deviceToken"`
		BundleIDAlt    string         `json:"bundleId"`
		WebPushAlt     *webPushTarget `json:"webpush"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = registerPayload(aux.alias)
	if p.UserID == "" {
		p.UserID = aux.UserIDAlt
	}
	if p.DeviceToken == "" {
		p.DeviceToken = aux.DeviceTokenAlt
	}
	if p.BundleID == "" {
		p.BundleID = aux.BundleIDAlt
	}
	if p.WebPush == nil {
		p.WebPush = aux.WebPushAlt
	}
	return nil
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	params := RegisterParams{
		UserID:      payload.UserID,
		DeviceToken: payload.DeviceToken,
		BundleID:    payload.BundleID,
		Platform:    payload.Platform,
	}
	if payload.WebPush != nil {
		params.WebPush = &WebPushTarget{
			Endpoint: payload.WebPush.Endpoint,
			P256dh:   payload.WebPush.Keys.P256dh,
			Auth:     payload.WebPush.Keys.Auth,
		}
	}

	sub, err := s.Register(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Device registered successfully",
		"subscription": sub,
	})
}

// deregisterPayload accepts the selector in the body; query parameters of
// the same names take precedence so clients without DELETE bodies work too.
type deregisterPayload struct {
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (s *Service) handleDeregister(w http.ResponseWriter, r *http.Request) {
	var payload deregisterPayload
	if r.Body != nil {
		// An empty or absent body is fine, the query may carry the selector
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		payload.UserID = v
	}
	if v := r.URL.Query().Get("subscription_id"); v != "" {
		payload.SubscriptionID = v
	}

	removed, err := s.Deregister(r.Context(), DeregisterParams{
		UserID:         payload.UserID,
		SubscriptionID: payload.SubscriptionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Device deregistered successfully",
		"removed": removed,
	})
}

func (s *Service) handleListDevices(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}

	devices, err := s.ListDevices(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if devices == nil {
		devices = []subscription.Subscription{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"total":   len(devices),
	})
}

// sendPayload accepts both snake_case and camelCase selector names.
type sendPayload struct {
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data"`
	UserID         string         `json:"user_id"`
	SubscriptionID string         `json:"subscription_id"`
	DeviceToken    string         `json:"device_token"`
}

func (p *sendPayload) UnmarshalJSON(data []byte) error {
	type alias sendPayload
	var aux struct {
		alias
		Message           string `json:"message"`
		UserIDAlt         string `json:"userId"`
		SubscriptionIDAlt string `json:"subscriptionId"`
		DeviceTokenAlt    string `json:"deviceToken"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = sendPayload(aux.alias)
	if p.Body == "" {
		// Legacy clients send the body as "message"
		p.Body = aux.Message
	}
	if p.UserID == "" {
		p.UserID = aux.UserIDAlt
	}
	if p.SubscriptionID == "" {
		p.SubscriptionID = aux.SubscriptionIDAlt
	}
	if p.DeviceToken == "" {
		p.DeviceToken = aux.DeviceTokenAlt
	}
	return nil
}

// sendResultEntry is the per-target outcome row in the send response.
type sendResultEntry struct {
	OwnerID        string `json:"owner_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Status         string `json:"status"`
	MessageID      string `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload sendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := s.Send(r.Context(), SendParams{
		Title:          payload.Title,
		Body:           payload.Body,
		Data:           payload.Data,
		UserID:         payload.UserID,
		SubscriptionID: payload.SubscriptionID,
		DeviceToken:    payload.DeviceToken,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Notifications sent",
		"total":      result.Total,
		"successful": result.Sent,
		"failed":     result.Failed,
		"results":    resultEntries(result),
	})
}

func resultEntries(result dispatch.Result) []sendResultEntry {
	entries := make([]sendResultEntry, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		entry := sendResultEntry{
			OwnerID:        o.OwnerID,
			SubscriptionID: o.SubscriptionID,
			Endpoint:       o.Endpoint,
			MessageID:      o.MessageID,
		}
		if o.OK {
			entry.Status = "sent"
		} else {
			entry.Status = "failed"
			if o.Err != nil {
				entry.Error = o.Err.Error()
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// writeServiceError maps service errors onto HTTP statuses: validation
// failures are 400, empty target resolution is 404, everything else is a
// server-side 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrExactlyOneTarget),
		errors.Is(err, ErrMissingSelector),
		errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrBodyRequired),
		errors.Is(err, subscription.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, ErrNoTargets),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, map[string]any{
		"message": message,
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
