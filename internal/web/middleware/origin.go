package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/JonMunkholm/dataproc/internal/logging"
)

// Origin rejection reasons.
const (
	ReasonMissingSender = "missing sender frame"
	ReasonMalicious     = "malicious event"
)

// ValidateOrigin returns middleware that accepts a request only when its
// sender origin is one of allowed. The sender is taken from the Origin
// header, falling back to the Referer. Rejected requests get 403 and never
// reach next.
func ValidateOrigin(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if n := normalizeOrigin(o); n != "" {
			set[n] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := CheckOrigin(r, set); err != nil {
				logging.FromContext(r.Context()).Warn("origin: rejected message",
					"path", r.URL.Path,
					"origin", err.Origin,
					"reason", err.Reason,
					"remote_addr", r.RemoteAddr,
				)
				writeRejection(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin validates the sender of r against the normalized allow set.
func CheckOrigin(r *http.Request, allowed map[string]struct{}) *core.OriginValidationError {
	origin := senderOrigin(r)
	if origin == "" {
		return &core.OriginValidationError{Reason: ReasonMissingSender}
	}
	if _, ok := allowed[origin]; !ok {
		return &core.OriginValidationError{Origin: origin, Reason: ReasonMalicious}
	}
	return nil
}

// senderOrigin returns the normalized origin of the sending page. The
// literal "null" sent by sandboxed or file pages is treated as present but
// never matches an allowed origin.
func senderOrigin(r *http.Request) string {
	if o := strings.TrimSpace(r.Header.Get("Origin")); o != "" {
		if o == "null" {
			return o
		}
		if n := normalizeOrigin(o); n != "" {
			return n
		}
		return o
	}
	if ref := strings.TrimSpace(r.Header.Get("Referer")); ref != "" {
		if n := normalizeOrigin(ref); n != "" {
			return n
		}
		return ref
	}
	return ""
}

// normalizeOrigin reduces a URL to its lower-cased scheme://host[:port].
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func writeRejection(w http.ResponseWriter, err *core.OriginValidationError) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   err.Reason,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
