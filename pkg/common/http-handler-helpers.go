package common

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
)

const RequestIdHeader = "X-Request-Id"

// RequestId returns the incoming request id or generates a new one.
func RequestId(r *http.Request) string {
	if id := r.Header.Get(RequestIdHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// JsonHandler answers OPTIONS for CORS, tags the response with a request id
// and hands fn an encoder bound to the response. An error returned by fn is
// only logged; fn is responsible for writing the status.
func JsonHandler(log *zap.Logger, fn func(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		requestId := RequestId(r)
		w.Header().Set(RequestIdHeader, requestId)
		w.Header().Set("Content-Type", "application/json")
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if err := fn(w, r, jsoncompat.NewEncoder(w)); err != nil {
			log.Warn("error handling request", zap.String("request_id", requestId), zap.String("path", r.URL.Path), zap.Error(err))
			return
		}
		log.Debug("request handled", zap.String("request_id", requestId), zap.String("path", r.URL.Path))
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
