package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
)

// envelope is the body of every response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   bool   `json:"error"`
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Message: msg, Data: data})
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return common.Validation("Invalid request body")
	}
	return nil
}

// statusOf maps an error kind to its response status.
func statusOf(kind common.Kind) int {
	switch kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindAuth:
		return http.StatusUnauthorized
	case common.KindAccessDenied:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	case common.KindRateLimited:
		return http.StatusTooManyRequests
	case common.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope. Unclassified errors are logged with
// a millisecond timestamp that is also returned to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status := statusOf(kind)
	ctx := r.Context()

	switch kind {
	case common.KindValidation, common.KindConflict:
		fields := common.FieldsOf(err)
		if fields == nil {
			fields = []common.FieldError{}
		}
		writeJSON(w, status, envelope{Message: common.PublicMessage(err), Data: fields, Error: true})
	case common.KindUnknown:
		ts := strconv.FormatInt(s.now().UnixMilli(), 10)
		s.logger.Error(ctx, "request failed", "request_id", requestIDFrom(ctx), "time_error", ts, "error", err)
		writeJSON(w, status, envelope{Message: common.UnknownErrorMessage + ts, Error: true})
	default:
		if kind == common.KindTransient {
			s.logger.Warn(ctx, "transient failure", "request_id", requestIDFrom(ctx), "error", err)
		}
		msg := common.PublicMessage(err)
		if msg == "" {
			msg = http.StatusText(status)
		}
		writeJSON(w, status, envelope{Message: msg, Error: true})
	}
}

func page(r *http.Request) services.Page {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return services.Page(n)
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Validation("Invalid id", common.FieldError{Path: field, Message: "Invalid value"})
	}
	return id, nil
}
