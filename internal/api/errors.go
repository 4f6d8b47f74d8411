package api

import (
	"log/slog"
	"net/http"

	"github.com/heimdex/digest-agent/internal/failure"
)

type failureMapping struct {
	status int
	code   string
	// message replaces the error text when set.
	message string
}

var failureStatus = map[failure.Kind]failureMapping{
	failure.KindInvalidURL:       {status: http.StatusBadRequest, code: "INVALID_URL"},
	failure.KindCaptionsDisabled: {status: http.StatusUnprocessableEntity, code: "CAPTIONS_DISABLED"},
	failure.KindNoCaptions:       {status: http.StatusNotFound, code: "NO_CAPTIONS"},
	failure.KindVideoUnavailable: {status: http.StatusNotFound, code: "VIDEO_UNAVAILABLE"},
	failure.KindFetch:            {status: http.StatusBadGateway, code: "FETCH_FAILED"},
	failure.KindSummarization:    {status: http.StatusInternalServerError, code: "SUMMARIZATION_FAILED"},
	failure.KindPersistence:      {status: http.StatusInternalServerError, code: "PERSISTENCE_FAILED", message: "Failed to save to database"},
	failure.KindInternal:         {status: http.StatusInternalServerError, code: "INTERNAL_ERROR", message: "internal server error"},
}

// StatusForKind returns the HTTP status and error code for a failure kind.
func StatusForKind(kind failure.Kind) (int, string) {
	m := mappingFor(kind)
	return m.status, m.code
}

func mappingFor(kind failure.Kind) failureMapping {
	if m, ok := failureStatus[kind]; ok {
		return m
	}
	return failureStatus[failure.KindInternal]
}

// WriteFailure maps err to a response by its failure kind. Server-side
// failures are logged with their cause; their text is not echoed back.
func WriteFailure(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	kind := failure.KindOf(err)
	status, code := StatusForKind(kind)

	msg := failure.Message(err)
	if override := mappingFor(kind).message; override != "" {
		msg = override
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error_kind", kind, "error", err, "request_id", requestID)
	} else {
		logger.Info("request rejected", "error_kind", kind, "error", err, "request_id", requestID)
	}
	WriteError(w, status, msg, code)
}
