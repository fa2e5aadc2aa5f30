// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/pkg/errutil"
)

type messageResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authResponse struct {
	account.Profile
	Token string `json:"token"`
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch account.Classify(err) {
	case account.ClassBadRequest:
		return http.StatusBadRequest
	case account.ClassUnauthorized:
		return http.StatusUnauthorized
	case account.ClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}

// writeError renders err as {"message": ...}. Server errors are logged with
// their oops context; their details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"status", status,
			"code", errutil.Code(err))
	}
	writeJSON(w, status, messageResponse{Message: account.PublicMessage(err)})
}

// decodeJSON reads a JSON object from the body into dst. An empty body
// leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close() //nolint:errcheck // read side

	err := json.NewDecoder(body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return oops.Code("HTTP_BAD_BODY").
		Public("Invalid request body.").
		Wrapf(account.ErrValidation, "decode request body: %v", err)
}
