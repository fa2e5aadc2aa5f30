// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/mail"
	"github.com/accountd/accountd/internal/observability"
)

// Response messages.
const (
	msgHome            = "accountd is running"
	msgLoggedOut       = "Successfully logged out."
	msgPasswordChanged = "password changed successful"
	msgResetSent       = "Reset Email Sent."
	msgResetDone       = "Password Reset Successful, Please Login."
)

type handler struct {
	svc     AccountService
	cookie  CookieOptions
	metrics *observability.Metrics
	logger  *slog.Logger
	maxBody int64
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *handler) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msgHome})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	h.metrics.RecordEvent(observability.EventRegister, err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.startSession(w, http.StatusCreated, result)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	h.metrics.RecordEvent(observability.EventLogin, err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.startSession(w, http.StatusOK, result)
}

func (h *handler) startSession(w http.ResponseWriter, status int, result *account.AuthResult) {
	http.SetCookie(w, h.cookie.session(result.Token, result.ExpiresAt))
	writeJSON(w, status, authResponse{Profile: result.User.Profile(), Token: result.Token})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	h.metrics.RecordEvent(observability.EventLogout, nil)
	http.SetCookie(w, h.cookie.cleared())
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLoggedOut})
}

func (h *handler) loginStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.LoginStatus(h.cookie.sessionToken(r)))
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, r, h.logger, oops.Code("HTTP_NO_USER").Wrap(account.ErrUnauthorized))
		return
	}
	profile, err := h.svc.Profile(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, r, h.logger, oops.Code("HTTP_NO_USER").Wrap(account.ErrUnauthorized))
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), user.ID, account.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
		Phone: req.Phone,
		Bio:   req.Bio,
	})
	h.metrics.RecordEvent(observability.EventProfileUpdate, err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, r, h.logger, oops.Code("HTTP_NO_USER").Wrap(account.ErrUnauthorized))
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword)
	h.metrics.RecordEvent(observability.EventPasswordChange, err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: msgPasswordChanged})
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	err := h.svc.ForgotPassword(r.Context(), req.Email)
	h.metrics.RecordEvent(observability.EventResetRequest, err)
	if errors.Is(err, account.ErrEmailDelivery) {
		observability.RecordMailFailure(mail.ResetTag)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: msgResetSent})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "resetToken"), req.Password)
	h.metrics.RecordEvent(observability.EventResetComplete, err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: msgResetDone})
}
