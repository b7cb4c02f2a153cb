package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string) {
	writeJSON(w, code, errorResponse{Error: kind})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		writeError(w, http.StatusUnauthorized, "permission_denied")
	case errors.Is(err, common.ErrInvalidConfirmToken):
		writeError(w, http.StatusUnauthorized, "invalid_confirm_token")
	case errors.Is(err, common.ErrUserExists):
		writeError(w, http.StatusConflict, "user_exists")
	case errors.Is(err, common.ErrUnsupportedGrantType):
		writeError(w, http.StatusBadRequest, "unsupported_grant_type")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: s.users.Status(r.Context()).Status})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := api.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	res, err := s.users.Register(r.Context(), services.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.RegisterResponse{ConfirmToken: res.ConfirmToken})
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	req := api.ConfirmRequest{ConfirmToken: r.URL.Query().Get("confirm_token")}
	if err := api.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.users.ConfirmNewUser(r.Context(), req.ConfirmToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.ConfirmResponse{})
}

func (s *HTTPServer) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req := api.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Username:     r.PostForm.Get("username"),
		Password:     r.PostForm.Get("password"),
		RefreshToken: r.PostForm.Get("refresh_token"),
	}
	if err := api.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	res, err := s.users.Token(r.Context(), services.TokenRequest{
		GrantType:    req.GrantType,
		Username:     req.Username,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken:  res.AccessToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
		RefreshToken: res.RefreshToken,
	})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := common.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "permission_denied")
		return
	}

	user, err := s.users.CurrentUser(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.CurrentUserResponse{
		Identifier: user.ID.String(),
		Name:       user.Name,
		Email:      user.Email,
	})
}
