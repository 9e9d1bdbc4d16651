// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greatwyrm/greatwyrm/internal/auth"
	"github.com/greatwyrm/greatwyrm/internal/observability"
	"github.com/greatwyrm/greatwyrm/pkg/errutil"
)

type loginRequest struct {
	Name string `json:"name"`
	Pass string `json:"pass"`
}

type versionResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type whoamiResponse struct {
	ID    uint64    `json:"id"`
	Name  string    `json:"name"`
	Role  uint8     `json:"role"`
	Added time.Time `json:"added"`
}

// handleLogin authenticates the caller and sets the sealed token
// cookie. A request carrying a still-valid cookie short-circuits to
// 200 without a new cookie and without a password check. Unknown name
// and wrong password are the same 401.
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	// An unreadable presented cookie is treated as no cookie at all:
	// the password path below decides the outcome.
	presented := s.presentedToken(c)

	result, err := s.auth.Login(c.Request().Context(), req.Name, req.Pass, presented)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			errutil.LogDebug(s.logger, "login rejected", err)
			s.metrics.RecordLogin(observability.OutcomeUnauthorized)
			return c.NoContent(http.StatusUnauthorized)
		}
		errutil.LogError(s.logger, "login failed", err)
		s.metrics.RecordLogin(observability.OutcomeFailure)
		return c.NoContent(http.StatusInternalServerError)
	}

	if result.AlreadyValid {
		s.metrics.RecordLogin(observability.OutcomeAlreadyValid)
		return c.NoContent(http.StatusOK)
	}

	sealed, err := s.sealer.Seal(result.Token)
	if err != nil {
		errutil.LogError(s.logger, "failed to seal login token", err)
		s.metrics.RecordLogin(observability.OutcomeFailure)
		return c.NoContent(http.StatusInternalServerError)
	}

	c.SetCookie(s.tokenCookie(sealed, int(auth.TokenValidMinutes)*60))
	s.metrics.RecordLogin(observability.OutcomeAuthorized)
	s.logger.Info("user logged in", "user_id", result.User.ID, "name", result.User.Name)
	return c.NoContent(http.StatusOK)
}

// handleLogout clears the token cookie. Sessions are client-held, so
// discarding the cookie is the whole logout; there is nothing to
// revoke server-side.
func (s *Server) handleLogout(c echo.Context) error {
	c.SetCookie(s.tokenCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

// handleVersion reports the server identity.
func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, versionResponse{Name: "greatwyrm", Version: s.version})
}

// handleWhoami returns the authenticated user, as established by
// RequireAuth.
func (s *Server) handleWhoami(c echo.Context) error {
	user, ok := UserFromContext(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, whoamiResponse{
		ID:    user.ID,
		Name:  user.Name,
		Role:  uint8(user.Role),
		Added: user.Added,
	})
}

// presentedToken extracts and unseals the token cookie, returning ""
// when the cookie is absent or unreadable.
func (s *Server) presentedToken(c echo.Context) string {
	cookie, err := c.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	token, err := s.sealer.Open(cookie.Value)
	if err != nil {
		errutil.LogDebug(s.logger, "could not unseal presented cookie", err)
		return ""
	}
	return token
}

// tokenCookie builds the login token cookie. maxAge < 0 clears it.
func (s *Server) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
