// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/greatwyrm/greatwyrm/internal/auth"
	"github.com/greatwyrm/greatwyrm/internal/observability"
	"github.com/greatwyrm/greatwyrm/pkg/errutil"
)

// userContextKey is the echo context key holding the authenticated
// *auth.User.
const userContextKey = "greatwyrm.user"

// UserFromContext returns the authenticated user injected by
// RequireAuth.
func UserFromContext(c echo.Context) (*auth.User, bool) {
	user, ok := c.Get(userContextKey).(*auth.User)
	return user, ok
}

// RequireAuth resolves the sealed token cookie to the authoritative
// user record and injects it into the request context. A missing,
// unsealable, or semantically invalid token is a 401; a validation
// that could not complete (store failure) is a 500. Invalid tokens are
// diagnostic traces, never error-level log entries.
func (s *Server) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(TokenCookieName)
			if err != nil {
				s.metrics.RecordTokenCheck(observability.OutcomeRejected)
				return echo.NewHTTPError(http.StatusUnauthorized, "no '"+TokenCookieName+"' cookie given")
			}

			token, err := s.sealer.Open(cookie.Value)
			if err != nil {
				errutil.LogDebug(s.logger, "rejecting unsealable cookie", err)
				s.metrics.RecordTokenCheck(observability.OutcomeRejected)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid '"+TokenCookieName+"' cookie given")
			}

			user, err := s.auth.CheckToken(c.Request().Context(), token)
			if err != nil {
				if _, ok := auth.AsTokenRejected(err); ok {
					errutil.LogDebug(s.logger, "rejecting invalid login token", err)
					s.metrics.RecordTokenCheck(observability.OutcomeRejected)
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid '"+TokenCookieName+"' cookie given")
				}
				errutil.LogError(s.logger, "failed to check login token", err)
				s.metrics.RecordTokenCheck(observability.OutcomeError)
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to check '"+TokenCookieName+"' cookie")
			}

			s.metrics.RecordTokenCheck(observability.OutcomeValid)
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}
