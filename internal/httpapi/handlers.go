package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"Signalist/internal/auth"
	"Signalist/internal/domain"
	"Signalist/internal/events"
)

const (
	sessionCookie     = "signalist_session"
	sessionContextKey = "session"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type watchlistRequest struct {
	Symbol string `json:"symbol" validate:"required,max=10"`
}

type eventRequest struct {
	Name string `json:"name" validate:"required"`
	Data any    `json:"data"`
}

type userResponse struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Name    string         `json:"name"`
	Profile domain.Profile `json:"profile"`
}

type sessionResponse struct {
	User    userResponse   `json:"user"`
	Session domain.Session `json:"session"`
	Token   string         `json:"token"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) signUp(c echo.Context) error {
	var req auth.SignUp
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.auth.CreateUser(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}

	if s.events != nil {
		s.events.Publish(events.Event{Name: events.UserCreated, Data: res.User})
	}

	s.setSessionCookie(c, res.Token, res.Session.ExpiresAt)
	return c.JSON(http.StatusCreated, toSessionResponse(res))
}

func (s *Server) signIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.auth.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapError(err)
	}

	s.setSessionCookie(c, res.Token, res.Session.ExpiresAt)
	return c.JSON(http.StatusOK, toSessionResponse(res))
}

func (s *Server) signOut(c echo.Context) error {
	if token := sessionToken(c); token != "" {
		if err := s.auth.InvalidateSession(c.Request().Context(), token); err != nil {
			return mapError(err)
		}
	}
	s.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) session(c echo.Context) error {
	return c.JSON(http.StatusOK, currentSession(c))
}

func (s *Server) getNews(c echo.Context) error {
	var symbols []string
	for _, sym := range strings.Split(c.QueryParam("symbols"), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}

	articles, err := s.news.GetNews(c.Request().Context(), symbols)
	if err != nil {
		return mapError(err)
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": articles})
}

func (s *Server) listWatchlist(c echo.Context) error {
	symbols, err := s.watchlists.SymbolsForUser(c.Request().Context(), currentSession(c).UserID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"symbols": symbols})
}

func (s *Server) addToWatchlist(c echo.Context) error {
	var req watchlistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	symbol, err := s.watchlists.Add(c.Request().Context(), currentSession(c).UserID, req.Symbol)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"symbol": symbol})
}

func (s *Server) removeFromWatchlist(c echo.Context) error {
	if err := s.watchlists.Remove(c.Request().Context(), currentSession(c).UserID, c.Param("symbol")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) publishEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	name := events.Name(req.Name)
	if !events.Known(name) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown event")
	}
	// user.created carries a domain.User and is only raised by sign-up.
	if name == events.UserCreated {
		return echo.NewHTTPError(http.StatusForbidden, "event cannot be raised externally")
	}
	if s.events == nil {
		return mapError(domain.ErrNotConfigured)
	}

	s.events.Publish(events.Event{Name: name, Data: req.Data})
	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted", "event": req.Name})
}

// requireSession resolves the caller's session from the cookie or a bearer
// header and stores it on the context.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		sess, err := s.auth.CurrentSession(c.Request().Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrSessionExpired) {
				s.clearSessionCookie(c)
			}
			return mapError(err)
		}
		c.Set(sessionContextKey, sess)
		return next(c)
	}
}

func currentSession(c echo.Context) domain.Session {
	sess, _ := c.Get(sessionContextKey).(domain.Session)
	return sess
}

func sessionToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (s *Server) setSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSessionResponse(res auth.Result) sessionResponse {
	return sessionResponse{
		User: userResponse{
			ID:      res.User.ID,
			Email:   res.User.Email,
			Name:    res.User.Name,
			Profile: res.User.Profile(),
		},
		Session: res.Session,
		Token:   res.Token,
	}
}

// mapError converts service errors into HTTP errors.
func mapError(err error) error {
	var (
		validationErrs validator.ValidationErrors
		fetchErr       *domain.NewsFetchError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrSessionExpired.Error())
	case errors.Is(err, domain.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, domain.ErrUserExists.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service not configured")
	case errors.As(err, &validationErrs), errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr):
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch news")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
