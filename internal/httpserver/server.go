// Package httpserver wires the HTTP surface: health, the suggestion
// websocket, and the read-only suggestions API.
package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/ws"
)

// Deps carries the server's collaborators.
type Deps struct {
	WS           *ws.Handler
	Events       store.Store
	AuthPassword string
}

// Server bundles the Echo router and its dependencies.
type Server struct {
	Echo   *echo.Echo
	events store.Store
}

// New constructs the configured Echo server with all routes.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{Echo: e, events: deps.Events}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/ws", echo.WrapHandler(http.HandlerFunc(deps.WS.ServeWebSocket)))

	api := e.Group("/api", apiAuth(deps.AuthPassword))
	api.GET("/suggestions", s.listSuggestions)
	api.GET("/suggestions/stats", s.suggestionStats)

	return s
}

func (s *Server) listSuggestions(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	recs, err := s.events.ListByUser(c.Request().Context(), userID, c.QueryParam("session_id"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list suggestions")
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) suggestionStats(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	agg, err := s.events.AggregateByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to aggregate suggestions")
	}
	return c.JSON(http.StatusOK, agg)
}

// apiAuth guards the read API with the shared password. An empty password
// disables the check.
func apiAuth(password string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if password == "" || requestAuthOK(c.Request(), password) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
	}
}

// requestAuthOK accepts ?password=, Authorization: Bearer, or X-Auth-Token.
func requestAuthOK(r *http.Request, password string) bool {
	if q := r.URL.Query().Get("password"); q != "" && q == password {
		return true
	}
	ah := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		if strings.TrimSpace(ah[len("Bearer "):]) == password {
			return true
		}
	}
	if x := r.Header.Get("X-Auth-Token"); x != "" && x == password {
		return true
	}
	return false
}
