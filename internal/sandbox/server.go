package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/iksnae/hospital-console/internal/api"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Version is reported by the sandbox health endpoint.
const Version = "sandbox"

// Server serves the hospital REST API from a DB.
type Server struct {
	e      *echo.Echo
	db     *DB
	token  string
	logger zerolog.Logger
}

// NewServer builds the API. When token is empty any bearer token is
// accepted, but one must still be sent.
func NewServer(db *DB, token string, logger zerolog.Logger) *Server {
	s := &Server{e: echo.New(), db: db, token: token, logger: logger}
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.Use(recovery(logger))
	s.e.Use(echomw.RequestID())
	s.e.Use(requestLogger(logger))

	s.e.GET("/api/health", s.health)

	g := s.e.Group("/api", s.bearer)
	g.GET("/users", s.listUsers)
	g.GET("/users/:id", s.getUser)
	g.POST("/users", s.createUser)
	g.PUT("/users/:id", s.updateUser)
	g.DELETE("/users/:id", s.deleteUser)

	g.GET("/wards", s.listWards)
	g.GET("/wards/:id", s.getWard)
	g.POST("/wards", s.createWard)
	g.PUT("/wards/:id", s.updateWard)
	g.DELETE("/wards/:id", s.deleteWard)

	g.GET("/beds", s.listBeds)
	g.GET("/beds/:id", s.getBed)
	g.POST("/beds", s.createBed)
	g.PUT("/beds/:id", s.updateBed)
	g.DELETE("/beds/:id", s.deleteBed)

	g.GET("/logs", s.listLogs)
	g.GET("/logs/:id", s.getLog)
	g.DELETE("/logs/:id", s.deleteLog)

	g.POST("/chatbot/message", s.sendMessage)
	g.GET("/chatbot/sessions", s.listSessions)
	g.DELETE("/chatbot/sessions/:id", s.clearSession)
	g.GET("/chatbot/conversations", s.listConversations)
	g.GET("/chatbot/conversations/:id", s.getConversation)
	g.GET("/chatbot/conversations/:id/pdf", s.conversationPDF)
	return s
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)
					logger.Error().
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			evt := logger.Debug()
			if c.Response().Status >= http.StatusInternalServerError {
				evt = logger.Error().Err(err)
			}
			evt.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}

func (s *Server) bearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		if s.token != "" && token != s.token {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		return next(c)
	}
}

// fail maps storage errors onto HTTP errors.
func fail(what string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Version: Version})
}

// Users are wrapped as {"users": [...]} and {"user": {...}}.

func (s *Server) listUsers(c echo.Context) error {
	users, err := s.db.ListUsers()
	if err != nil {
		return fail("users", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

func (s *Server) getUser(c echo.Context) error {
	u, err := s.db.GetUser(c.Param("id"))
	if err != nil {
		return fail("user", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": u})
}

func (s *Server) createUser(c echo.Context) error {
	var in api.UserInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(in.Username) == "" {
		return badRequest("username is required")
	}
	u, err := s.db.CreateUser(in)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return echo.NewHTTPError(http.StatusConflict, "username already exists")
		}
		return fail("user", err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) updateUser(c echo.Context) error {
	var in api.UserInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	u, err := s.db.UpdateUser(c.Param("id"), in)
	if err != nil {
		return fail("user", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": u})
}

func (s *Server) deleteUser(c echo.Context) error {
	if err := s.db.DeleteUser(c.Param("id")); err != nil {
		return fail("user", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Wards are sent bare.

func (s *Server) listWards(c echo.Context) error {
	wards, err := s.db.ListWards()
	if err != nil {
		return fail("wards", err)
	}
	return c.JSON(http.StatusOK, wards)
}

func (s *Server) getWard(c echo.Context) error {
	w, err := s.db.GetWard(c.Param("id"))
	if err != nil {
		return fail("ward", err)
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) createWard(c echo.Context) error {
	var in api.WardInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(in.Name) == "" {
		return badRequest("name is required")
	}
	w, err := s.db.CreateWard(in)
	if err != nil {
		return fail("ward", err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) updateWard(c echo.Context) error {
	var in api.WardInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	w, err := s.db.UpdateWard(c.Param("id"), in)
	if err != nil {
		return fail("ward", err)
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) deleteWard(c echo.Context) error {
	if err := s.db.DeleteWard(c.Param("id")); err != nil {
		return fail("ward", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Beds use a {"data": ...} envelope.

func (s *Server) listBeds(c echo.Context) error {
	beds, err := s.db.ListBeds(api.BedFilter{
		WardID: api.ID(c.QueryParam("ward_id")),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return fail("beds", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": beds, "total": len(beds)})
}

func (s *Server) getBed(c echo.Context) error {
	b, err := s.db.GetBed(c.Param("id"))
	if err != nil {
		return fail("bed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": b})
}

func (s *Server) createBed(c echo.Context) error {
	var in api.BedInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if in.Number == "" || in.WardID == "" {
		return badRequest("bed_number and ward_id are required")
	}
	b, err := s.db.CreateBed(in)
	if err != nil {
		return fail("bed", err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"data": b})
}

func (s *Server) updateBed(c echo.Context) error {
	var in api.BedInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	b, err := s.db.UpdateBed(c.Param("id"), in)
	if err != nil {
		return fail("bed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": b})
}

func (s *Server) deleteBed(c echo.Context) error {
	if err := s.db.DeleteBed(c.Param("id")); err != nil {
		return fail("bed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Logs are wrapped as {"logs": [...]}.

func (s *Server) listLogs(c echo.Context) error {
	f := api.LogFilter{Level: c.QueryParam("level")}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	logs, err := s.db.ListLogs(f)
	if err != nil {
		return fail("logs", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) getLog(c echo.Context) error {
	l, err := s.db.GetLog(c.Param("id"))
	if err != nil {
		return fail("log", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"log": l})
}

func (s *Server) deleteLog(c echo.Context) error {
	if err := s.db.DeleteLog(c.Param("id")); err != nil {
		return fail("log", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Chatbot

func (s *Server) sendMessage(c echo.Context) error {
	var in api.SendMessageRequest
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(in.Message) == "" {
		return badRequest("message is required")
	}

	id := in.SessionID
	if id == "" {
		var err error
		if id, err = s.db.CreateSession(titleFrom(in.Message)); err != nil {
			return fail("session", err)
		}
	} else if ok, err := s.db.SessionExists(id); err != nil {
		return fail("session", err)
	} else if !ok {
		return fail("session", ErrNotFound)
	}

	if err := s.db.AppendMessage(id, "user", in.Message); err != nil {
		return fail("session", err)
	}
	stats, err := s.db.Stats()
	if err != nil {
		return fail("session", err)
	}
	reply := answer(in.Message, stats)
	if err := s.db.AppendMessage(id, "assistant", reply); err != nil {
		return fail("session", err)
	}

	history, err := s.db.Messages(id)
	if err != nil {
		return fail("session", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id":           id,
		"response":             reply,
		"conversation_history": history,
	})
}

func (s *Server) listSessions(c echo.Context) error {
	sessions, err := s.db.Sessions()
	if err != nil {
		return fail("sessions", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) clearSession(c echo.Context) error {
	if err := s.db.DeleteSession(c.Param("id")); err != nil {
		return fail("session", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listConversations(c echo.Context) error {
	sessions, err := s.db.Sessions()
	if err != nil {
		return fail("conversations", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": sessions, "count": len(sessions)})
}

func (s *Server) getConversation(c echo.Context) error {
	id := c.Param("id")
	msgs, err := s.db.Messages(id)
	if err != nil {
		return fail("conversation", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"session_id": id, "messages": msgs})
}

func (s *Server) conversationPDF(c echo.Context) error {
	id := c.Param("id")
	msgs, err := s.db.Messages(id)
	if err != nil {
		return fail("conversation", err)
	}
	title, err := s.db.SessionTitle(id)
	if err != nil || title == "" {
		title = "Conversation " + id
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="conversation-%s.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", renderTranscript(title, msgs))
}
