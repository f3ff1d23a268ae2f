// Package server exposes a Responder over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"flirtbot/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	DefaultAddr       = ":5000"
	indexTemplate     = "index.html"
	shutdownGrace     = 5 * time.Second
	noResponseMessage = "no response"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the chat form and the JSON API.
type Server struct {
	echo      *echo.Echo
	responder domain.Responder
	logger    *slog.Logger
	cfg       Config
}

type renderer struct {
	tmpl *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// greeting opens every chat page.
const greeting = "Assalamualaikum janeman! Choose your language and start flirting..."

type page struct {
	Greeting  string
	Languages []string
	Language  string
	Input     string
	Reply     string
	Found     bool
	Asked     bool
	Error     string
}

type respondRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type respondResponse struct {
	PickupLine string `json:"pickup_line"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string   `json:"status"`
	Languages []string `json:"languages"`
}

// New wires routes and middleware around responder.
func New(responder domain.Responder, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
				logger.LogAttrs(c.Request().Context(), slog.LevelError, "request failed", attrs...)
				return nil
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	s := &Server{echo: e, responder: responder, logger: logger, cfg: cfg}
	e.GET("/", s.getIndex)
	e.POST("/", s.postIndex)
	e.POST("/api/respond", s.postRespond)
	e.GET("/healthz", s.getHealth)
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- s.echo.Start(s.cfg.Addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) newPage(language string) page {
	langs := s.responder.Languages()
	if language == "" && len(langs) > 0 {
		language = langs[0]
	}
	return page{Greeting: greeting, Languages: langs, Language: language}
}

func (s *Server) getIndex(c echo.Context) error {
	return c.Render(http.StatusOK, indexTemplate, s.newPage(""))
}

func (s *Server) postIndex(c echo.Context) error {
	input := c.FormValue("user_input")
	language := c.FormValue("language")
	p := s.newPage(language)
	p.Input = input
	if strings.TrimSpace(input) == "" || language == "" {
		p.Error = "user_input and language are required"
		return c.Render(http.StatusBadRequest, indexTemplate, p)
	}
	p.Asked = true
	p.Reply, p.Found = s.responder.Respond(c.Request().Context(), input, language)
	return c.Render(http.StatusOK, indexTemplate, p)
}

func (s *Server) postRespond(c echo.Context) error {
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" || req.Language == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text and language are required"})
	}
	line, ok := s.responder.Respond(c.Request().Context(), req.Text, req.Language)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: noResponseMessage})
	}
	return c.JSON(http.StatusOK, respondResponse{PickupLine: line})
}

func (s *Server) getHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Languages: s.responder.Languages()})
}
