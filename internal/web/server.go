// Package web serves the community-facing dashboard: current title
// holders, the 7-day booking grid and the audit log.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"titlekeeper/internal/titles"
	logx "titlekeeper/pkg/logx"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Addr     string
	IconsDir string
}

type Server struct {
	cfg Config
	svc *titles.Service
	log logx.Logger
	e   *echo.Echo
}

type renderer struct {
	tpl *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.tpl.ExecuteTemplate(w, name, data)
}

func New(cfg Config, svc *titles.Service, log logx.Logger) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{tpl: tpl}
	e.Use(middleware.Recover())

	s := &Server{cfg: cfg, svc: svc, log: log, e: e}

	e.GET("/", s.handleDashboard)
	e.GET("/book", s.handleBookForm)
	e.POST("/book", s.handleBookSubmit)
	e.POST("/cancel", s.handleCancel)
	e.GET("/log", s.handleLog)
	if cfg.IconsDir != "" {
		e.Static("/icons", cfg.IconsDir)
	}

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.e.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	// Give a bind failure a moment to surface before declaring success.
	select {
	case err := <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
	}
	s.log.Info("web server started", logx.String("addr", s.cfg.Addr))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
