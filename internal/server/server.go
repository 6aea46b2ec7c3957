// Package server is the browser UI and JSON API in front of the pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Asker answers one question
type Asker interface {
	AskWithOptions(ctx context.Context, question string, opts pipeline.Options) (*model.Answer, error)
}

// Server serves the ask form, the JSON API, health and metrics
type Server struct {
	echo       *echo.Echo
	asker      Asker
	renderer   *pipeline.Renderer
	logger     *zap.Logger
	askTimeout time.Duration
}

// New creates a server. askTimeout bounds each question (0 means no bound).
func New(asker Asker, askTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		asker:      asker,
		renderer:   pipeline.NewRenderer(),
		logger:     logger,
		askTimeout: askTimeout,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	e.HTTPErrorHandler = s.handleError

	e.GET("/", s.index)
	e.POST("/ask", s.askForm)
	e.GET("/api/ask", s.askAPI)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) index(c echo.Context) error {
	return s.page(c, http.StatusOK, pipeline.PageData{ShowForm: true, Mode: model.ModeBoth})
}

func (s *Server) askForm(c echo.Context) error {
	question := strings.TrimSpace(c.FormValue("q"))
	debug := c.FormValue("debug") != ""
	data := pipeline.PageData{Question: question, ShowForm: true, ShowDebug: debug, Mode: model.ModeBoth}

	mode, err := model.ParseMode(c.FormValue("mode"))
	if err != nil {
		data.Error = err.Error()
		return s.page(c, http.StatusBadRequest, data)
	}
	data.Mode = mode

	if question == "" {
		data.Error = "Please enter a question."
		return s.page(c, http.StatusBadRequest, data)
	}

	answer, err := s.ask(c, question, pipeline.Options{Mode: mode, Debug: debug})
	if err != nil {
		data.Error = err.Error()
		return s.page(c, http.StatusInternalServerError, data)
	}
	data.Answer = answer
	return s.page(c, http.StatusOK, data)
}

func (s *Server) askAPI(c echo.Context) error {
	question := strings.TrimSpace(c.QueryParam("q"))
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing q parameter")
	}
	mode, err := model.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	answer, err := s.ask(c, question, pipeline.Options{Mode: mode, Debug: c.QueryParam("debug") != ""})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) ask(c echo.Context, question string, opts pipeline.Options) (*model.Answer, error) {
	ctx := c.Request().Context()
	if s.askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.askTimeout)
		defer cancel()
	}
	return s.asker.AskWithOptions(ctx, question, opts)
}

func (s *Server) page(c echo.Context, status int, data pipeline.PageData) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return s.renderer.WritePage(c.Response(), data)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger.Info("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= 500 {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
