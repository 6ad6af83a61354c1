package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"umatools/pkg/log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10

	// DefaultAddr is where the handbook is served when no address is given.
	DefaultAddr = "localhost:54348"
)

// ErrHandbookNotFound is returned when the handbook page has not been generated.
var ErrHandbookNotFound = errors.New("handbook not found; generate it with the dump command")

// HandbookServer serves the output tree read-only.
type HandbookServer struct {
	root     string
	handbook string
	echo     *echo.Echo
}

// NewHandbookServer serves files under root. handbook is the page, relative
// to root with forward slashes, that "/" redirects to. It must exist.
func NewHandbookServer(root, handbook string) (*HandbookServer, error) {
	handbookPath := filepath.Join(root, filepath.FromSlash(handbook))
	if info, err := os.Stat(handbookPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrHandbookNotFound, handbookPath)
	}

	hs := &HandbookServer{
		root:     root,
		handbook: path.Clean("/" + handbook),
		echo:     echo.New(),
	}
	hs.setupRoutes()
	return hs, nil
}

// URL returns the handbook address for addr.
func (hs *HandbookServer) URL(addr string) string {
	return "http://" + addr + hs.handbook
}

// Handler exposes the router for tests and embedding.
func (hs *HandbookServer) Handler() http.Handler {
	return hs.echo
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (hs *HandbookServer) Start(addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("root", hs.root).
			Str("url", hs.URL(addr)).
			Msg("Starting handbook server")

		if err := hs.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server startup failed")
		return err
	case <-quit:
	}
	return hs.Shutdown()
}

// Shutdown stops the server, waiting up to ten seconds for open requests.
func (hs *HandbookServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := hs.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (hs *HandbookServer) setupRoutes() {
	hs.echo.HideBanner = true
	hs.echo.HidePort = true
	hs.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	hs.echo.Use(middleware.Recover())

	hs.echo.GET("/", hs.redirectHandbook)
	hs.echo.GET("/*", hs.serveFile)
}

func (hs *HandbookServer) redirectHandbook(ctx echo.Context) error {
	return ctx.Redirect(http.StatusFound, hs.handbook)
}

func (hs *HandbookServer) serveFile(ctx echo.Context) error {
	// Clean against "/" so the result can never climb above root.
	requested := path.Clean("/" + ctx.Param("*"))
	filePath := filepath.Join(hs.root, filepath.FromSlash(requested))

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		log.Warn().Str("path", requested).Msg("Requested file not found")
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	}

	return ctx.File(filePath)
}
