// Package server exposes the observation encoder, stored weight files and
// latent libraries over HTTP.
package server

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"calmkit/internal/log"
	"calmkit/internal/nn"
	"calmkit/internal/observe"
	"calmkit/internal/skeleton"
	"calmkit/internal/storage"
)

// DefaultLibrary is the library name used when a request does not name one.
const DefaultLibrary = "default"

type Config struct {
	Store   storage.Store
	Layout  *skeleton.Layout
	Library string
}

// Server is the inference HTTP surface.
type Server struct {
	app     *fiber.App
	store   storage.Store
	layout  *skeleton.Layout
	encoder *observe.Encoder
	library string

	// Decoded networks keyed by model name, invalidated when the stored ID changes.
	netsMu sync.RWMutex
	nets   map[string]cachedNetwork
}

type cachedNetwork struct {
	id  string
	net *nn.Network
}

func New(cfg Config) *Server {
	layout := cfg.Layout
	if layout == nil {
		layout = skeleton.Default()
	}
	library := cfg.Library
	if library == "" {
		library = DefaultLibrary
	}
	s := &Server{
		store:   cfg.Store,
		layout:  layout,
		encoder: observe.NewEncoder(layout),
		library: library,
		nets:    make(map[string]cachedNetwork),
	}

	app := fiber.New(fiber.Config{
		AppName:               "calmkit",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	v1 := app.Group("/v1")
	v1.Get("/layout", s.handleLayout)
	v1.Post("/observe", s.handleObserve)
	v1.Get("/models", s.handleListModels)
	v1.Post("/models/:name/forward", s.handleForward)
	v1.Get("/library/behaviors", s.handleBehaviors)
	v1.Post("/library/nearest", s.handleNearest)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(addr) }()
	log.Info("serving", "addr", addr, "layout", s.layout.Name(), "library", s.library)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.Shutdown()
	}
}
