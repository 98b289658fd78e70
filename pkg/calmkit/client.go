// Package calmkit is the public entry point: a Client wiring a joint layout,
// the observation encoder and a model/library store.
package calmkit

import (
	"context"
	"fmt"
	"sync"

	"calmkit/internal/latent"
	"calmkit/internal/mlpcodec"
	"calmkit/internal/model"
	"calmkit/internal/motion"
	"calmkit/internal/nn"
	"calmkit/internal/observe"
	"calmkit/internal/server"
	"calmkit/internal/skeleton"
	"calmkit/internal/storage"
)

type Options struct {
	StoreKind  string
	DBPath     string
	LayoutPath string
}

type Client struct {
	store   storage.Store
	layout  *skeleton.Layout
	encoder *observe.Encoder

	initMu      sync.Mutex
	initialized bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = storage.DefaultDBPath()
	}

	layout := skeleton.Default()
	if opts.LayoutPath != "" {
		l, err := skeleton.LoadLayout(opts.LayoutPath)
		if err != nil {
			return nil, err
		}
		layout = l
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		layout:  layout,
		encoder: observe.NewEncoder(layout),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Layout() *skeleton.Layout { return c.layout }

func (c *Client) Encoder() *observe.Encoder { return c.encoder }

func (c *Client) ensureStore(ctx context.Context) (storage.Store, error) {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if !c.initialized {
		if err := c.store.Init(ctx); err != nil {
			return nil, err
		}
		c.initialized = true
	}
	return c.store, nil
}

// Encode runs the observation encoder on one frame pair.
func (c *Client) Encode(cur, prev *model.Frame, dt float64) ([]float32, error) {
	return c.encoder.Encode(cur, prev, dt)
}

// LoadClip reads a clip file against the client's layout.
func (c *Client) LoadClip(path string) (*motion.Clip, error) {
	return motion.LoadClip(path, c.layout)
}

// EncodeClip returns one observation per frame of the clip at path.
func (c *Client) EncodeClip(path string) ([][]float32, error) {
	clip, err := c.LoadClip(path)
	if err != nil {
		return nil, err
	}
	return clip.Observations(c.encoder)
}

// ImportModel reads a weight file and stores it under name.
func (c *Client) ImportModel(ctx context.Context, name, path string) (model.ModelRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return model.ModelRecord{}, err
	}
	net, format, err := mlpcodec.ReadFile(path)
	if err != nil {
		return model.ModelRecord{}, err
	}
	record, err := storage.NewModelRecord(name, net, format)
	if err != nil {
		return model.ModelRecord{}, err
	}
	if err := store.SaveModel(ctx, record); err != nil {
		return model.ModelRecord{}, err
	}
	return record, nil
}

// Model returns the decoded network stored under name.
func (c *Client) Model(ctx context.Context, name string) (*nn.Network, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	record, ok, err := store.GetModel(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("model not found: %s", name)
	}
	return storage.DecodeModel(record)
}

func (c *Client) Models(ctx context.Context) ([]model.ModelRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListModels(ctx)
}

// Forward evaluates the stored model name on x.
func (c *Client) Forward(ctx context.Context, name string, x []float32) ([]float32, error) {
	net, err := c.Model(ctx, name)
	if err != nil {
		return nil, err
	}
	return net.Forward(x)
}

// ImportLibrary reads a library file and stores it under name.
func (c *Client) ImportLibrary(ctx context.Context, name, path string) (model.LibraryRecord, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return model.LibraryRecord{}, err
	}
	lib, err := latent.Load(path)
	if err != nil {
		return model.LibraryRecord{}, err
	}
	record, err := storage.NewLibraryRecord(name, lib)
	if err != nil {
		return model.LibraryRecord{}, err
	}
	if err := store.SaveLibrary(ctx, record); err != nil {
		return model.LibraryRecord{}, err
	}
	return record, nil
}

func (c *Client) Library(ctx context.Context, name string) (*latent.Library, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	record, ok, err := store.GetLibrary(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("library not found: %s", name)
	}
	return storage.Library(record), nil
}

func (c *Client) Libraries(ctx context.Context) ([]string, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListLibraries(ctx)
}

// Server builds the HTTP surface over the client's store and layout.
// library names the default latent library.
func (c *Client) Server(ctx context.Context, library string) (*server.Server, error) {
	store, err := c.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{Store: store, Layout: c.layout, Library: library}), nil
}
