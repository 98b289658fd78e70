package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"calmkit/internal/log"
	"calmkit/internal/server"
	"calmkit/internal/storage"
	"calmkit/pkg/calmkit"
)

func runStorePut(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("store-put", flag.ContinueOnError)
	name := fs.String("name", "", "record name")
	modelPath := fs.String("model", "", "weight file to store")
	libraryPath := fs.String("library", "", "library file to store")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("store-put requires --name")
	}
	if (*modelPath == "") == (*libraryPath == "") {
		return errors.New("store-put requires exactly one of --model or --library")
	}

	client, err := calmkit.New(calmkit.Options{StoreKind: *sf.kind, DBPath: *sf.dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *modelPath != "" {
		record, err := client.ImportModel(ctx, *name, *modelPath)
		if err != nil {
			return err
		}
		fmt.Printf("stored model=%s id=%s format=%s input=%d output=%d store=%s\n",
			record.Name, record.ID, record.Format, record.InputDim, record.OutputDim, *sf.kind)
		return nil
	}
	record, err := client.ImportLibrary(ctx, *name, *libraryPath)
	if err != nil {
		return err
	}
	fmt.Printf("stored library=%s behaviors=%d latent_dim=%d store=%s\n", record.Name, len(record.Behaviors), record.LatentDim, *sf.kind)
	return nil
}

func runStoreList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("store-list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit listing as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	models, err := store.ListModels(ctx)
	if err != nil {
		return err
	}
	libraries, err := store.ListLibraries(ctx)
	if err != nil {
		return err
	}

	if *jsonOut {
		infos := make([]server.ModelInfo, 0, len(models))
		for _, m := range models {
			infos = append(infos, server.ModelInfo{ID: m.ID, Name: m.Name, Format: m.Format, InputDim: m.InputDim, OutputDim: m.OutputDim, Bytes: len(m.Data)})
		}
		return printJSON(map[string]any{"models": infos, "libraries": libraries})
	}
	if len(models) == 0 && len(libraries) == 0 {
		fmt.Println("store is empty")
		return nil
	}
	for _, m := range models {
		fmt.Printf("model=%s id=%s format=%s input=%d output=%d bytes=%d\n", m.Name, m.ID, m.Format, m.InputDim, m.OutputDim, len(m.Data))
	}
	for _, name := range libraries {
		fmt.Printf("library=%s\n", name)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional serve config YAML path")
	addr := fs.String("addr", ":8080", "listen address")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", storage.DefaultDBPath(), "sqlite database path")
	layoutPath := fs.String("layout", "", "joint layout YAML (default: built-in humanoid)")
	library := fs.String("library", server.DefaultLibrary, "default latent library name")
	models := fs.String("models", "", "weight files to preload as name=path,...")
	libraries := fs.String("libraries", "", "library files to preload as name=path,...")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var cfg serveConfig
	if *configPath != "" {
		var err error
		if cfg, err = loadServeConfig(*configPath); err != nil {
			return err
		}
	}
	cfg.overrideFromFlags(setFlags, map[string]string{
		"addr":    *addr,
		"store":   *storeKind,
		"db-path": *dbPath,
		"layout":  *layoutPath,
		"library": *library,
	})
	modelPairs, err := parsePairs(*models)
	if err != nil {
		return err
	}
	libraryPairs, err := parsePairs(*libraries)
	if err != nil {
		return err
	}
	cfg.Models = mergePairs(cfg.Models, modelPairs)
	cfg.Libraries = mergePairs(cfg.Libraries, libraryPairs)

	client, err := calmkit.New(calmkit.Options{StoreKind: cfg.Store, DBPath: cfg.DBPath, LayoutPath: cfg.Layout})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := preload(ctx, client, cfg); err != nil {
		return err
	}

	srv, err := client.Server(ctx, cfg.Library)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Listen(ctx, cfg.Addr)
}

func preload(ctx context.Context, client *calmkit.Client, cfg serveConfig) error {
	for _, name := range sortedKeys(cfg.Models) {
		record, err := client.ImportModel(ctx, name, cfg.Models[name])
		if err != nil {
			return err
		}
		log.Info("preloaded model", "name", name, "format", record.Format, "input", record.InputDim, "output", record.OutputDim)
	}
	for _, name := range sortedKeys(cfg.Libraries) {
		record, err := client.ImportLibrary(ctx, name, cfg.Libraries[name])
		if err != nil {
			return err
		}
		log.Info("preloaded library", "name", name, "behaviors", len(record.Behaviors))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
