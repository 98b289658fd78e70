package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"calmkit/internal/log"
	"calmkit/internal/skeleton"
	"calmkit/internal/storage"
)

func main() {
	log.Init(os.Getenv("CALMKIT_LOG_LEVEL"))
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "info":
		return runInfo(ctx, args[1:])
	case "encode":
		return runEncode(ctx, args[1:])
	case "export-random":
		return runExportRandom(ctx, args[1:])
	case "verify":
		return runVerify(ctx, args[1:])
	case "convert":
		return runConvert(ctx, args[1:])
	case "forward":
		return runForward(ctx, args[1:])
	case "library-dummy":
		return runLibraryDummy(ctx, args[1:])
	case "library-encode":
		return runLibraryEncode(ctx, args[1:])
	case "library-query":
		return runLibraryQuery(ctx, args[1:])
	case "manifest-generate":
		return runManifestGenerate(ctx, args[1:])
	case "manifest-validate":
		return runManifestValidate(ctx, args[1:])
	case "store-put":
		return runStorePut(ctx, args[1:])
	case "store-list":
		return runStoreList(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: calmkitctl <info|encode|export-random|verify|convert|forward|library-dummy|library-encode|library-query|manifest-generate|manifest-validate|store-put|store-list|serve> [flags]", msg)
}

type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath: fs.String("db-path", storage.DefaultDBPath(), "sqlite database path"),
	}
}

func (f storeFlags) open(ctx context.Context) (storage.Store, error) {
	store, err := storage.NewStore(*f.kind, *f.dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func loadLayout(path string) (*skeleton.Layout, error) {
	if path == "" {
		return skeleton.Default(), nil
	}
	return skeleton.LoadLayout(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parseInts(list string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(list string) ([]float32, error) {
	var out []float32
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, float32(v))
	}
	if len(out) == 0 {
		return nil, errors.New("empty vector")
	}
	return out, nil
}

// parsePairs splits "a=x,b=y" into a map.
func parsePairs(list string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid name=path pair %q", part)
		}
		out[name] = value
	}
	return out, nil
}
