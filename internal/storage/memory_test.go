package storage

import (
	"context"
	"errors"
	"testing"

	"calmkit/internal/latent"
	"calmkit/internal/mlpcodec"
	"calmkit/internal/model"
)

func TestMemoryStoreModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record, err := NewModelRecord("encoder", testNetwork(t), mlpcodec.FormatMLP1)
	if err != nil {
		t.Fatalf("new model record: %v", err)
	}
	if err := store.SaveModel(ctx, record); err != nil {
		t.Fatalf("save model: %v", err)
	}
	record.Data[0] ^= 0xff

	loaded, ok, err := store.GetModel(ctx, "encoder")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted model")
	}
	if _, err := DecodeModel(loaded); err != nil {
		t.Fatalf("stored bytes must not alias caller slice: %v", err)
	}

	if _, ok, _ := store.GetModel(ctx, "missing"); ok {
		t.Fatal("expected missing model")
	}
}

func TestMemoryStoreListAndDeleteModels(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, name := range []string{"policy", "encoder", "discriminator"} {
		record, err := NewModelRecord(name, testNetwork(t), mlpcodec.FormatMLP1)
		if err != nil {
			t.Fatalf("new model record: %v", err)
		}
		if err := store.SaveModel(ctx, record); err != nil {
			t.Fatalf("save model: %v", err)
		}
	}

	list, err := store.ListModels(ctx)
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(list) != 3 || list[0].Name != "discriminator" || list[2].Name != "policy" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	if err := store.DeleteModel(ctx, "encoder"); err != nil {
		t.Fatalf("delete model: %v", err)
	}
	list, _ = store.ListModels(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 models after delete, got %d", len(list))
	}
}

func TestMemoryStoreLibraryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record, err := NewLibraryRecord("dummy", latent.Dummy(16, 42))
	if err != nil {
		t.Fatalf("new library record: %v", err)
	}
	if err := store.SaveLibrary(ctx, record); err != nil {
		t.Fatalf("save library: %v", err)
	}

	loaded, ok, err := store.GetLibrary(ctx, "dummy")
	if err != nil {
		t.Fatalf("get library: %v", err)
	}
	if !ok || loaded.LatentDim != 16 || len(loaded.Behaviors) != 15 {
		t.Fatalf("unexpected library: ok=%v %+v", ok, loaded)
	}

	names, err := store.ListLibraries(ctx)
	if err != nil {
		t.Fatalf("list libraries: %v", err)
	}
	if len(names) != 1 || names[0] != "dummy" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestMemoryStoreRejectsUninitializedAndStaleVersions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.SaveLibrary(ctx, model.LibraryRecord{VersionedRecord: CurrentVersion(), Name: "x"}); err == nil {
		t.Fatal("expected error before init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	stale := model.ModelRecord{VersionedRecord: model.VersionedRecord{SchemaVersion: 0, CodecVersion: 1}, Name: "old"}
	if err := store.SaveModel(ctx, stale); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}
