package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"testing"
)

func TestCatchServiceCreateAndList(t *testing.T) {
	gdb := setupServiceDB(t)
	ctx := context.Background()
	trip, _ := NewTripService(gdb, nil, nil).Create(TripInput{Date: "2025-03-10"})
	svc := NewCatchService(gdb, nil, 0, nil)

	catch, err := svc.Create(ctx, trip.ID, CatchInput{
		Species: " Snapper ",
		Gear:    []string{"Soft bait", "", "Soft bait", "Spin rod"},
		Weight:  "2.4kg",
	}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if catch.Species != "Snapper" {
		t.Fatalf("expected trimmed species, got %q", catch.Species)
	}
	if len(catch.Gear) != 2 {
		t.Fatalf("expected gear to be deduplicated, got %v", catch.Gear)
	}

	list, err := svc.ListByTrip(trip.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(list) != 1 || list[0].Gear[1] != "Spin rod" {
		t.Fatalf("unexpected list: %#v", list)
	}

	if _, err := svc.Create(ctx, trip.ID, CatchInput{Species: "  "}, nil); !errors.Is(err, ErrCatchSpeciesRequired) {
		t.Fatalf("expected ErrCatchSpeciesRequired, got %v", err)
	}
	if _, err := svc.Create(ctx, trip.ID+100, CatchInput{Species: "Tarakihi"}, nil); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestCatchServicePhotoLifecycle(t *testing.T) {
	gdb := setupServiceDB(t)
	ctx := context.Background()
	photos := newTestPhotoStore(t)
	trip, _ := NewTripService(gdb, nil, nil).Create(TripInput{Date: "2025-03-10"})
	svc := NewCatchService(gdb, photos, 64, nil)

	catch, err := svc.Create(ctx, trip.ID, CatchInput{Species: "Kingfish"}, testPNG(t, 200, 100))
	if err != nil {
		t.Fatalf("create with photo: %v", err)
	}
	if catch.Photo == "" {
		t.Fatal("expected photo key")
	}

	rc, err := svc.OpenPhoto(ctx, catch.ID)
	if err != nil {
		t.Fatalf("open photo: %v", err)
	}
	stored, _ := io.ReadAll(rc)
	rc.Close()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored photo: %v", err)
	}
	if format != "jpeg" || cfg.Width != 64 || cfg.Height != 32 {
		t.Fatalf("expected 64x32 jpeg, got %s %dx%d", format, cfg.Width, cfg.Height)
	}

	first := catch.Photo
	replaced, err := svc.Update(ctx, catch.ID, CatchInput{Species: "Kingfish"}, testPNG(t, 10, 10))
	if err != nil {
		t.Fatalf("replace photo: %v", err)
	}
	if replaced.Photo == first {
		t.Fatal("expected a new photo key")
	}
	if _, err := photos.Open(ctx, first); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected old photo removed, got %v", err)
	}

	// 不带照片更新时保留原照片
	kept, err := svc.Update(ctx, catch.ID, CatchInput{Species: "Kingfish", Length: "80cm"}, nil)
	if err != nil || kept.Photo != replaced.Photo {
		t.Fatalf("expected photo kept, got %q (%v)", kept.Photo, err)
	}

	cleared, err := svc.RemovePhoto(ctx, catch.ID)
	if err != nil {
		t.Fatalf("remove photo: %v", err)
	}
	if cleared.Photo != "" {
		t.Fatalf("expected photo cleared, got %q", cleared.Photo)
	}
	if _, err := svc.OpenPhoto(ctx, catch.ID); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound, got %v", err)
	}

	if _, err := svc.Create(ctx, trip.ID, CatchInput{Species: "Kingfish"}, []byte("not an image")); !errors.Is(err, ErrPhotoInvalid) {
		t.Fatalf("expected ErrPhotoInvalid, got %v", err)
	}
}

func TestCatchServiceWithoutPhotoStore(t *testing.T) {
	gdb := setupServiceDB(t)
	trip, _ := NewTripService(gdb, nil, nil).Create(TripInput{Date: "2025-03-10"})
	svc := NewCatchService(gdb, nil, 0, nil)

	_, err := svc.Create(context.Background(), trip.ID, CatchInput{Species: "Trout"}, testPNG(t, 4, 4))
	if !errors.Is(err, ErrPhotoStoreUnavailable) {
		t.Fatalf("expected ErrPhotoStoreUnavailable, got %v", err)
	}
}

func TestCatchServiceDelete(t *testing.T) {
	gdb := setupServiceDB(t)
	ctx := context.Background()
	photos := newTestPhotoStore(t)
	trip, _ := NewTripService(gdb, nil, nil).Create(TripInput{Date: "2025-03-10"})
	svc := NewCatchService(gdb, photos, 0, nil)

	catch, err := svc.Create(ctx, trip.ID, CatchInput{Species: "Trout"}, testPNG(t, 8, 8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, catch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := photos.Open(ctx, catch.Photo); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("expected photo removed, got %v", err)
	}
	if err := svc.Delete(ctx, catch.ID); !errors.Is(err, ErrCatchNotFound) {
		t.Fatalf("expected ErrCatchNotFound, got %v", err)
	}
}

func TestLocalPhotoStoreRejectsTraversal(t *testing.T) {
	store := newTestPhotoStore(t)
	ctx := context.Background()

	for _, key := range []string{"../escape.jpg", "a/b.jpg", "", ".hidden"} {
		if err := store.Put(ctx, key, []byte("x")); !errors.Is(err, ErrPhotoKeyInvalid) {
			t.Fatalf("key %q: expected ErrPhotoKeyInvalid, got %v", key, err)
		}
	}

	if err := store.Delete(ctx, NewPhotoKey()); err != nil {
		t.Fatalf("deleting a missing photo should succeed: %v", err)
	}
}

func TestPreparePhotoKeepsSmallImages(t *testing.T) {
	out, err := PreparePhoto(testPNG(t, 30, 50), 1600)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 50 {
		t.Fatalf("expected 30x50, got %dx%d", cfg.Width, cfg.Height)
	}
}
