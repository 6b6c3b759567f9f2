package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/fishinglog/internal/db"
)

type archiveFixture struct {
	trips     *TripService
	weather   *WeatherLogService
	catches   *CatchService
	tacklebox *TackleboxService
	archive   *ArchiveService
	photos    *LocalPhotoStore
}

func newArchiveFixture(t *testing.T) archiveFixture {
	t.Helper()
	gdb := setupServiceDB(t)
	photos := newTestPhotoStore(t)
	return archiveFixture{
		trips:     NewTripService(gdb, photos, nil),
		weather:   NewWeatherLogService(gdb),
		catches:   NewCatchService(gdb, photos, 0, nil),
		tacklebox: NewTackleboxService(gdb),
		archive:   NewArchiveService(gdb, photos, 0, nil),
		photos:    photos,
	}
}

func seedArchiveFixture(t *testing.T, f archiveFixture) {
	t.Helper()
	ctx := context.Background()

	first, err := f.trips.Create(TripInput{Date: "2025-03-10", Water: "Lake Taupo", Notes: "Calm *morning*"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	second, err := f.trips.Create(TripInput{Date: "2025-03-12", Water: "Tongariro River"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	// 删除中间记录制造 ID 空洞，验证导入保留原 ID
	gap, _ := f.trips.Create(TripInput{Date: "2025-03-11"})
	if err := f.trips.Delete(ctx, gap.ID); err != nil {
		t.Fatalf("delete gap trip: %v", err)
	}
	third, _ := f.trips.Create(TripInput{Date: "2025-03-14", Water: "Lake Rotoiti"})

	f.weather.Create(first.ID, WeatherLogInput{TimeOfDay: "Dawn", Sky: "Clear", WindDirection: "NE"})
	f.weather.Create(third.ID, WeatherLogInput{TimeOfDay: "Dusk", Sky: "Overcast"})

	if _, err := f.catches.Create(ctx, first.ID, CatchInput{Species: "Rainbow trout", Gear: []string{"Tassie"}, Weight: "2.1"}, testPNG(t, 16, 12)); err != nil {
		t.Fatalf("create catch: %v", err)
	}
	f.catches.Create(ctx, second.ID, CatchInput{Species: "Brown trout", Weight: "3.4"}, nil)

	f.tacklebox.AddType(ctx, "Fly")
	f.tacklebox.SaveGear(ctx, GearItem{Name: "Tassie", Type: "Lure", Colour: "Green"})
}

func TestArchiveRoundTripPreservesRecords(t *testing.T) {
	ctx := context.Background()
	src := newArchiveFixture(t)
	seedArchiveFixture(t, src)

	before, err := src.archive.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var buf bytes.Buffer
	if err := src.archive.Export(ctx, &buf); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	dst := newArchiveFixture(t)
	// 目标库已有数据，导入后必须被完全替换
	dst.trips.Create(TripInput{Date: "2020-01-01", Water: "Stale"})

	result, err := dst.archive.ImportAuto(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ImportAuto returned error: %v", err)
	}
	if result.Trips != 3 || result.Catches != 2 || result.WeatherLogs != 2 || result.Photos != 1 {
		t.Fatalf("unexpected import result: %#v", result)
	}

	after, err := dst.archive.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if len(after.Trips) != len(before.Trips) {
		t.Fatalf("trip count mismatch: %d vs %d", len(after.Trips), len(before.Trips))
	}
	for i := range before.Trips {
		b, a := before.Trips[i], after.Trips[i]
		if a.ID != b.ID || a.Date != b.Date || a.Water != b.Water || a.Notes != b.Notes {
			t.Fatalf("trip %d differs: %#v vs %#v", i, a, b)
		}
	}
	if !reflect.DeepEqual(after.WeatherLogs, before.WeatherLogs) {
		t.Fatalf("weather logs differ:\n%#v\n%#v", after.WeatherLogs, before.WeatherLogs)
	}
	// 导入会给照片分配新 key，比较时只看内容
	if len(after.FishCaught) != len(before.FishCaught) {
		t.Fatalf("catch count mismatch: %d vs %d", len(after.FishCaught), len(before.FishCaught))
	}
	for i := range before.FishCaught {
		b, a := before.FishCaught[i], after.FishCaught[i]
		if (a.Photo == "") != (b.Photo == "") {
			t.Fatalf("catch %d photo presence differs: %q vs %q", i, a.Photo, b.Photo)
		}
		if a.Photo != "" && !bytes.Equal(readPhoto(t, dst.photos, a.Photo), readPhoto(t, src.photos, b.Photo)) {
			t.Fatalf("catch %d photo bytes differ", i)
		}
		a.Photo, b.Photo = "", ""
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("catch %d differs:\n%#v\n%#v", i, a, b)
		}
	}
	if !reflect.DeepEqual(after.Tacklebox, before.Tacklebox) || !reflect.DeepEqual(after.GearTypes, before.GearTypes) {
		t.Fatalf("tacklebox differs: %#v %#v", after.Tacklebox, after.GearTypes)
	}

	for _, c := range after.FishCaught {
		if c.Photo == "" {
			continue
		}
		rc, err := dst.photos.Open(ctx, c.Photo)
		if err != nil {
			t.Fatalf("imported photo missing: %v", err)
		}
		rc.Close()
	}

	// 新记录的 ID 必须接在导入的最大 ID 之后
	next, err := dst.trips.Create(TripInput{Date: "2025-04-01"})
	if err != nil {
		t.Fatalf("create after import: %v", err)
	}
	if next.ID <= after.Trips[len(after.Trips)-1].ID {
		t.Fatalf("expected new id after imported ids, got %d", next.ID)
	}
}

func TestArchiveExportLayout(t *testing.T) {
	ctx := context.Background()
	f := newArchiveFixture(t)
	seedArchiveFixture(t, f)

	var buf bytes.Buffer
	if err := f.archive.Export(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}

	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	if len(names) != 2 || names[0] != "data.json" || !strings.HasPrefix(names[1], "photos/") {
		t.Fatalf("unexpected archive layout: %v", names)
	}

	rc, _ := zr.File[0].Open()
	raw, _ := io.ReadAll(rc)
	rc.Close()
	for _, key := range []string{`"trips"`, `"weatherLogs"`, `"fishCaught"`, `"tacklebox"`, `"gearTypes"`, `"exportedAt"`} {
		if !bytes.Contains(raw, []byte(key)) {
			t.Fatalf("data.json missing %s", key)
		}
	}
}

func TestArchiveImportLegacyJSON(t *testing.T) {
	ctx := context.Background()
	f := newArchiveFixture(t)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 6, 6))
	legacy := fmt.Sprintf(`{
		"trips": [{"id": 7, "date": "2024-12-24", "water": "Manukau", "totalFish": "2"}],
		"weatherLogs": [{"id": 3, "tripId": 7, "sky": "Sunny"}],
		"fishCaught": [
			{"id": 11, "tripId": 7, "species": "Snapper", "gear": ["Flasher rig"], "photo": %q},
			{"id": 12, "tripId": 7, "species": "Gurnard", "photo": "data:text/plain,hello"}
		]
	}`, dataURL)

	result, err := f.archive.ImportAuto(ctx, strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("ImportAuto returned error: %v", err)
	}
	if result.Trips != 1 || result.Catches != 2 || result.Photos != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}

	trip, err := f.trips.Get(7)
	if err != nil || trip.Water != "Manukau" {
		t.Fatalf("expected trip 7, got %#v (%v)", trip, err)
	}

	snapper, err := f.catches.Get(11)
	if err != nil {
		t.Fatalf("get catch: %v", err)
	}
	if snapper.Photo == "" || strings.HasPrefix(snapper.Photo, "data:") {
		t.Fatalf("expected inline photo moved to store, got %q", snapper.Photo)
	}
	gurnard, _ := f.catches.Get(12)
	if gurnard.Photo != "" {
		t.Fatalf("expected undecodable photo dropped, got %q", gurnard.Photo)
	}

	types, _ := f.tacklebox.ListTypes(ctx)
	if !reflect.DeepEqual(types, DefaultGearTypes) {
		t.Fatalf("expected default gear types, got %v", types)
	}
}

func TestArchiveImportRejectsOrphansAtomically(t *testing.T) {
	ctx := context.Background()
	f := newArchiveFixture(t)
	existing, _ := f.trips.Create(TripInput{Date: "2025-01-01", Water: "Keep me"})

	bad := `{"trips": [{"id": 1, "date": "2025-02-02"}], "fishCaught": [{"id": 1, "tripId": 5, "species": "Ghost"}]}`
	if _, err := f.archive.ImportLegacyJSON(ctx, strings.NewReader(bad)); !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid, got %v", err)
	}

	trip, err := f.trips.Get(existing.ID)
	if err != nil || trip.Water != "Keep me" {
		t.Fatalf("existing data should be untouched, got %#v (%v)", trip, err)
	}

	if _, err := f.archive.ImportAuto(ctx, strings.NewReader("not json")); !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid for garbage, got %v", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.Create("readme.txt")
	zw.Close()
	if _, err := f.archive.ImportAuto(ctx, &buf); !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid for zip without data.json, got %v", err)
	}
}

func TestArchiveReimportKeepsPhotos(t *testing.T) {
	ctx := context.Background()
	f := newArchiveFixture(t)
	seedArchiveFixture(t, f)

	var buf bytes.Buffer
	if err := f.archive.Export(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := f.archive.ImportAuto(ctx, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("reimport: %v", err)
	}

	all, _ := f.catches.ListAll()
	for _, c := range all {
		if c.Photo == "" {
			continue
		}
		rc, err := f.photos.Open(ctx, c.Photo)
		if err != nil {
			t.Fatalf("photo %s lost on reimport: %v", c.Photo, err)
		}
		rc.Close()
	}

	var count int64
	f.archive.db.Model(&db.Trip{}).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 trips, got %d", count)
	}
}

func TestArchiveFailedImportKeepsExistingPhotos(t *testing.T) {
	ctx := context.Background()
	f := newArchiveFixture(t)
	seedArchiveFixture(t, f)

	existing, err := f.archive.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var key string
	for _, c := range existing.FishCaught {
		if c.Photo != "" {
			key = c.Photo
		}
	}
	if key == "" {
		t.Fatal("fixture should contain a photo")
	}
	original := readPhoto(t, f.photos, key)
	filesBefore := photoFiles(t, f.photos)

	// 同 key 的照片内容不同；重复的 catch ID 让事务在写库时失败
	data := `{"trips": [{"id": 1, "date": "2025-05-01"}], "fishCaught": [` +
		`{"id": 1, "tripId": 1, "species": "Kahawai", "photo": "` + key + `"},` +
		`{"id": 1, "tripId": 1, "species": "Kingfish", "photo": "` + key + `"}]}`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("data.json")
	w.Write([]byte(data))
	w, _ = zw.Create("photos/" + key)
	w.Write(testPNG(t, 3, 3))
	zw.Close()

	if _, err := f.archive.ImportAuto(ctx, bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected import with duplicate catch ids to fail")
	}

	if got := readPhoto(t, f.photos, key); !bytes.Equal(got, original) {
		t.Fatal("existing photo was overwritten by a failed import")
	}
	if got := photoFiles(t, f.photos); !reflect.DeepEqual(got, filesBefore) {
		t.Fatalf("failed import left photos behind: %v vs %v", got, filesBefore)
	}

	after, _ := f.archive.Snapshot(ctx)
	if len(after.Trips) != len(existing.Trips) || len(after.FishCaught) != len(existing.FishCaught) {
		t.Fatalf("existing records should be untouched: %d trips, %d catches", len(after.Trips), len(after.FishCaught))
	}
}

func readPhoto(t *testing.T, store *LocalPhotoStore, key string) []byte {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open photo %s: %v", key, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read photo %s: %v", key, err)
	}
	return raw
}

func photoFiles(t *testing.T, store *LocalPhotoStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		t.Fatalf("read photo dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
