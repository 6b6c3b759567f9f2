package db

import "testing"

func TestMigrateDropsLegacyTotalFishColumn(t *testing.T) {
	gdb, err := Open(Options{Path: "file:legacy_migrate?mode=memory&cache=shared", Silent: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer Close(gdb)

	legacy := `CREATE TABLE trips (
		id integer PRIMARY KEY AUTOINCREMENT,
		date text NOT NULL,
		water text,
		location text,
		hours text,
		total_fish text,
		companions text,
		notes text
	)`
	if err := gdb.Exec(legacy).Error; err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if err := gdb.Exec(`INSERT INTO trips (date, water, total_fish) VALUES ('2024-11-02', 'Lake Taupo', '3')`).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var remaining int64
	if err := gdb.Raw("SELECT COUNT(*) FROM pragma_table_info('trips') WHERE name = ?", "total_fish").Scan(&remaining).Error; err != nil {
		t.Fatalf("inspect table: %v", err)
	}
	if remaining != 0 {
		t.Fatal("expected total_fish to be dropped")
	}

	// 再次迁移不应出错
	if err := Migrate(gdb); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var trip Trip
	if err := gdb.First(&trip).Error; err != nil {
		t.Fatalf("load migrated trip: %v", err)
	}
	if trip.Water != "Lake Taupo" || trip.Date != "2024-11-02" {
		t.Fatalf("legacy row not preserved: %#v", trip)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "mongodb"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}
}

func TestFishCaughtGearRoundTrip(t *testing.T) {
	gdb, err := Open(Options{Path: "file:gear_serializer?mode=memory&cache=shared", Silent: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer Close(gdb)

	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catch := FishCaught{TripID: 1, Species: "Snapper", Gear: []string{"Soft bait", "Spin rod"}}
	if err := gdb.Create(&catch).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var loaded FishCaught
	if err := gdb.First(&loaded, catch.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Gear) != 2 || loaded.Gear[1] != "Spin rod" {
		t.Fatalf("unexpected gear: %#v", loaded.Gear)
	}
}
