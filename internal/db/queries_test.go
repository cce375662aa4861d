package db

import (
	"testing"

	"github.com/j-veylop/rewardgate/internal/models"
)

func sampleEntry() *models.LedgerEntry {
	e := &models.LedgerEntry{
		LogicalID:       "app.duolingo",
		DisplayName:     "Duolingo",
		Category:        models.CategoryLearning,
		PointsPerMinute: 20,
		TodaySeconds:    180,
		TotalSeconds:    900,
		LastResetDate:   "2026-10-19",
		DailyHistory:    []models.DailyUsage{{Date: "2026-10-18", Seconds: 720}},
	}
	e.HourlySeconds[9] = 120
	e.HourlySeconds[10] = 60
	e.RecomputePoints()
	return e
}

func TestSaveAndLoadLedger(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	entry := sampleEntry()
	if err := db.SaveLedgerEntry(entry); err != nil {
		t.Fatalf("SaveLedgerEntry failed: %v", err)
	}

	entries, err := db.LoadLedger()
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	got, ok := entries["app.duolingo"]
	if !ok {
		t.Fatal("entry missing after load")
	}

	if got.TodaySeconds != 180 || got.TotalSeconds != 900 {
		t.Errorf("seconds = %d/%d, want 180/900", got.TodaySeconds, got.TotalSeconds)
	}
	if got.TodayPoints != 60 || got.TotalPoints != 300 {
		t.Errorf("points = %d/%d, want 60/300", got.TodayPoints, got.TotalPoints)
	}
	if got.Category != models.CategoryLearning {
		t.Errorf("Category = %q", got.Category)
	}
	if got.HourlySeconds != entry.HourlySeconds {
		t.Errorf("HourlySeconds = %v, want %v", got.HourlySeconds, entry.HourlySeconds)
	}
	if len(got.DailyHistory) != 1 || got.DailyHistory[0].Seconds != 720 {
		t.Errorf("DailyHistory = %+v", got.DailyHistory)
	}
}

func TestSaveLedgerEntry_Upsert(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	entry := sampleEntry()
	if err := db.SaveLedgerEntry(entry); err != nil {
		t.Fatal(err)
	}

	entry.TodaySeconds = 240
	entry.DailyHistory = append(entry.DailyHistory, models.DailyUsage{Date: "2026-10-19", Seconds: 30})
	if err := db.SaveLedgerEntry(entry); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetLedgerEntry("app.duolingo")
	if err != nil {
		t.Fatal(err)
	}
	if got.TodaySeconds != 240 {
		t.Errorf("TodaySeconds = %d, want 240", got.TodaySeconds)
	}
	if len(got.DailyHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(got.DailyHistory))
	}
}

func TestDailyHistory_AppendOnly(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	entry := sampleEntry()
	if err := db.SaveLedgerEntry(entry); err != nil {
		t.Fatal(err)
	}

	// A rewritten history row for an existing date must not replace the original.
	entry.DailyHistory[0].Seconds = 1
	if err := db.SaveLedgerEntry(entry); err != nil {
		t.Fatal(err)
	}

	days, err := db.GetDailyHistory("app.duolingo")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].Seconds != 720 {
		t.Errorf("history = %+v, want original 720", days)
	}
}

func TestGetLedgerEntry_Missing(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	got, err := db.GetLedgerEntry("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestAppState(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if _, ok, err := db.GetState(StateLastResetDate); err != nil || ok {
		t.Fatalf("GetState on empty table = ok:%v err:%v", ok, err)
	}

	if err := db.SetState(StateLastResetDate, "2026-10-18"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState(StateLastResetDate, "2026-10-19"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.GetState(StateLastResetDate)
	if err != nil || !ok {
		t.Fatalf("GetState = ok:%v err:%v", ok, err)
	}
	if v != "2026-10-19" {
		t.Errorf("value = %q, want 2026-10-19", v)
	}
}
