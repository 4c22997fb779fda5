package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketsentry/btcsentry/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(100, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestLoadSnapshot_Empty(t *testing.T) {
	s := newTestStorage(t)

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.AMOpen != nil || snap.PMOpen != nil || snap.LastUpdateDate != "" {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestStoreAndLoadSnapshot(t *testing.T) {
	s := newTestStorage(t)

	in := &models.ReferenceSnapshot{
		AMOpen:         ptr(100000.5),
		PMOpen:         ptr(101200),
		LastUpdateDate: "2025-08-14",
	}
	if err := s.StoreSnapshot(in); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	got, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.AMOpen == nil || *got.AMOpen != 100000.5 {
		t.Errorf("got AM open %v, want 100000.5", got.AMOpen)
	}
	if got.PMOpen == nil || *got.PMOpen != 101200 {
		t.Errorf("got PM open %v, want 101200", got.PMOpen)
	}
	if got.LastUpdateDate != "2025-08-14" {
		t.Errorf("got date %q, want 2025-08-14", got.LastUpdateDate)
	}
}

func TestStoreSnapshot_FullRowReplace(t *testing.T) {
	s := newTestStorage(t)

	if err := s.StoreSnapshot(&models.ReferenceSnapshot{
		AMOpen:         ptr(100000),
		PMOpen:         ptr(101000),
		LastUpdateDate: "2025-08-13",
	}); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	// A rollover write carries cleared slots; the stored row must not
	// retain stale fields from the previous day.
	if err := s.StoreSnapshot(&models.ReferenceSnapshot{
		AMOpen:         ptr(99000),
		LastUpdateDate: "2025-08-14",
	}); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	got, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.PMOpen != nil {
		t.Errorf("PM open survived full-row replace: %v", *got.PMOpen)
	}
	if got.AMOpen == nil || *got.AMOpen != 99000 {
		t.Errorf("got AM open %v, want 99000", got.AMOpen)
	}
	if got.LastUpdateDate != "2025-08-14" {
		t.Errorf("got date %q, want 2025-08-14", got.LastUpdateDate)
	}
}

func testDecision(status models.Status, evaluatedAt time.Time) *models.Decision {
	return &models.Decision{
		ID:          uuid.New().String(),
		Status:      status,
		Message:     "test decision",
		EvaluatedAt: evaluatedAt,
	}
}

func TestAddAndRecentDecisions(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	alert := &models.Decision{
		ID:             uuid.New().String(),
		Status:         models.StatusAlert,
		Message:        "Price up 1.60% - SELL OTM CALL (target: 20 lots)",
		CurrentPrice:   101600,
		ReferencePrice: 100000,
		MovePercent:    1.6,
		Direction:      models.DirectionUp,
		TargetPremium:  200,
		TargetLots:     20,
		SelectedOption: &models.OptionContract{
			Symbol:      "BTC-140825-110000-C",
			StrikePrice: 110000,
			OptionType:  models.Call,
			ExpiryDate:  "2025-08-14",
			MarkPrice:   205,
		},
		EvaluatedAt: now,
	}
	if err := s.AddDecision(alert); err != nil {
		t.Fatalf("AddDecision: %v", err)
	}
	if err := s.AddDecision(testDecision(models.StatusNoTrigger, now.Add(time.Second))); err != nil {
		t.Fatalf("AddDecision: %v", err)
	}

	got, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	if got[0].Status != models.StatusNoTrigger {
		t.Errorf("got %s first, want newest (NO_TRIGGER)", got[0].Status)
	}

	stored := got[1]
	if stored.Status != models.StatusAlert || stored.Direction != models.DirectionUp {
		t.Errorf("got %s/%s, want ALERT/UP", stored.Status, stored.Direction)
	}
	if stored.SelectedOption == nil {
		t.Fatal("selected option not round-tripped")
	}
	if stored.SelectedOption.Symbol != "BTC-140825-110000-C" {
		t.Errorf("got symbol %s, want BTC-140825-110000-C", stored.SelectedOption.Symbol)
	}
	if stored.SelectedOption.StrikePrice != 110000 {
		t.Errorf("got strike %v, want 110000", stored.SelectedOption.StrikePrice)
	}
}

func TestRecentDecisions_NilSelectedOption(t *testing.T) {
	s := newTestStorage(t)

	if err := s.AddDecision(testDecision(models.StatusWaiting, time.Now())); err != nil {
		t.Fatalf("AddDecision: %v", err)
	}

	got, err := s.RecentDecisions(1)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if got[0].SelectedOption != nil {
		t.Error("expected nil selected option")
	}
}

func TestRotateDecisions(t *testing.T) {
	s, err := New(3, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now()
	for i := 0; i < 5; i++ {
		d := testDecision(models.StatusNoTrigger, now.Add(time.Duration(i)*time.Second))
		d.Message = fmt.Sprintf("decision %d", i)
		if err := s.AddDecision(d); err != nil {
			t.Fatalf("AddDecision: %v", err)
		}
	}

	if err := s.RotateDecisions(); err != nil {
		t.Fatalf("RotateDecisions: %v", err)
	}

	got, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d decisions after rotation, want 3", len(got))
	}
	if got[0].Message != "decision 4" {
		t.Errorf("got %q first, want newest (decision 4)", got[0].Message)
	}
}
