// Package engine implements the decision pipeline: reference-price
// capture, movement evaluation, threshold routing, and contract
// selection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketsentry/btcsentry/internal/delta"
	"github.com/marketsentry/btcsentry/internal/logger"
	"github.com/marketsentry/btcsentry/internal/models"
)

// MarketData is the market-data collaborator: spot price, options
// chain, and best-effort greeks.
type MarketData interface {
	SpotPrice(ctx context.Context) (float64, error)
	OptionsChain(ctx context.Context, expiryDate string) ([]models.OptionContract, error)
	Greeks(ctx context.Context, productID int64) (*models.Greeks, error)
}

// SnapshotStore is the persistence collaborator for the reference
// snapshot. Implementations must store the snapshot as a whole record.
type SnapshotStore interface {
	LoadSnapshot() (*models.ReferenceSnapshot, error)
	StoreSnapshot(*models.ReferenceSnapshot) error
}

// Config holds decision-engine tunables.
type Config struct {
	MoveThresholdPct  float64
	AMCaptureTime     string // "15:04:05" wall-clock in the engine's zone
	PMCaptureTime     string
	UpTargetPremium   float64
	UpTargetLots      int
	DownTargetPremium float64
	DownTargetLots    int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MoveThresholdPct:  1.5,
		AMCaptureTime:     "05:29:59",
		PMCaptureTime:     "17:29:59",
		UpTargetPremium:   200,
		UpTargetLots:      20,
		DownTargetPremium: 100,
		DownTargetLots:    15,
	}
}

// Engine orchestrates one evaluation cycle into a Decision.
type Engine struct {
	market MarketData
	store  SnapshotStore
	clock  Clock
	config Config
}

// New creates an Engine from its collaborators.
func New(market MarketData, store SnapshotStore, clock Clock, config Config) *Engine {
	return &Engine{
		market: market,
		store:  store,
		clock:  clock,
		config: config,
	}
}

const dateLayout = "2006-01-02"

// Evaluate runs one decision cycle. It never returns a Go error: every
// failure, including a panic anywhere in the pipeline, is folded into a
// Decision with StatusError and an error classification tag.
func (e *Engine) Evaluate(ctx context.Context) (decision models.Decision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Evaluation cycle panicked: %v", r)
			decision = models.Decision{
				ID:          uuid.New().String(),
				Status:      models.StatusError,
				Message:     fmt.Sprintf("System error: %v", r),
				ErrorKind:   models.ErrKindInternal,
				EvaluatedAt: e.clock.Now(),
			}
		}
	}()

	now := e.clock.Now()
	today := now.Format(dateLayout)

	snap := e.refreshReference(ctx, now)

	if !snap.HasAMOpen(today) {
		zone, _ := now.Zone()
		return models.Decision{
			ID:     uuid.New().String(),
			Status: models.StatusWaiting,
			Message: fmt.Sprintf("Waiting for AM open price (%s %s)",
				e.config.AMCaptureTime, zone),
			CurrentTime: now.Format("15:04:05"),
			CacheDate:   snap.LastUpdateDate,
			EvaluatedAt: now,
		}
	}

	current, err := e.market.SpotPrice(ctx)
	if err != nil {
		return models.Decision{
			ID:          uuid.New().String(),
			Status:      models.StatusError,
			Message:     fmt.Sprintf("Failed to fetch current spot price: %v", err),
			ErrorKind:   classify(err),
			EvaluatedAt: now,
		}
	}

	reference := *snap.AMOpen
	move, err := Movement(current, reference)
	if err != nil {
		return models.Decision{
			ID:          uuid.New().String(),
			Status:      models.StatusError,
			Message:     fmt.Sprintf("Movement undefined: %v", err),
			ErrorKind:   models.ErrKindInternal,
			EvaluatedAt: now,
		}
	}

	switch {
	case move >= e.config.MoveThresholdPct:
		return e.buildAlert(ctx, now, models.DirectionUp, current, reference, move)
	case move <= -e.config.MoveThresholdPct:
		return e.buildAlert(ctx, now, models.DirectionDown, current, reference, move)
	}

	return models.Decision{
		ID:             uuid.New().String(),
		Status:         models.StatusNoTrigger,
		Message:        fmt.Sprintf("Movement: %.2f%% (need ±%.1f%% for trigger)", move, e.config.MoveThresholdPct),
		CurrentPrice:   current,
		ReferencePrice: reference,
		MovePercent:    move,
		EvaluatedAt:    now,
	}
}

// refreshReference loads the persisted snapshot, applies the
// day-rollover reset, and fills a capture slot when the wall clock
// matches one to the second. Capture failures are logged and the
// cycle continues on the stale snapshot.
func (e *Engine) refreshReference(ctx context.Context, now time.Time) *models.ReferenceSnapshot {
	snap, err := e.store.LoadSnapshot()
	if err != nil {
		logger.Warn("Failed to load reference snapshot: %v", err)
		snap = &models.ReferenceSnapshot{}
	}

	today := now.Format(dateLayout)
	if snap.ResetIfStale(today) {
		logger.Info("Reference snapshot reset for new day %s", today)
	}

	slot := now.Format("15:04:05")
	switch {
	case slot == e.config.AMCaptureTime && snap.AMOpen == nil:
		e.capture(ctx, snap, today, "AM", &snap.AMOpen)
	case slot == e.config.PMCaptureTime && snap.PMOpen == nil:
		e.capture(ctx, snap, today, "PM", &snap.PMOpen)
	}

	return snap
}

func (e *Engine) capture(ctx context.Context, snap *models.ReferenceSnapshot, today, label string, slot **float64) {
	price, err := e.market.SpotPrice(ctx)
	if err != nil {
		logger.Warn("Failed to capture %s reference price: %v", label, err)
		return
	}

	*slot = &price
	snap.LastUpdateDate = today
	if err := e.store.StoreSnapshot(snap); err != nil {
		logger.Warn("Failed to persist %s reference price: %v", label, err)
		return
	}
	logger.Info("%s reference price captured: %.2f", label, price)
}

// buildAlert assembles the ALERT decision for a threshold breach. A
// chain-fetch or selection failure degrades the alert payload, never
// escalates to ERROR: the movement signal is valid regardless.
func (e *Engine) buildAlert(ctx context.Context, now time.Time, direction models.Direction, current, reference, move float64) models.Decision {
	var (
		desired       models.OptionType
		targetPremium float64
		targetLots    int
		verb          string
	)
	if direction == models.DirectionUp {
		desired = models.Call
		targetPremium = e.config.UpTargetPremium
		targetLots = e.config.UpTargetLots
		verb = "up"
	} else {
		desired = models.Put
		targetPremium = e.config.DownTargetPremium
		targetLots = e.config.DownTargetLots
		verb = "down"
	}

	d := models.Decision{
		ID:             uuid.New().String(),
		Status:         models.StatusAlert,
		Direction:      direction,
		CurrentPrice:   current,
		ReferencePrice: reference,
		MovePercent:    move,
		TargetPremium:  targetPremium,
		TargetLots:     targetLots,
		EvaluatedAt:    now,
	}

	expiry := delta.NearestDailyExpiry(now)
	chain, err := e.market.OptionsChain(ctx, expiry)
	if err != nil {
		logger.Warn("Options chain fetch failed after %s breach: %v", direction, err)
		d.Message = fmt.Sprintf("Price %s %.2f%% - options selection failed: %v", verb, move, err)
		return d
	}

	selected := SelectContract(chain, desired, targetPremium, current)
	if selected != nil {
		if greeks, err := e.market.Greeks(ctx, selected.ProductID); err == nil {
			selected.Greeks = greeks
		} else {
			logger.Debug("Greeks unavailable for %s: %v", selected.Symbol, err)
		}
	}

	d.SelectedOption = selected
	d.Message = fmt.Sprintf("Price %s %.2f%% - SELL OTM %s (target: %d lots)",
		verb, move, strings.ToUpper(string(desired)), targetLots)
	return d
}

func classify(err error) string {
	switch {
	case errors.Is(err, delta.ErrNetwork):
		return models.ErrKindNetwork
	case errors.Is(err, delta.ErrParse):
		return models.ErrKindParse
	default:
		return models.ErrKindInternal
	}
}
