package models

import "time"

// Status is the outcome of one evaluation cycle.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusNoTrigger Status = "NO_TRIGGER"
	StatusAlert     Status = "ALERT"
	StatusError     Status = "ERROR"
)

// Direction of the price movement that triggered an alert.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Error classification tags carried by ERROR decisions.
const (
	ErrKindNetwork  = "NETWORK"
	ErrKindParse    = "PARSE"
	ErrKindInternal = "INTERNAL"
)

// Decision is the structured output of one evaluation cycle. Status and
// Message are always set; the remaining fields are populated per status:
// WAITING carries CurrentTime and CacheDate, NO_TRIGGER and ALERT carry
// the price fields, ALERT additionally carries direction, targets, and
// the selected contract (nil when selection failed or found nothing).
type Decision struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message"`

	CurrentPrice   float64 `json:"current_price,omitempty"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	MovePercent    float64 `json:"move_percent,omitempty"`

	Direction      Direction       `json:"direction,omitempty"`
	TargetPremium  float64         `json:"target_premium,omitempty"`
	TargetLots     int             `json:"target_lots,omitempty"`
	SelectedOption *OptionContract `json:"selected_option,omitempty"`

	ErrorKind string `json:"error_kind,omitempty"`

	CurrentTime string    `json:"current_time,omitempty"`
	CacheDate   string    `json:"cache_date,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
