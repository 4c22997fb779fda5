package models

// ReferenceSnapshot holds the daily reference prices captured at the two
// fixed slots. At most one snapshot is valid per calendar day; both slots
// are cleared when the stored date no longer matches today.
type ReferenceSnapshot struct {
	AMOpen         *float64 `json:"am_open"`
	PMOpen         *float64 `json:"pm_open"`
	LastUpdateDate string   `json:"last_update_date"` // ISO 8601 YYYY-MM-DD, empty when never captured
}

// ResetIfStale clears both slots when the snapshot belongs to a previous
// day. Returns true if anything was cleared.
func (s *ReferenceSnapshot) ResetIfStale(today string) bool {
	if s.LastUpdateDate == today {
		return false
	}
	cleared := s.AMOpen != nil || s.PMOpen != nil
	s.AMOpen = nil
	s.PMOpen = nil
	return cleared
}

// HasAMOpen reports whether a morning reference price is available for
// the given date.
func (s *ReferenceSnapshot) HasAMOpen(today string) bool {
	return s.AMOpen != nil && s.LastUpdateDate == today
}
