package engine

import "errors"

// ErrNoReference is returned when the reference price is zero, absent,
// or negative, making the percentage movement undefined.
var ErrNoReference = errors.New("reference price must be positive")

// Movement computes the signed percentage deviation of current from
// reference. Pure function.
func Movement(current, reference float64) (float64, error) {
	if reference <= 0 {
		return 0, ErrNoReference
	}
	return (current - reference) / reference * 100, nil
}
