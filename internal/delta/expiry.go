package delta

import "time"

// Daily BTC options settle at 16:30 local exchange time.
const (
	expiryCutoffHour   = 16
	expiryCutoffMinute = 30
)

// NearestDailyExpiry returns the settlement date (YYYY-MM-DD) of the
// nearest daily expiry: today until the 16:30 cutoff, tomorrow after.
// Pure given now; the cutoff is evaluated in now's location.
func NearestDailyExpiry(now time.Time) string {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(),
		expiryCutoffHour, expiryCutoffMinute, 0, 0, now.Location())

	expiry := now
	if now.After(cutoff) {
		expiry = now.AddDate(0, 0, 1)
	}
	return expiry.Format("2006-01-02")
}
