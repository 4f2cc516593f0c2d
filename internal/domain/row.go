package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a transaction as persisted in the backing sheet.
type Row struct {
	Index      int     // 1-based sheet row, assigned by the store
	Account    string
	Subject    string
	DateSerial float64 // spreadsheet serial date, fractional days
	Amount     decimal.Decimal
	Category   string
}

// Marker returns the dedup state encoded in the subject.
func (r Row) Marker() Marker {
	return ParseMarker(r.Subject)
}

// Time converts the serial date back to a UTC timestamp.
func (r Row) Time() time.Time {
	return TimeFromSerial(r.DateSerial)
}

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// SerialFromTime converts t into a spreadsheet serial date. The wall clock
// in t's location is used, which is how a sheet reads "2006-01-02 15:04:05".
func SerialFromTime(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(wall.Sub(serialEpoch)) / float64(day)
}

// TimeFromSerial converts a serial date to a UTC time rounded to the second.
func TimeFromSerial(serial float64) time.Time {
	seconds := math.Round(serial * day.Seconds())
	return serialEpoch.Add(time.Duration(seconds) * time.Second)
}
