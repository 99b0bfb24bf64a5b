// Package shiftcal attributes UTC instants to shift dates and months.
//
// A shift that runs past local midnight still belongs to the day it
// started on: instants are converted to the reference civil timezone and
// shifted three hours backwards before taking the calendar date, so a
// clock-out at 01:00 local time counts towards the previous workday.
package shiftcal

import (
	"fmt"
	"time"
)

// DefaultLocation is the reference civil timezone for shift attribution.
const DefaultLocation = "Europe/Berlin"

// shiftCutoverHours is subtracted from the local wall clock before taking
// the civil date, moving the day boundary from midnight to 03:00 local.
const shiftCutoverHours = 3

// Calendar converts UTC instants into shift dates using an explicitly
// configured reference timezone. The zero Calendar is not usable; build
// one with New or Default.
type Calendar struct {
	loc *time.Location
}

// New returns a calendar anchored to the named IANA timezone.
func New(locationName string) (Calendar, error) {
	loc, err := time.LoadLocation(locationName)
	if err != nil {
		return Calendar{}, fmt.Errorf("load shift timezone %q: %w", locationName, err)
	}
	return Calendar{loc: loc}, nil
}

// Default returns a calendar anchored to DefaultLocation.
func Default() (Calendar, error) {
	return New(DefaultLocation)
}

// ShiftDate returns the civil date a UTC instant is attributed to.
// The cutover is applied to the local wall clock, not the absolute
// instant, so DST transitions never change which wall-clock times fall
// before the 03:00 boundary.
func (c Calendar) ShiftDate(t time.Time) (year int, month time.Month, day int) {
	local := t.In(c.loc)
	shifted := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour()-shiftCutoverHours, local.Minute(), local.Second(),
		local.Nanosecond(), time.UTC)
	return shifted.Date()
}

// ShiftMonth returns the year and month a UTC instant is attributed to.
func (c Calendar) ShiftMonth(t time.Time) (year int, month time.Month) {
	year, month, _ = c.ShiftDate(t)
	return year, month
}

// StreamKey derives the stable worker-day stream identifier for an instant.
func (c Calendar) StreamKey(workerID uint32, t time.Time) string {
	year, month, day := c.ShiftDate(t)
	return fmt.Sprintf("%d_%04d-%02d-%02d", workerID, year, int(month), day)
}

// StatsKey derives the worker-month projection identity for an instant.
// The format matches pre-existing journals: unpadded "{worker}-{year}-{month}".
func (c Calendar) StatsKey(workerID uint32, t time.Time) string {
	year, month := c.ShiftMonth(t)
	return MonthKey(workerID, year, int(month))
}

// MonthKey formats the worker-month projection identity.
func MonthKey(workerID uint32, year, month int) string {
	return fmt.Sprintf("%d-%d-%d", workerID, year, month)
}
