package alert

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Daily calls fn every day at hour:minute in loc until ctx is done.
func Daily(ctx context.Context, hour, minute int, loc *time.Location, logger *zap.Logger, fn func(context.Context)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		next := NextRun(time.Now(), hour, minute, loc)
		logger.Info("next alert run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("alert scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}
		fn(ctx)
	}
}
