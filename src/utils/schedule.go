package utils

import (
	"time"

	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
)

// -----------------------------------------------------------------------------

// OperatingSchedule gates the fetch loop to the facility's working hours,
// so the poller is not hammering the spreadsheet API while the line is down.
type OperatingSchedule struct {
	Config models.MScheduleConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOperatingSchedule(cfg models.MScheduleConfig, l *logger.Logger) *OperatingSchedule {
	return &OperatingSchedule{
		Config: cfg,
		Logger: l,
	}
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the facility is operating at the given instant.
// Hours are compared in UTC. A window crossing midnight (close < open)
// is supported; open == close means always open.
func (s *OperatingSchedule) IsOpen(now time.Time) bool {
	if !s.Config.Enabled {
		return true
	}

	openHour := s.Config.OpenHour
	closeHour := s.Config.CloseHour
	if openHour == closeHour {
		return true
	}

	hour := now.UTC().Hour()
	if openHour < closeHour {
		return hour >= openHour && hour < closeHour
	}
	// Overnight window, e.g. 22 -> 6
	return hour >= openHour || hour < closeHour
}
