package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/kreeztoph/damaged-trays/src/analysis/core"
	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"
)

// -----------------------------------------------------------------------------

type AnalysisFacade struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// BuildDashboard turns one fetched snapshot into the state served to
// dashboard clients, filtered to the requested range. Each panel is built
// independently: a worksheet that failed to load becomes an entry in
// state.Errors while the remaining panels render from the tables that did
// load.
func (a *AnalysisFacade) BuildDashboard(
	snap *models.MSnapshot,
	sel models.MRangeSelection,
	now time.Time,
	metrics models.MRefreshMetrics,
) *models.MDashboardState {

	start := time.Now()

	state := &models.MDashboardState{
		Type:          "UPDATE",
		TopTrays:      []models.MTrayRecord{},
		Trays:         []models.MTrayRecord{},
		TraySeries:    []models.MSeriesPoint{},
		PLCRows:       []models.MPLCRecord{},
		DailySeries:   []models.MDailyRecord{},
		CounterSeries: []models.MCounterRecord{},
		Range:         sel,
		Errors:        []string{},
		Timestamp:     snap.FetchedAt.Unix(),
	}

	// Surface per-table load failures as inline errors, in a stable order.
	names := a.Config.Sheets.Worksheets
	for _, ws := range []string{names.PLC, names.Memory, names.Daily, names.Counter} {
		if !snap.HasTable(ws) {
			state.Errors = append(state.Errors, fmt.Sprintf("worksheet %s: %s", ws, snap.TableErrors[ws]))
		}
	}

	from, to := a.rangeBounds(sel, now)
	offset := a.Config.Display.UTCOffsetHours

	// 1. Tray panels (memory table)
	trays := filterRange(snap.Trays, func(t models.MTrayRecord) time.Time { return t.LastSeen }, from, to)
	state.Trays = trays
	state.Summary = a.summarize(trays)
	state.TopTrays = core.SelectTop(trays, func(t models.MTrayRecord) float64 { return float64(t.Count) }, a.Config.Display.TopTrays)
	state.TraySeries = a.traySeries(trays, offset)

	// 2. Raw PLC panel
	state.PLCHeaders = snap.PLCHeaders
	state.PLCRows = filterRange(snap.PLC, func(r models.MPLCRecord) time.Time { return r.Timestamp }, from, to)

	// 3. Daily trigger chart
	daily := filterRange(snap.Daily, func(d models.MDailyRecord) time.Time { return d.Date }, from, to)
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })
	state.DailySeries = daily

	// 4. Cumulative counter chart with day-over-day percent change.
	// The derivation runs over the FULL series before range filtering, so
	// the first visible row of a window keeps its true change.
	counters := a.PercentChanges(snap.Counters)
	state.CounterSeries = filterRange(counters, func(c models.MCounterRecord) time.Time { return c.Date }, from, to)

	metrics.BuildSeconds = time.Since(start).Seconds()
	state.Metrics = metrics

	return state
}

// -----------------------------------------------------------------------------

// rangeBounds resolves a range selection into [from, to] instants. The
// zero time means unbounded on that side.
func (a *AnalysisFacade) rangeBounds(sel models.MRangeSelection, now time.Time) (time.Time, time.Time) {
	switch sel.Window {
	case utils.RangeCustom:
		var from, to time.Time
		if sel.From > 0 {
			from = time.Unix(sel.From, 0).UTC()
		}
		if sel.To > 0 {
			to = time.Unix(sel.To, 0).UTC()
		}
		return from, to
	default:
		if dur, ok := utils.RangeDuration(sel.Window); ok {
			return now.Add(-dur), time.Time{}
		}
		return time.Time{}, time.Time{}
	}
}

// -----------------------------------------------------------------------------

func filterRange[T any](items []T, ts func(T) time.Time, from, to time.Time) []T {
	switch {
	case from.IsZero() && to.IsZero():
		out := make([]T, len(items))
		copy(out, items)
		return out
	case to.IsZero():
		return core.FilterSince(items, ts, from)
	case from.IsZero():
		return core.FilterBetween(items, ts, time.Time{}, to)
	default:
		return core.FilterBetween(items, ts, from, to)
	}
}

// -----------------------------------------------------------------------------

// summarize builds the metric tiles. Empty input yields the documented
// defaults (0 counts, "N/A" last scan) rather than an error.
func (a *AnalysisFacade) summarize(trays []models.MTrayRecord) models.MTraySummary {
	summary := models.MTraySummary{
		LastScan: utils.NoData,
	}

	ids := make([]string, len(trays))
	times := make([]time.Time, len(trays))
	for i, t := range trays {
		ids[i] = t.TrayID
		times[i] = t.LastSeen
		summary.TotalScans += t.Count
	}

	summary.UniqueTrays = core.UniqueCount(ids)

	if latest, ok := core.MaxTime(times); ok {
		summary.LastScan = utils.FormatDisplayTime(latest, a.Config.Display.UTCOffsetHours)
		summary.LastScanUnix = latest.Unix()
	}

	return summary
}

// -----------------------------------------------------------------------------

// traySeries prepares the appearances-over-time chart: trays ordered by
// most recent sighting, restricted to repeat offenders (Count > 1).
func (a *AnalysisFacade) traySeries(trays []models.MTrayRecord, offsetHours int) []models.MSeriesPoint {
	sorted := make([]models.MTrayRecord, len(trays))
	copy(sorted, trays)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LastSeen.Before(sorted[j].LastSeen) })

	points := make([]models.MSeriesPoint, 0, len(sorted))
	for _, t := range sorted {
		if t.Count <= 1 {
			continue
		}
		points = append(points, models.MSeriesPoint{
			TrayID:    t.TrayID,
			Count:     t.Count,
			Timestamp: t.LastSeen.Unix(),
			Label:     utils.FormatTableTime(t.LastSeen, offsetHours),
		})
	}
	return points
}

// -----------------------------------------------------------------------------

// PercentChanges derives PctChange for a cumulative counter series in
// date order. The first row has no prior value and yields 0%.
func (a *AnalysisFacade) PercentChanges(counters []models.MCounterRecord) []models.MCounterRecord {
	out := make([]models.MCounterRecord, len(counters))
	copy(out, counters)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	for i := range out {
		if i == 0 {
			out[i].PctChange = 0
			continue
		}
		out[i].PctChange = core.ChangePercent(float64(out[i].Counter), float64(out[i-1].Counter))
	}
	return out
}
