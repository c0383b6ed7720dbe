// Package validation runs data-quality checks over parsed inputs and
// collects human-readable findings for the run report.
package validation

import (
	"fmt"

	"tv-attribution/internal/domain"
)

// Report collects findings by severity. Errors indicate data that likely
// breaks the run's numbers; warnings flag degraded dimensions or suspicious
// values; info records coverage notes.
type Report struct {
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) Infof(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// All returns every finding prefixed with its severity, errors first.
func (r *Report) All() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Warnings)+len(r.Info))
	for _, e := range r.Errors {
		out = append(out, "ERROR: "+e)
	}
	for _, w := range r.Warnings {
		out = append(out, "WARN: "+w)
	}
	for _, i := range r.Info {
		out = append(out, "INFO: "+i)
	}
	return out
}

// CheckSpend inspects parsed ledger rows for degraded dimensions and
// suspicious values.
func CheckSpend(recs []domain.SpendRecord, rep *Report) {
	if len(recs) == 0 {
		rep.Errorf("spend ledger has no usable rows")
		return
	}

	var zeroCost, noWeek, noCreative, noHour, noMarket int
	for _, rec := range recs {
		if rec.Cost == 0 {
			zeroCost++
		}
		if !rec.HasWeek {
			noWeek++
		}
		if !rec.HasCreative {
			noCreative++
		}
		if !rec.HasHour {
			noHour++
		}
		if !rec.HasMarket {
			noMarket++
		}
	}

	if zeroCost > 0 {
		rep.Warnf("spend ledger: %d of %d rows have zero cost", zeroCost, len(recs))
	}
	if noWeek == len(recs) {
		rep.Errorf("spend ledger: no row has a parseable date, weekly tables will be empty")
	} else if noWeek > 0 {
		rep.Warnf("spend ledger: %d of %d rows have no parseable date", noWeek, len(recs))
	}
	if noCreative == len(recs) {
		rep.Infof("spend ledger: no creative column, creative tables will be empty")
	}
	if noHour == len(recs) {
		rep.Infof("spend ledger: no airing time column, hourly tables will be empty")
	}
	if noMarket == len(recs) {
		rep.Infof("spend ledger: no market column")
	}
}

// CheckEvents inspects one mapped event feed. feed names the feed in
// findings, e.g. "actions" or "responses".
func CheckEvents(feed string, events []domain.MappedEvent, rep *Report) {
	if len(events) == 0 {
		rep.Warnf("%s: no mappable rows", feed)
		return
	}

	var noTimestamp, unknownStation, noProbability int
	for i := range events {
		if !events[i].HasTimestamp {
			noTimestamp++
		}
		if events[i].Station == domain.UnknownStation {
			unknownStation++
		}
		if !events[i].HasProbability {
			noProbability++
		}
	}

	if noTimestamp > 0 {
		rep.Warnf("%s: %d of %d events have no timestamp and are excluded from weekly tables",
			feed, noTimestamp, len(events))
	}
	if unknownStation > 0 {
		rep.Warnf("%s: %d of %d events have no station attribution", feed, unknownStation, len(events))
	}
	// Responses never carry probabilities, only the actions feed is
	// expected to.
	if feed == "actions" && noProbability == len(events) {
		rep.Infof("%s: no probability column, dedup ties fall through to timestamps", feed)
	}
}

// CheckPriority flags runs where too few stations carried spend to fill the
// priority list used by deduplication.
func CheckPriority(top []domain.StationRank, rep *Report) {
	const want = 3
	if len(top) == 0 {
		rep.Warnf("station priority: no station had positive spot counts, dedup uses probability only")
		return
	}
	if len(top) < want {
		rep.Infof("station priority: only %d station(s) ranked, top-%d window is short", len(top), want)
	}
}
