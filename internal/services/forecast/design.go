package forecast

import (
	"math"
	"sort"
	"time"

	"IdxLens/internal/domain/models"
)

const secondsPerDay = 86400

// epochDays is the absolute day count used by the Fourier terms so that a
// seasonal phase does not depend on where the history starts.
func epochDays(t time.Time) float64 {
	return float64(models.TruncateDate(t).Unix()) / secondsPerDay
}

// timeline maps calendar dates onto the scaled trend axis: 0 at the first
// record and 1 at the last.
type timeline struct {
	start float64
	span  float64
}

func newTimeline(first, last time.Time) timeline {
	return timeline{start: epochDays(first), span: epochDays(last) - epochDays(first)}
}

func (tl timeline) scale(t time.Time) float64 {
	return (epochDays(t) - tl.start) / tl.span
}

// placeChangepoints returns the scaled positions and dates of the potential
// trend changes. Manual dates must lie strictly inside the history; otherwise
// up to n points are spread over the first cpRange share of the records.
func placeChangepoints(dates []time.Time, tl timeline, o Options) ([]float64, []time.Time, error) {
	if len(o.Changepoints) > 0 {
		first, last := dates[0], dates[len(dates)-1]
		manual := make([]time.Time, 0, len(o.Changepoints))
		for _, cp := range o.Changepoints {
			cp = models.TruncateDate(cp)
			if !cp.After(first) || !cp.Before(last) {
				return nil, nil, models.NewValidationError("changepoints",
					"changepoint "+cp.Format(models.DateLayout)+" is outside the history")
			}
			manual = append(manual, cp)
		}
		sort.Slice(manual, func(i, j int) bool { return manual[i].Before(manual[j]) })
		positions := make([]float64, len(manual))
		for i, cp := range manual {
			positions[i] = tl.scale(cp)
		}
		return positions, manual, nil
	}

	histSize := int(math.Floor(float64(len(dates)) * o.ChangepointRange))
	n := o.NChangepoints
	if n+1 > histSize {
		n = histSize - 1
	}
	if n <= 0 {
		return nil, nil, nil
	}

	positions := make([]float64, 0, n)
	cpDates := make([]time.Time, 0, n)
	last := 0
	step := float64(histSize-1) / float64(n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx <= last {
			continue
		}
		last = idx
		positions = append(positions, tl.scale(dates[idx]))
		cpDates = append(cpDates, dates[idx])
	}
	return positions, cpDates, nil
}

// activeSeasonality is a seasonality selected for the fit, with the column
// offset of its first Fourier term.
type activeSeasonality struct {
	Seasonality
	col int
}

// selectSeasonalities drops the components switched off, and the auto ones
// the history is too short to identify.
func selectSeasonalities(o Options, tl timeline) []activeSeasonality {
	out := make([]activeSeasonality, 0, len(o.Seasonalities))
	for _, s := range o.Seasonalities {
		switch s.Mode {
		case SeasonalityOff:
			continue
		case SeasonalityAuto:
			if tl.span+1 < 2*s.PeriodDays {
				continue
			}
		}
		out = append(out, activeSeasonality{Seasonality: s})
	}
	return out
}

// capOrders lowers each Fourier order to what the observed phases can
// identify: order k needs 2k+1 distinct phases together with the intercept.
// Weekday-only data has five weekly phases, so weekly order 3 becomes 2.
// A component left with no identifiable order is dropped.
func capOrders(seasons []activeSeasonality, dates []time.Time) []activeSeasonality {
	out := seasons[:0]
	for _, s := range seasons {
		phases := make(map[int64]struct{})
		for _, d := range dates {
			phases[int64(math.Round(math.Mod(epochDays(d), s.PeriodDays)*1e6))] = struct{}{}
		}
		if limit := (len(phases) - 1) / 2; s.Order > limit {
			s.Order = limit
		}
		if s.Order >= 1 {
			out = append(out, s)
		}
	}
	return out
}

// layout describes the columns of the design matrix:
// [intercept, slope, changepoint hinges..., fourier terms...].
type layout struct {
	tl           timeline
	changepoints []float64
	seasons      []activeSeasonality
	cols         int
}

const (
	colIntercept = 0
	colSlope     = 1
	colHinges    = 2
)

func newLayout(tl timeline, changepoints []float64, seasons []activeSeasonality) *layout {
	l := &layout{tl: tl, changepoints: changepoints, seasons: seasons}
	col := colHinges + len(changepoints)
	for i := range l.seasons {
		l.seasons[i].col = col
		col += 2 * l.seasons[i].Order
	}
	l.cols = col
	return l
}

// row fills dst with the regressors of date t.
func (l *layout) row(t time.Time, dst []float64) {
	s := l.tl.scale(t)
	dst[colIntercept] = 1
	dst[colSlope] = s
	for j, cp := range l.changepoints {
		dst[colHinges+j] = math.Max(s-cp, 0)
	}
	day := epochDays(t)
	for _, season := range l.seasons {
		for r := 1; r <= season.Order; r++ {
			x := 2 * math.Pi * float64(r) * day / season.PeriodDays
			dst[season.col+2*(r-1)] = math.Sin(x)
			dst[season.col+2*(r-1)+1] = math.Cos(x)
		}
	}
}

// trend evaluates the piecewise-linear trend at scaled time s.
func (l *layout) trend(beta []float64, s float64) float64 {
	v := beta[colIntercept] + beta[colSlope]*s
	for j, cp := range l.changepoints {
		if s > cp {
			v += beta[colHinges+j] * (s - cp)
		}
	}
	return v
}

// seasonal evaluates each seasonal component at t, in layout order.
func (l *layout) seasonal(beta []float64, t time.Time) []float64 {
	if len(l.seasons) == 0 {
		return nil
	}
	day := epochDays(t)
	out := make([]float64, len(l.seasons))
	for i, season := range l.seasons {
		v := 0.0
		for r := 1; r <= season.Order; r++ {
			x := 2 * math.Pi * float64(r) * day / season.PeriodDays
			v += beta[season.col+2*(r-1)]*math.Sin(x) + beta[season.col+2*(r-1)+1]*math.Cos(x)
		}
		out[i] = v
	}
	return out
}

func (l *layout) seasonNames() []string {
	names := make([]string, len(l.seasons))
	for i, s := range l.seasons {
		names[i] = s.Name
	}
	return names
}
