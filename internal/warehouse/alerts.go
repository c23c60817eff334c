package warehouse

import (
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// ThresholdAlerts evaluates every item against its alert percentages.
func (e *Engine) ThresholdAlerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return thresholdAlerts(e.doc.ordered())
}

// thresholdAlerts returns at most one alert per item. An item alerts at
// percentage p when min_poziom·p/100 ≥ stan; of the matching percentages the
// lowest one is reported. Items without a minimum never alert.
func thresholdAlerts(items []*models.Item) []Alert {
	var out []Alert
	for _, it := range items {
		if it.MinPoziom <= 0 {
			continue
		}

		var hit *Alert
		for _, pct := range it.AlertPct() {
			prog := dec(it.MinPoziom).Mul(dec(pct)).Div(dec(100))
			if prog.LessThan(dec(it.Stan)) {
				continue
			}
			hit = &Alert{
				ID:        it.ID,
				Nazwa:     it.Nazwa,
				Stan:      it.Stan,
				MinPoziom: it.MinPoziom,
				ProgPct:   pct,
				Prog:      prog.InexactFloat64(),
			}
		}
		if hit != nil {
			out = append(out, *hit)
		}
	}
	return out
}

func alertsFor(alerts []Alert, id string) []Alert {
	for _, a := range alerts {
		if a.ID == id {
			return []Alert{a}
		}
	}
	return nil
}
