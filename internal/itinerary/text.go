package itinerary

import (
	"fmt"
	"strings"

	"github.com/yourorg/kharkivmetro/internal/metro"
)

var labels = map[metro.Language]map[string]string{
	metro.LangUA: {
		"From":      "Звідки",
		"To":        "Куди",
		"Line":      "Лінія",
		"Time":      "Час",
		"Towards":   "Напрямок",
		"Transfer":  "Пересадка",
		"Departure": "Відправлення",
		"Arrival":   "Прибуття",
		"Station":   "Станція",
		"Hour":      "Година",
		"Minutes":   "Хвилини",
		"min":       "хв",
		"closed":    "Метро закрите та/або на останній потяг неможливо встигнути",
	},
	metro.LangEN: {
		"From":      "From",
		"To":        "To",
		"Line":      "Line",
		"Time":      "Time",
		"Towards":   "Towards",
		"Transfer":  "Transfer",
		"Departure": "Departure",
		"Arrival":   "Arrival",
		"Station":   "Station",
		"Hour":      "Hour",
		"Minutes":   "Minutes",
		"min":       "min",
		"closed":    "The metro is closed or the last train cannot be caught",
	},
}

// Label translates a UI label, returning key itself when it is unknown.
func Label(lang metro.Language, key string) string {
	t, ok := labels[lang]
	if !ok {
		t = labels[metro.LangUA]
	}
	if s, ok := t[key]; ok {
		return s
	}
	return key
}

// ClosedMessage is shown when no itinerary exists because service has ended.
func ClosedMessage(lang metro.Language) string { return Label(lang, "closed") }

// Transfers renders a transfer count with the right plural form.
func Transfers(lang metro.Language, n int) string {
	if lang == metro.LangEN {
		switch n {
		case 0:
			return "no transfers"
		case 1:
			return "1 transfer"
		}
		return fmt.Sprintf("%d transfers", n)
	}
	if n == 0 {
		return "без пересадок"
	}
	switch mod10, mod100 := n%10, n%100; {
	case mod10 == 1 && mod100 != 11:
		return fmt.Sprintf("%d пересадка", n)
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return fmt.Sprintf("%d пересадки", n)
	}
	return fmt.Sprintf("%d пересадок", n)
}

// Summary is the one-line header: "08:30 → 08:54 | 24 min, 1 transfer".
func Summary(rec Record) string {
	return fmt.Sprintf("%s → %s | %d %s, %s",
		rec.DepartureTime, rec.ArrivalTime, rec.TotalDurationMinutes,
		Label(rec.Language, "min"), Transfers(rec.Language, rec.NumTransfers))
}

// Path renders the record inline. Rides are joined with "→", transfers with "⇌".
// Compact records list only the endpoints and transfer stations.
func Path(rec Record) string {
	if len(rec.Segments) == 0 {
		return rec.Origin
	}
	var b strings.Builder
	b.WriteString(rec.Segments[0].FromStation)
	for _, seg := range rec.Segments {
		if seg.FromStationID == seg.ToStationID {
			continue
		}
		if seg.IsTransfer {
			b.WriteString(" ⇌ ")
		} else {
			b.WriteString(" → ")
		}
		b.WriteString(seg.ToStation)
	}
	return b.String()
}
