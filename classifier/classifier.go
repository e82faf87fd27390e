package classifier

import (
	"time"

	"daypass-monitor/models"
)

// Availability codes the API uses when merely describing a fare
// (the scaler alphabet). These are not the codes the anomaly check keys
// on; the API uses a second alphabet in the anomaly call path, and the
// two must stay separate.
const (
	CodeOriginalHigh     = "A" // original price, high availability
	CodeIncreasedLimited = "B" // increased price, limited availability
	CodeOriginalLimited  = "C" // original price, limited availability
	CodeIncreasedHigh    = "D" // increased price, high availability
)

// nearWindowDays is the last day offset still served from the near-bucket
// baseline: today+9 is near, today+10 and beyond is far.
const nearWindowDays = 9

// baseline holds one bucket's expected prices in the fixed cell order
// (NoDiscount/Second, NoDiscount/First, HalfFare/Second, HalfFare/First)
// plus the single availability code that marks a cell abnormal regardless
// of its price.
type baseline struct {
	prices   [4]int
	abnormal string
}

var (
	// nearBaseline is the increased price table for travel dates within
	// 10 days of today.
	nearBaseline = baseline{prices: [4]int{8800, 8800, 5900, 6600}, abnormal: "F"}

	// farBaseline is the reduced price table for travel dates 10 or more
	// days out.
	farBaseline = baseline{prices: [4]int{5200, 5200, 3900, 4400}, abnormal: "C"}
)

// Classifier flags fare cells that deviate from the date-dependent
// baseline tables
type Classifier struct {
	// Now is injectable for tests; defaults to time.Now
	Now func() time.Time
}

// New creates a Classifier using the wall clock
func New() *Classifier {
	return &Classifier{Now: time.Now}
}

// Classify returns the report's abnormal fare cells, in cell order within
// each date and dates in report order. A cell is abnormal when its price
// differs from the bucket's expected price for its position, or its
// availability code equals the bucket's abnormal code.
//
// Matching against the baseline is positional among the cells actually
// present, not keyed by category/class. If the API ever omits a leading
// or middle cell the remaining ones shift against the expected prices;
// that is how the upstream comparison works and it is kept as is.
func (c *Classifier) Classify(report *models.AvailabilityReport) []models.FareCell {
	today := truncateToDay(c.Now())

	var flagged []models.FareCell
	for _, day := range report.Entries {
		b := bucketFor(daysBetween(today, truncateToDay(day.TravelDate)))
		for i, cell := range day.Cells() {
			if i >= len(b.prices) {
				break
			}
			if cell.Price != b.prices[i] || cell.Availability == b.abnormal {
				flagged = append(flagged, cell)
			}
		}
	}
	return flagged
}

// bucketFor selects the baseline for a travel date delta whole days from
// today. Day 9 is still near; day 10 is far.
func bucketFor(delta int) baseline {
	if delta <= nearWindowDays {
		return nearBaseline
	}
	return farBaseline
}

// daysBetween counts whole calendar days from a to b; both must already
// be truncated to midnight
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
