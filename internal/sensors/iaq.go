package sensors

// Index bands shown on screens and published over MQTT.
const (
	iaqOffset = 50  // index when the signal sits on the baseline
	iaqScale  = 500 // index points per 25% rise over baseline
	iaqMax    = 500
)

// Calculator derives a 0..500 indoor air quality index from the raw
// gas signal. A clean-air baseline is learned as an exponential moving
// average; the index grows with the signal's rise over that baseline.
//
// The baseline chases falling signals quickly (cleaner air becomes the
// new reference) but rising signals very slowly, so a pollution event
// reads as a deviation instead of becoming the new normal.
type Calculator struct {
	warmup     int
	alphaClean float64
	alphaDirty float64

	samples  int
	baseline float64
	index    float64
}

// NewCalculator returns a calculator with the stock tuning: 10
// warmup samples, fast clean-side EMA, slow dirty-side EMA.
func NewCalculator() *Calculator {
	return &Calculator{
		warmup:     10,
		alphaClean: 0.05,
		alphaDirty: 0.002,
	}
}

// Add folds one raw gas sample into the baseline and returns the
// current index. The index is 0 until warmup completes.
func (c *Calculator) Add(raw float64) float64 {
	c.samples++

	if c.samples <= c.warmup {
		// Running mean while warming up.
		c.baseline += (raw - c.baseline) / float64(c.samples)
		c.index = 0
		return c.index
	}

	alpha := c.alphaClean
	if raw > c.baseline {
		alpha = c.alphaDirty
	}
	c.baseline += alpha * (raw - c.baseline)

	deviation := 0.0
	if c.baseline > 0 {
		deviation = (raw - c.baseline) / c.baseline
	}
	c.index = clampIndex(iaqOffset + iaqScale*deviation/0.25)
	return c.index
}

// Ready reports whether warmup has completed and the index is valid.
func (c *Calculator) Ready() bool {
	return c.samples > c.warmup
}

// Index returns the most recent index value.
func (c *Calculator) Index() float64 {
	return c.index
}

// Baseline returns the learned clean-air reference, mainly for
// diagnostics.
func (c *Calculator) Baseline() float64 {
	return c.baseline
}

func clampIndex(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > iaqMax {
		return iaqMax
	}
	return v
}

// IAQBand names an index range for screens and telemetry.
func IAQBand(index float64) string {
	switch {
	case index <= 50:
		return "excellent"
	case index <= 100:
		return "good"
	case index <= 150:
		return "moderate"
	case index <= 250:
		return "poor"
	case index <= 350:
		return "unhealthy"
	default:
		return "severe"
	}
}
