package rankingdomain

import "math"

// PPInput is everything a pp strategy may look at.
type PPInput struct {
	Accuracy        float64
	Context         Context
	Modifiers       []string
	ModifierValues  ModifierValues
	ModifierRatings *ModifierRatings
	AccRating       float64
	PassRating      float64
	TechRating      float64
	StandardMode    bool
	PPBearing       bool
}

// PPResult is a pp value and its components.
type PPResult struct {
	PP      float64
	BonusPP float64
	PassPP  float64
	AccPP   float64
	TechPP  float64
}

// Sanitized returns r with every NaN or infinite component replaced by zero.
func (r PPResult) Sanitized() PPResult {
	return PPResult{
		PP:      Sanitize(r.PP),
		BonusPP: Sanitize(r.BonusPP),
		PassPP:  Sanitize(r.PassPP),
		AccPP:   Sanitize(r.AccPP),
		TechPP:  Sanitize(r.TechPP),
	}
}

// PPCalculator maps accuracy and difficulty ratings to pp. Implementations must
// be pure and return zero for every component when the input is not pp-bearing.
type PPCalculator interface {
	Calculate(in PPInput) PPResult
}

// ComputePP applies the context rules around a calculator call: non pp-bearing
// input short-circuits to zero, Golf inverts accuracy and the result is
// sanitized regardless of what the calculator returned.
func ComputePP(calc PPCalculator, in PPInput) PPResult {
	if !in.PPBearing || calc == nil {
		return PPResult{}
	}
	if in.Context == ContextGolf {
		in.Accuracy = 1 - in.Accuracy
	}
	return calc.Calculate(in).Sanitized()
}

// CurvePoint maps an accuracy to a multiplier on the accuracy curve.
type CurvePoint struct {
	Accuracy   float64
	Multiplier float64
}

// DefaultAccuracyCurve is ordered by accuracy, highest first.
var DefaultAccuracyCurve = []CurvePoint{
	{1.0, 7.424}, {0.999, 6.241}, {0.9975, 5.158}, {0.995, 4.010}, {0.9925, 3.241},
	{0.99, 2.700}, {0.9875, 2.303}, {0.985, 2.007}, {0.9825, 1.786}, {0.98, 1.618},
	{0.9775, 1.490}, {0.975, 1.392}, {0.9725, 1.315}, {0.97, 1.256}, {0.965, 1.167},
	{0.96, 1.094}, {0.955, 1.039}, {0.95, 1.000}, {0.94, 0.931}, {0.93, 0.867},
	{0.92, 0.813}, {0.91, 0.768}, {0.9, 0.729}, {0.875, 0.650}, {0.85, 0.581},
	{0.825, 0.522}, {0.8, 0.473}, {0.75, 0.404}, {0.7, 0.345}, {0.65, 0.296},
	{0.6, 0.256}, {0.0, 0.0},
}

// CurveCalculator is the default pp strategy: an accuracy curve scaled by the
// acc rating, an exponential pass component and an exponential tech component,
// with the total inflated towards the top end.
type CurveCalculator struct {
	Curve []CurvePoint
}

// NewCurveCalculator returns a calculator using DefaultAccuracyCurve.
func NewCurveCalculator() *CurveCalculator {
	return &CurveCalculator{Curve: DefaultAccuracyCurve}
}

// Calculate implements PPCalculator.
func (c *CurveCalculator) Calculate(in PPInput) PPResult {
	if !in.PPBearing {
		return PPResult{}
	}

	values := in.ModifierValues
	if values == nil {
		values = DefaultModifierValues()
	}

	acc, pass, tech := in.AccRating, in.PassRating, in.TechRating
	speedRated := false
	if a, p, t, ok := in.ModifierRatings.RatingsFor(in.Modifiers); ok {
		acc, pass, tech = a, p, t
		speedRated = true
	}

	mult := values.TotalMultiplier(in.Modifiers, !speedRated)
	acc *= mult
	pass *= mult
	tech *= mult

	passPP := 15.2*math.Exp(math.Pow(pass, 1/2.62)) - 30
	if math.IsNaN(passPP) || math.IsInf(passPP, 0) || passPP < 0 {
		passPP = 0
	}
	accPP := c.curve(in.Accuracy) * acc * 34
	techPP := 0.0
	if in.StandardMode {
		techPP = math.Exp(1.9*in.Accuracy) * 1.08 * tech
	}

	raw := Sanitize(passPP) + Sanitize(accPP) + Sanitize(techPP)
	if raw <= 0 {
		return PPResult{}
	}
	total := inflate(raw)
	scale := total / raw

	return PPResult{
		PP:     total,
		PassPP: passPP * scale,
		AccPP:  accPP * scale,
		TechPP: techPP * scale,
	}.Sanitized()
}

func (c *CurveCalculator) curve(accuracy float64) float64 {
	points := c.Curve
	if len(points) == 0 {
		points = DefaultAccuracyCurve
	}
	if accuracy >= points[0].Accuracy {
		return points[0].Multiplier
	}
	for i := 1; i < len(points); i++ {
		hi, lo := points[i-1], points[i]
		if accuracy >= lo.Accuracy {
			t := (accuracy - lo.Accuracy) / (hi.Accuracy - lo.Accuracy)
			return lo.Multiplier + t*(hi.Multiplier-lo.Multiplier)
		}
	}
	return points[len(points)-1].Multiplier
}

func inflate(pp float64) float64 {
	return 650 * math.Pow(pp, 1.3) / math.Pow(650, 1.3)
}
