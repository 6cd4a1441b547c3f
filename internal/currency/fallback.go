package currency

// fallbackRates is consulted when the live provider is unreachable. Pairs
// absent here fail conversion outright rather than degrading to a 1:1 rate.
var fallbackRates = map[string]float64{
	"USD-EUR": 0.85,
	"USD-GBP": 0.73,
	"USD-INR": 83.0,
	"EUR-USD": 1.18,
	"EUR-GBP": 0.86,
	"GBP-USD": 1.37,
	"GBP-EUR": 1.16,
	"INR-USD": 0.012,
}

func fallbackRate(from, to string) (float64, bool) {
	rate, ok := fallbackRates[from+"-"+to]
	return rate, ok
}
