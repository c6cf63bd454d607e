package indicator

// Standard MACD parameters.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDSeries returns the MACD line (EMA12 - EMA26), its signal line
// (EMA9 of MACD) and the histogram for every index of closes.
func MACDSeries(closes []float64) (line, signal, hist []float64) {
	fast := EMASeries(closes, MACDFast)
	slow := EMASeries(closes, MACDSlow)

	line = nanSeries(len(closes))
	for i := range closes {
		if defined(fast[i]) && defined(slow[i]) {
			line[i] = fast[i] - slow[i]
		}
	}

	signal = EMASeries(line, MACDSignal)
	hist = nanSeries(len(closes))
	for i := range closes {
		if defined(line[i]) && defined(signal[i]) {
			hist[i] = line[i] - signal[i]
		}
	}
	return line, signal, hist
}
