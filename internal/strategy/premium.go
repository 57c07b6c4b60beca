package strategy

// Premium is the percentage spread of the quote-market price over the
// base-market price after converting the base price into the quote
// currency. A positive value means the asset trades richer on the
// quote market.
func Premium(quotePrice, basePrice, rate float64) float64 {
	return (quotePrice/(basePrice*rate) - 1) * 100
}
