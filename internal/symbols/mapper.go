package symbols

import "strings"

// ToUpbit converts a pure asset code to the upbit KRW market symbol.
// Examples:
//
//	btc -> KRW-BTC
//	AXS -> KRW-AXS
func ToUpbit(pure string) string {
	return "KRW-" + strings.ToUpper(pure)
}

// ToBinance converts a pure asset code to the binance USDT futures
// symbol, e.g. btc -> BTCUSDT.
func ToBinance(pure string) string {
	return strings.ToUpper(pure) + "USDT"
}

// Pure strips either exchange's market wrapping back to the plain
// asset code. Symbols already in pure form pass through unchanged.
func Pure(sym string) string {
	sym = strings.ToUpper(sym)
	sym = strings.TrimPrefix(sym, "KRW-")
	sym = strings.TrimSuffix(sym, "USDT")
	return sym
}
