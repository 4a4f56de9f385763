package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

// fmt8 formats v with 8 decimal places as a string, matching the
// Binance-style wire convention price/qty fields use (§6.3: `price
// ("%.8f")`). Built on shopspring/decimal to avoid float->string rounding
// artifacts (the same guard web3guy0-polybot's database layer applies by
// storing decimal.Decimal columns instead of raw float64).
func fmt8(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(8)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
