package core

// Account is the wallet: realized-only balance plus fee/funding tallies.
// The Executor exclusively owns mutation of an Account's balance and fee
// totals (§3 ownership rules).
type Account struct {
	Balance         float64
	StartingBalance float64
	MakerFee        float64
	TakerFee        float64
	TotalFees       float64
	TotalFunding    float64
}

// NewAccount seeds an Account at startingBalance with the given fee rates
// (e.g. 0.0002 for 2bps).
func NewAccount(startingBalance, makerFee, takerFee float64) *Account {
	return &Account{
		Balance:         startingBalance,
		StartingBalance: startingBalance,
		MakerFee:        makerFee,
		TakerFee:        takerFee,
	}
}

// FeeFor returns the fee for a fill at price*qty under the maker/taker rate.
func (a *Account) FeeFor(price, qty float64, isMaker bool) float64 {
	rate := a.TakerFee
	if isMaker {
		rate = a.MakerFee
	}
	return price * qty * rate
}

// ApplyFill books realized PnL, deducts the fee and accumulates it.
func (a *Account) ApplyFill(realizedPnL, fee float64) {
	a.Balance += realizedPnL
	a.Balance -= fee
	a.TotalFees += fee
}

// ApplyFunding debits/credits the account by payment and accumulates it.
func (a *Account) ApplyFunding(payment float64) {
	a.Balance -= payment
	a.TotalFunding += payment
}

// EquitySample is one point on the equity curve (§3).
type EquitySample struct {
	TsMs   int64
	Equity float64
}

// Run is the metadata record created once per engine construction (§3).
type Run struct {
	RunID         string
	StrategyLabel string
	Params        map[string]any
	StartMs       int64
	EndMs         int64
	FeeConfig     FeeConfig
}

// FeeConfig mirrors the fee/slippage knobs a Run was constructed with.
type FeeConfig struct {
	MakerFee    float64
	TakerFee    float64
	SlippageBps float64
}
