package types

import "time"

// WalletBalance is a point-in-time read of a venue wallet's funding state.
// No engine component reads this type; the balance circuit breaker takes
// its USDC balance from its wallet client. A probed balance is distinct
// from the hard fail-stop, which reacts to an actual venue error.
type WalletBalance struct {
	Venue          Venue
	Address        string
	NativeBalance  float64 // gas token (BNB on venue A, MATIC on venue B)
	QuoteBalance   float64 // USDC balance
	QuoteAllowance float64 // USDC allowance granted to the trading contract
	CheckedAt      time.Time
}
