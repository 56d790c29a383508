// Package fees implements venue A's per-fill taker fee model: the fee-rate
// curve, the two-branch adjusted-order-quantity and effective-unit-cost
// utilities, and the notional floor. Venue B carries no equivalent fee
// correction beyond price rounding, per the Fee Model component.
package fees

import "math"

// OpinionNotionalFloor is the minimum order_size*price venue A accepts for
// a maker placement.
const OpinionNotionalFloor = 1.3

// Rate returns venue A's taker fee rate at price p:
// fee_rate(p) = 0.06*p*(1-p) + 0.0025.
func Rate(p float64) float64 {
	return 0.06*p*(1-p) + 0.0025
}

// AdjustedOrderSize computes the gross order quantity to place on venue A,
// as a taker, so that post-fee fills deliver the target net quantity
// targetNet at price p, given an absolute fee floor minFee.
//
// Two branches:
//   - percentage path: grossQty = targetNet / (1 - fee_rate(p))
//   - floor path (selected when the percentage fee implied by that gross
//     quantity would be <= minFee): grossQty = targetNet + minFee/p
func AdjustedOrderSize(targetNet, p, minFee float64) float64 {
	if p <= 0 {
		return targetNet
	}

	rate := Rate(p)
	provisional := targetNet / (1 - rate)
	feeProvisional := p * provisional * rate

	if feeProvisional <= minFee {
		return targetNet + minFee/p
	}
	return provisional
}

// EffectiveUnitCostOpinion computes venue A's per-token cost including fees
// under the same two-branch rule as AdjustedOrderSize, used directly in
// opportunity scoring.
func EffectiveUnitCostOpinion(p, sizeTokens, minFee float64) float64 {
	if sizeTokens <= 0 {
		return p
	}

	rate := Rate(p)
	value := p * sizeTokens
	percentageFee := value * rate
	fee := math.Max(percentageFee, minFee)

	return p + fee/sizeTokens
}

// EffectiveAmountOpinion is the inverse of AdjustedOrderSize: given a gross
// order amount actually placed, returns the net effective amount delivered
// after fees.
func EffectiveAmountOpinion(orderAmount, p, minFee float64) float64 {
	if p <= 0 {
		return orderAmount
	}
	value := orderAmount * p
	rate := Rate(p)
	fee := math.Max(value*rate, minFee)
	return orderAmount - fee/p
}

// EffectiveUnitCostPolymarket is venue B's effective per-token cost: the
// rounded price plus an optional taker adder (0 for maker-mode hedges,
// which take the visible ask as-is).
func EffectiveUnitCostPolymarket(p float64, takerAdder float64) float64 {
	return roundPrice(p) + takerAdder
}

// GetOrderSize returns (grossOrderSize, effectiveSize) for placing on the
// named venue. Maker orders and venue-B orders never receive a fee
// adjustment: only venue-A taker orders do.
func GetOrderSize(venue string, p, targetAmount, minFee float64, isMaker bool) (grossOrderSize, effectiveSize float64) {
	if venue != "opinion" || isMaker {
		return targetAmount, targetAmount
	}
	gross := AdjustedOrderSize(targetAmount, p, minFee)
	return gross, targetAmount
}

// MeetsNotionalFloor reports whether orderSize*price clears venue A's
// minimum notional for a maker placement.
func MeetsNotionalFloor(orderSize, price float64) bool {
	return orderSize*price >= OpinionNotionalFloor
}

func roundPrice(p float64) float64 {
	const scale = 1000.0
	return math.Round(p*scale) / scale
}
