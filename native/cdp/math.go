package cdp

import "math/big"

var basisPoints = big.NewInt(10_000)

// maxMintable returns floor(collateral * price / ratio). Ratios are whole
// percentages and are applied without further scaling.
func maxMintable(collateral, price *big.Int, ratio uint64) *big.Int {
	if collateral == nil || price == nil || ratio == 0 {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(collateral, price)
	return value.Quo(value, new(big.Int).SetUint64(ratio))
}

// collateralRatio returns floor(collateral * price / liability). Callers must
// special-case zero liability, which has no defined ratio.
func collateralRatio(collateral, price, liability *big.Int) *big.Int {
	if liability == nil || liability.Sign() == 0 {
		return nil
	}
	value := new(big.Int).Mul(collateral, price)
	return value.Quo(value, liability)
}

func feeFor(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return fee.Quo(fee, basisPoints)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
