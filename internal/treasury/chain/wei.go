package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiToETH converts a wei amount to ETH.
func WeiToETH(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}

// ETHToWei converts an ETH amount to wei, truncating below 1 wei.
func ETHToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(18).Truncate(0).BigInt()
}
