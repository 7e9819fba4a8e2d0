package earning

import (
	"math/rand"
	"sort"
)

// StrategyCount is how many simulated strategies the table holds.
const StrategyCount = 450

// Mainnet router addresses of the DEXes the simulated strategies cycle
// through.
var dexRouters = map[string]string{
	"UNISWAP_V2": "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
	"UNISWAP_V3": "0xE592427A0AEce92De3Edee1F18E0157C05861564",
	"SUSHISWAP":  "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F",
	"CURVE":      "0x99a58482BD75cbab83b27EC03CA68fF489b5788f",
	"BALANCER":   "0xBA12222222228d8Ba445958a75a0704d566BF2C8",
	"ONEINCH":    "0x1111111254EEB25477B68fb85Ed929f73A960582",
	"PARASWAP":   "0xDEF171Fe48CF0115B1d80b88dc8eAB59176FEe57",
	"KYBERSWAP":  "0x6131B5fae19EA4f9D964eAc0408E4408b66337b5",
	"DODO":       "0xa356867fDCEa8e71AEaF87805808803806231FdC",
}

var tokens = map[string]string{
	"WETH":  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"USDC":  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"USDT":  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	"DAI":   "0x6B175474E89094C44Da98b954EedeAC495271d0F",
	"WBTC":  "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
	"LINK":  "0x514910771AF9Ca656af840dff83E8264EcF986CA",
	"UNI":   "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
	"AAVE":  "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9",
	"stETH": "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84",
}

var strategyTypes = []string{
	"sandwich", "frontrun", "backrun", "arbitrage", "liquidation",
	"jit", "flash_swap", "triangular", "cross_dex",
}

// Strategy is one simulated MEV strategy. Only the counters derived from
// the table are meaningful; the table itself is fabricated.
type Strategy struct {
	ID        int     `json:"id"`
	Type      string  `json:"type"`
	DEX       string  `json:"dex"`
	Token     string  `json:"token"`
	APY       float64 `json:"apy"`
	MinProfit float64 `json:"minProfit"` // ETH-equivalent profit per trade
	Active    bool    `json:"active"`
}

// GenerateStrategies builds the strategy table with randomized APY and
// per-trade profit, cycling deterministically through types, DEXes and
// tokens.
func GenerateStrategies(rng *rand.Rand) []Strategy {
	dexNames := sortedKeys(dexRouters)
	tokenNames := sortedKeys(tokens)

	out := make([]Strategy, 0, StrategyCount)
	for i := 0; i < StrategyCount; i++ {
		out = append(out, Strategy{
			ID:        i + 1,
			Type:      strategyTypes[i%len(strategyTypes)],
			DEX:       dexNames[i%len(dexNames)],
			Token:     tokenNames[i%len(tokenNames)],
			APY:       30000 + rng.Float64()*50000,
			MinProfit: 0.001 + rng.Float64()*0.005,
			Active:    true,
		})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// map order is random; keep the table stable across runs
	sort.Strings(keys)
	return keys
}
