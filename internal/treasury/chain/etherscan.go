package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Etherscan queries the explorer's account API. It is the balance fallback
// when every RPC endpoint is down.
type Etherscan struct {
	client *resty.Client
	apiKey string
}

// NewEtherscan builds a client for the given API base URL, e.g.
// "https://api.etherscan.io/api".
func NewEtherscan(baseURL, apiKey string, timeout time.Duration) *Etherscan {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Etherscan{client: client, apiKey: apiKey}
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// AccountBalance returns the address balance in ETH.
func (e *Etherscan) AccountBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var out etherscanResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":  "account",
			"action":  "balance",
			"address": address,
			"tag":     "latest",
			"apikey":  e.apiKey,
		}).
		SetResult(&out).
		Get("")
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "etherscan request")
	}
	if !resp.IsSuccess() {
		return decimal.Zero, errors.Errorf("etherscan status %d", resp.StatusCode())
	}
	if out.Status != "1" {
		return decimal.Zero, errors.Errorf("etherscan error: %s", out.Message)
	}
	wei, ok := new(big.Int).SetString(out.Result, 10)
	if !ok {
		return decimal.Zero, errors.Errorf("etherscan bad balance %q", out.Result)
	}
	return WeiToETH(wei), nil
}
