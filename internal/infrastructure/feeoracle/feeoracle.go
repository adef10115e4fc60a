// Package feeoracle supplies a sat/vB fee rate, following the teacher's
// config.EsploraURL pattern (internal/config/config.go) for its primary
// HTTP provider, with a Bitcoin-node RPC fallback and a fixed regtest
// mode.
package feeoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vortexlabs/vortexd/internal/core/ports"
)

const regtestFeeRate = 1

type feeOracle struct {
	esploraURL string
	httpClient *http.Client
	fallback   ports.ChainClient
	regtest    bool
}

func New(esploraURL string, fallback ports.ChainClient, regtest bool) ports.FeeOracle {
	return &feeOracle{
		esploraURL: esploraURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		fallback:   fallback,
		regtest:    regtest,
	}
}

func (f *feeOracle) FeeRate(ctx context.Context) (int64, error) {
	if f.regtest {
		return regtestFeeRate, nil
	}

	rate, err := f.fromEsplora(ctx)
	if err == nil {
		return rate, nil
	}

	if f.fallback == nil {
		return 0, fmt.Errorf("esplora fee estimate failed and no fallback configured: %w", err)
	}
	return f.fallback.EstimateSmartFee(ctx, 2)
}

func (f *feeOracle) fromEsplora(ctx context.Context) (int64, error) {
	if f.esploraURL == "" {
		return 0, fmt.Errorf("no esplora url configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.esploraURL+"/fee-estimates", nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("esplora returned status %d", resp.StatusCode)
	}

	var estimates map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&estimates); err != nil {
		return 0, fmt.Errorf("decode fee estimates: %w", err)
	}

	rate, ok := estimates["2"]
	if !ok {
		for _, v := range estimates {
			rate = v
			break
		}
	}
	if rate <= 0 {
		return 0, fmt.Errorf("esplora returned non-positive fee rate")
	}
	return int64(rate), nil
}
