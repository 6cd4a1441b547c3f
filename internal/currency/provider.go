package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/expensio/internal/config"
)

// HTTPRateProvider calls an exchangerate-api compatible endpoint:
// GET {base_url}/v4/latest/{BASE} -> {"base": "...", "rates": {"CODE": factor}}.
type HTTPRateProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRateProvider(cfg config.Config) *HTTPRateProvider {
	return &HTTPRateProvider{
		baseURL: strings.TrimRight(cfg.ExchangeRateBaseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (p *HTTPRateProvider) Rates(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/v4/latest/%s", p.baseURL, strings.ToUpper(base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate provider returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode exchange rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate response missing rates for %s", base)
	}

	return body.Rates, nil
}
