package currency

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type converter struct {
	provider RateProvider
	log      *zap.Logger
}

func NewConverter(provider RateProvider, log *zap.Logger) Converter {
	return &converter{
		provider: provider,
		log:      log.Named("currency.converter"),
	}
}

func (c *converter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if len(from) != 3 || len(to) != 3 {
		return 0, ErrInvalidCurrency
	}

	if from == to {
		return amount, nil
	}

	rates, err := c.provider.Rates(ctx, from)
	if err == nil {
		if rate, ok := rates[to]; ok && rate > 0 {
			return amount * rate, nil
		}
		c.log.Warn("provider response missing target currency",
			zap.String("from", from),
			zap.String("to", to),
		)
	} else {
		c.log.Warn("exchange rate provider failed, using fallback table",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
	}

	if rate, ok := fallbackRate(from, to); ok {
		return amount * rate, nil
	}

	return 0, ErrRateUnavailable
}
