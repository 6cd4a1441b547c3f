package currency

import "go.uber.org/fx"

var Module = fx.Module("currency.converter",
	fx.Provide(
		func(p *HTTPRateProvider) RateProvider { return p },
		NewHTTPRateProvider,
		NewConverter,
	),
)
