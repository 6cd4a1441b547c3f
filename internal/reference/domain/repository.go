package domain

import "context"

type Repository interface {
	ListCountries(ctx context.Context) ([]Country, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	GetCountry(ctx context.Context, code string) (*Country, error)
	CurrencyExists(ctx context.Context, code string) (bool, error)
}
