// Package seed loads the reference data signup depends on: countries with
// their reporting currency, and the currencies themselves.
package seed

import (
	"context"
	"errors"
	"time"

	referencedomain "github.com/smallbiznis/expensio/internal/reference/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type countrySeed struct {
	code     string
	name     string
	currency string
}

type currencySeed struct {
	code   string
	name   string
	symbol string
}

var countries = []countrySeed{
	{"US", "United States", "USD"},
	{"GB", "United Kingdom", "GBP"},
	{"IN", "India", "INR"},
	{"DE", "Germany", "EUR"},
	{"FR", "France", "EUR"},
	{"ES", "Spain", "EUR"},
	{"IT", "Italy", "EUR"},
	{"NL", "Netherlands", "EUR"},
	{"IE", "Ireland", "EUR"},
	{"CA", "Canada", "CAD"},
	{"AU", "Australia", "AUD"},
	{"JP", "Japan", "JPY"},
	{"SG", "Singapore", "SGD"},
	{"ID", "Indonesia", "IDR"},
	{"BR", "Brazil", "BRL"},
	{"MX", "Mexico", "MXN"},
	{"CH", "Switzerland", "CHF"},
	{"SE", "Sweden", "SEK"},
	{"NO", "Norway", "NOK"},
	{"NZ", "New Zealand", "NZD"},
}

var currencies = []currencySeed{
	{"USD", "US Dollar", "$"},
	{"EUR", "Euro", "€"},
	{"GBP", "Pound Sterling", "£"},
	{"INR", "Indian Rupee", "₹"},
	{"CAD", "Canadian Dollar", "$"},
	{"AUD", "Australian Dollar", "$"},
	{"JPY", "Japanese Yen", "¥"},
	{"SGD", "Singapore Dollar", "$"},
	{"IDR", "Indonesian Rupiah", "Rp"},
	{"BRL", "Brazilian Real", "R$"},
	{"MXN", "Mexican Peso", "$"},
	{"CHF", "Swiss Franc", "Fr"},
	{"SEK", "Swedish Krona", "kr"},
	{"NOK", "Norwegian Krone", "kr"},
	{"NZD", "New Zealand Dollar", "$"},
}

// EnsureReferenceData upserts the reference tables. Safe to run on every
// startup.
func EnsureReferenceData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range countries {
			row := referencedomain.Country{
				Code:         c.code,
				Name:         c.name,
				CurrencyCode: c.currency,
				CreatedAt:    now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "currency_code"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}

		for _, c := range currencies {
			symbol := c.symbol
			row := referencedomain.Currency{
				Code:      c.code,
				Name:      c.name,
				Symbol:    &symbol,
				IsActive:  true,
				CreatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "symbol"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
