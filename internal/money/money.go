// Package money renders amounts for people.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/kassa/internal/model"
)

// Format returns amount with the digit grouping of lang, followed by the
// ISO currency code: "25,000 UZS" for English. No fraction digits are shown;
// amounts are whole currency units.
//
// An unparseable language tag falls back to English.
func Format(amount model.Money, currency, lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	if currency == "" {
		return p.Sprintf("%d", int64(amount))
	}
	return p.Sprintf("%d %s", int64(amount), currency)
}
