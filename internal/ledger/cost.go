package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"shoplist/internal/domain"
)

// CostedItem bundles a list item with the catalog data needed to price it:
// the name of the article's category (nil when uncategorized) and the
// article's full price history.
type CostedItem struct {
	Item     domain.ShoppingListItem
	Category *string
	Prices   []domain.Price
}

// UnitPrice returns the effective unit price of an item as of the given
// instant, normally the parent list's updated_at. The offer price applies
// only while it differs from the regular ledger price resolved at that
// instant; an offer matching the regular price falls through to the ledger.
func UnitPrice(item domain.ShoppingListItem, prices []domain.Price, at time.Time) (decimal.Decimal, error) {
	regular, err := Resolve(prices, &at)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if item.OfferPrice != nil && !item.OfferPrice.Equal(regular.Price) {
		return *item.OfferPrice, nil
	}

	return regular.Price, nil
}

// Breakdown computes the bucketed cost of a list's items as of the given
// instant: amount times unit price summed per category bucket, with the
// uncategorized bucket collecting items whose article has no category and
// the total bucket equal to the sum of all others. The two fixed buckets
// are always present, even for an empty list. Pure function of its inputs.
func Breakdown(items []CostedItem, at time.Time) (domain.CostBreakdown, error) {
	breakdown := domain.CostBreakdown{
		domain.BucketUncategorized: decimal.Zero,
	}

	total := decimal.Zero
	for _, ci := range items {
		unit, err := UnitPrice(ci.Item, ci.Prices, at)
		if err != nil {
			return nil, err
		}

		cost := ci.Item.Amount.Mul(unit)

		bucket := domain.BucketUncategorized
		if ci.Category != nil {
			bucket = *ci.Category
		}
		breakdown[bucket] = breakdown[bucket].Add(cost)
		total = total.Add(cost)
	}

	breakdown[domain.BucketTotal] = total
	return breakdown, nil
}
