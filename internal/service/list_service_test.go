package service

import (
	"context"
	"testing"
	"time"

	"shoplist/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// seedArticle creates a catalog entry with one ledger record
func seedArticle(t *testing.T, f *fixture, actor domain.Actor, name string, category *string, price string) *domain.Article {
	t.Helper()
	article, err := f.catalog.CreateArticle(context.Background(), actor, CreateArticleInput{
		Name:     name,
		Category: category,
		Price:    decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return article
}

func TestAddItemRejectsDuplicateArticle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "1.19")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	_, err = f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	_, err = f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestAddItemRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "1.19")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	_, err = f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.Zero,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestFinalizedListRejectsItemMutation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "1.19")
	other := seedArticle(t, f, actor, "Butter", nil, "2.49")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	item, err := f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = f.list.SetFinalized(ctx, actor, list.ID, true)
	require.NoError(t, err)

	_, err = f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: other.ID,
		Amount:    decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.list.UpdateItem(ctx, actor, list.ID, UpdateItemInput{
		ID:     item.ID,
		Amount: decPtr("3"),
	})
	require.ErrorIs(t, err, ErrConflict)

	err = f.list.RemoveItem(ctx, actor, list.ID, item.ID)
	require.ErrorIs(t, err, ErrConflict)

	// Unfreezing reopens the list
	_, err = f.list.SetFinalized(ctx, actor, list.ID, false)
	require.NoError(t, err)
	_, err = f.list.UpdateItem(ctx, actor, list.ID, UpdateItemInput{
		ID:     item.ID,
		Amount: decPtr("3"),
	})
	require.NoError(t, err)

	// A finalized list can still be deleted as a whole
	_, err = f.list.SetFinalized(ctx, actor, list.ID, true)
	require.NoError(t, err)
	require.NoError(t, f.list.DeleteList(ctx, actor, list.ID))
}

func TestOfferPriceEqualToRegularIsCleared(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "1.19")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	// Matching the ledger price is no override
	item, err := f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID:  article.ID,
		Amount:     decimal.NewFromInt(1),
		OfferPrice: decPtr("1.19"),
	})
	require.NoError(t, err)
	require.Nil(t, item.OfferPrice)

	// A differing offer sticks
	item, err = f.list.UpdateItem(ctx, actor, list.ID, UpdateItemInput{
		ID:         item.ID,
		OfferPrice: decPtr("0.99"),
	})
	require.NoError(t, err)
	require.NotNil(t, item.OfferPrice)
	require.True(t, item.OfferPrice.Equal(decimal.RequireFromString("0.99")))

	// Setting it back to the regular price clears it again
	item, err = f.list.UpdateItem(ctx, actor, list.ID, UpdateItemInput{
		ID:         item.ID,
		OfferPrice: decPtr("1.19"),
	})
	require.NoError(t, err)
	require.Nil(t, item.OfferPrice)
}

func TestItemMutationAdvancesListClock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "1.19")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)
	created := list.UpdatedAt

	time.Sleep(time.Millisecond)
	item, err := f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	list, err = f.list.GetList(ctx, actor, list.ID)
	require.NoError(t, err)
	require.True(t, list.UpdatedAt.After(created))
	require.True(t, list.UpdatedAt.Equal(item.UpdatedAt))
}

func TestCostBreakdownBuckets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	milk := seedArticle(t, f, actor, "Milk", strPtr("Dairy"), "2.00")
	butter := seedArticle(t, f, actor, "Butter", strPtr("Dairy"), "2.00")
	gum := seedArticle(t, f, actor, "Chewing Gum", nil, "1.50")

	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	for article, amount := range map[*domain.Article]int64{milk: 2, butter: 1, gum: 1} {
		_, err := f.list.AddItem(ctx, actor, list.ID, AddItemInput{
			ArticleID: article.ID,
			Amount:    decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
	}

	breakdown, err := f.list.Cost(ctx, actor, list.ID)
	require.NoError(t, err)
	require.Len(t, breakdown, 3)
	require.True(t, breakdown["Dairy"].Equal(decimal.RequireFromString("6.00")))
	require.True(t, breakdown[domain.BucketUncategorized].Equal(decimal.RequireFromString("1.50")))
	require.True(t, breakdown[domain.BucketTotal].Equal(decimal.RequireFromString("7.50")))

	// Reading the cost is pure: a second call returns the same numbers
	again, err := f.list.Cost(ctx, actor, list.ID)
	require.NoError(t, err)
	require.Equal(t, breakdown, again)
}

func TestCostOfEmptyListHasFixedBuckets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	list, err := f.list.CreateList(ctx, actor, "Empty", nil)
	require.NoError(t, err)

	breakdown, err := f.list.Cost(ctx, actor, list.ID)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	require.True(t, breakdown[domain.BucketUncategorized].IsZero())
	require.True(t, breakdown[domain.BucketTotal].IsZero())
}

func TestCostUsesPricesAsOfListClock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	article := seedArticle(t, f, actor, "Milk", nil, "2.00")
	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	_, err = f.list.AddItem(ctx, actor, list.ID, AddItemInput{
		ArticleID: article.ID,
		Amount:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	// A later price change does not affect the untouched list
	time.Sleep(time.Millisecond)
	_, err = f.catalog.UpdateArticle(ctx, actor, UpdateArticleInput{
		ID:    article.ID,
		Price: decPtr("9.99"),
	})
	require.NoError(t, err)

	breakdown, err := f.list.Cost(ctx, actor, list.ID)
	require.NoError(t, err)
	require.True(t, breakdown[domain.BucketTotal].Equal(decimal.RequireFromString("2.00")))

	// Touching the list moves its clock past the new price
	_, err = f.list.SetTitle(ctx, actor, list.ID, "Groceries v2")
	require.NoError(t, err)

	breakdown, err = f.list.Cost(ctx, actor, list.ID)
	require.NoError(t, err)
	require.True(t, breakdown[domain.BucketTotal].Equal(decimal.RequireFromString("9.99")))
}

func TestFindListsByDateRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	past := list.UpdatedAt.Add(-time.Hour)
	future := list.UpdatedAt.Add(time.Hour)

	found, err := f.list.FindLists(ctx, actor, &past, &future)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = f.list.FindLists(ctx, actor, &future, nil)
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = f.list.FindLists(ctx, actor, nil, &past)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestListItemsFilterAndSort(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := testActor()

	milk := seedArticle(t, f, actor, "Whole Milk", nil, "1.19")
	bread := seedArticle(t, f, actor, "Bread", nil, "1.89")

	list, err := f.list.CreateList(ctx, actor, "Groceries", nil)
	require.NoError(t, err)

	for _, article := range []*domain.Article{milk, bread} {
		_, err := f.list.AddItem(ctx, actor, list.ID, AddItemInput{
			ArticleID: article.ID,
			Amount:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)
	}

	views, err := f.list.ListItems(ctx, actor, list.ID, "milk", ItemSortName)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Whole Milk", views[0].ArticleName)

	views, err = f.list.ListItems(ctx, actor, list.ID, "", ItemSortCost)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.True(t, views[0].LineCost.LessThanOrEqual(views[1].LineCost))
}

func TestListOwnershipHidesForeignLists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := testActor()
	stranger := testActor()
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}

	list, err := f.list.CreateList(ctx, owner, "Private", nil)
	require.NoError(t, err)

	_, err = f.list.GetList(ctx, stranger, list.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.list.GetList(ctx, admin, list.ID)
	require.NoError(t, err)
}
