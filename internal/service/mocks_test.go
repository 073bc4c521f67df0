package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"shoplist/internal/domain"
	"shoplist/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes mirroring the Postgres implementations'
// sentinel errors and side effects (list touching, orphan collection,
// cascading price deletion).

type memRefRepo struct {
	refs     map[uuid.UUID]*domain.Reference
	articles *memArticleRepo
	column   func(*domain.Article) *uuid.UUID
}

func newMemRefRepo(articles *memArticleRepo, column func(*domain.Article) *uuid.UUID) *memRefRepo {
	return &memRefRepo{
		refs:     make(map[uuid.UUID]*domain.Reference),
		articles: articles,
		column:   column,
	}
}

func (m *memRefRepo) nameTaken(ownerID uuid.UUID, name string, except uuid.UUID) bool {
	for _, ref := range m.refs {
		if ref.ID != except && ref.OwnerID == ownerID && strings.EqualFold(ref.Name, name) {
			return true
		}
	}
	return false
}

func (m *memRefRepo) inUse(id uuid.UUID) bool {
	for _, article := range m.articles.articles {
		if ref := m.column(article); ref != nil && *ref == id {
			return true
		}
	}
	return false
}

func (m *memRefRepo) Create(ctx context.Context, ref *domain.Reference) error {
	if m.nameTaken(ref.OwnerID, ref.Name, ref.ID) {
		return repository.ErrReferenceNameTaken
	}
	copied := *ref
	m.refs[ref.ID] = &copied
	return nil
}

func (m *memRefRepo) Rename(ctx context.Context, ref *domain.Reference) error {
	stored, ok := m.refs[ref.ID]
	if !ok {
		return repository.ErrReferenceNotFound
	}
	if m.nameTaken(ref.OwnerID, ref.Name, ref.ID) {
		return repository.ErrReferenceNameTaken
	}
	stored.Name = ref.Name
	stored.UpdatedAt = ref.UpdatedAt
	return nil
}

func (m *memRefRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.refs[id]; !ok {
		return repository.ErrReferenceNotFound
	}
	if m.inUse(id) {
		return repository.ErrReferenceInUse
	}
	delete(m.refs, id)
	return nil
}

func (m *memRefRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reference, error) {
	ref, ok := m.refs[id]
	if !ok {
		return nil, repository.ErrReferenceNotFound
	}
	copied := *ref
	return &copied, nil
}

func (m *memRefRepo) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Reference, error) {
	for _, ref := range m.refs {
		if ref.OwnerID == ownerID && strings.EqualFold(ref.Name, name) {
			copied := *ref
			return &copied, nil
		}
	}
	return nil, repository.ErrReferenceNotFound
}

func (m *memRefRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Reference, error) {
	refs := []*domain.Reference{}
	for _, ref := range m.refs {
		if ref.OwnerID == ownerID {
			copied := *ref
			refs = append(refs, &copied)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].Name) < strings.ToLower(refs[j].Name)
	})
	return refs, nil
}

func (m *memRefRepo) DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := m.refs[id]; !ok {
		return false, nil
	}
	if m.inUse(id) {
		return false, nil
	}
	delete(m.refs, id)
	return true, nil
}

type memPriceRepo struct {
	prices map[uuid.UUID][]domain.Price
}

func newMemPriceRepo() *memPriceRepo {
	return &memPriceRepo{prices: make(map[uuid.UUID][]domain.Price)}
}

func (m *memPriceRepo) Create(ctx context.Context, price *domain.Price) error {
	m.prices[price.ArticleID] = append(m.prices[price.ArticleID], *price)
	return nil
}

func (m *memPriceRepo) ListByArticle(ctx context.Context, articleID uuid.UUID) ([]domain.Price, error) {
	history := append([]domain.Price{}, m.prices[articleID]...)
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
	return history, nil
}

func (m *memPriceRepo) ListByArticles(ctx context.Context, articleIDs []uuid.UUID) (map[uuid.UUID][]domain.Price, error) {
	histories := make(map[uuid.UUID][]domain.Price, len(articleIDs))
	for _, id := range articleIDs {
		history, _ := m.ListByArticle(ctx, id)
		if len(history) > 0 {
			histories[id] = history
		}
	}
	return histories, nil
}

type memArticleRepo struct {
	articles map[uuid.UUID]*domain.Article
	prices   *memPriceRepo
	items    *memItemRepo
}

func newMemArticleRepo(prices *memPriceRepo) *memArticleRepo {
	return &memArticleRepo{
		articles: make(map[uuid.UUID]*domain.Article),
		prices:   prices,
	}
}

func (m *memArticleRepo) nameTaken(article *domain.Article) bool {
	for _, other := range m.articles {
		if other.ID == article.ID || other.OwnerID != article.OwnerID {
			continue
		}
		if !strings.EqualFold(other.Name, article.Name) {
			continue
		}
		sameStore := (other.StoreID == nil && article.StoreID == nil) ||
			(other.StoreID != nil && article.StoreID != nil && *other.StoreID == *article.StoreID)
		if sameStore {
			return true
		}
	}
	return false
}

func (m *memArticleRepo) Create(ctx context.Context, article *domain.Article, initialPrice *domain.Price) error {
	if m.nameTaken(article) {
		return repository.ErrArticleNameTaken
	}
	copied := *article
	m.articles[article.ID] = &copied
	if initialPrice != nil {
		m.prices.Create(ctx, initialPrice)
	}
	return nil
}

func (m *memArticleRepo) Update(ctx context.Context, article *domain.Article, newPrice *domain.Price) error {
	if _, ok := m.articles[article.ID]; !ok {
		return repository.ErrArticleNotFound
	}
	if m.nameTaken(article) {
		return repository.ErrArticleNameTaken
	}
	copied := *article
	m.articles[article.ID] = &copied
	if newPrice != nil {
		m.prices.Create(ctx, newPrice)
	}
	return nil
}

func (m *memArticleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.articles[id]; !ok {
		return repository.ErrArticleNotFound
	}
	delete(m.articles, id)
	delete(m.prices.prices, id)
	return nil
}

func (m *memArticleRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	article, ok := m.articles[id]
	if !ok {
		return nil, repository.ErrArticleNotFound
	}
	copied := *article
	return &copied, nil
}

func (m *memArticleRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, nameFilter string) ([]*domain.Article, error) {
	articles := []*domain.Article{}
	for _, article := range m.articles {
		if article.OwnerID != ownerID {
			continue
		}
		if nameFilter != "" && !strings.Contains(strings.ToLower(article.Name), strings.ToLower(nameFilter)) {
			continue
		}
		copied := *article
		articles = append(articles, &copied)
	}
	sort.Slice(articles, func(i, j int) bool {
		return strings.ToLower(articles[i].Name) < strings.ToLower(articles[j].Name)
	})
	return articles, nil
}

func (m *memArticleRepo) HasListItems(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.items == nil {
		return false, nil
	}
	for _, item := range m.items.items {
		if item.ArticleID == id {
			return true, nil
		}
	}
	return false, nil
}

type memListRepo struct {
	lists map[uuid.UUID]*domain.ShoppingList
}

func newMemListRepo() *memListRepo {
	return &memListRepo{lists: make(map[uuid.UUID]*domain.ShoppingList)}
}

func (m *memListRepo) Create(ctx context.Context, list *domain.ShoppingList) error {
	copied := *list
	m.lists[list.ID] = &copied
	return nil
}

func (m *memListRepo) Update(ctx context.Context, list *domain.ShoppingList) error {
	if _, ok := m.lists[list.ID]; !ok {
		return repository.ErrListNotFound
	}
	copied := *list
	m.lists[list.ID] = &copied
	return nil
}

func (m *memListRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.lists[id]; !ok {
		return repository.ErrListNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *memListRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingList, error) {
	list, ok := m.lists[id]
	if !ok {
		return nil, repository.ErrListNotFound
	}
	copied := *list
	return &copied, nil
}

func (m *memListRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]*domain.ShoppingList, error) {
	lists := []*domain.ShoppingList{}
	for _, list := range m.lists {
		if list.OwnerID != ownerID {
			continue
		}
		if from != nil && list.UpdatedAt.Before(*from) {
			continue
		}
		if to != nil && list.UpdatedAt.After(*to) {
			continue
		}
		copied := *list
		lists = append(lists, &copied)
	}
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].UpdatedAt.After(lists[j].UpdatedAt)
	})
	return lists, nil
}

type memItemRepo struct {
	items      map[uuid.UUID]*domain.ShoppingListItem
	lists      *memListRepo
	articles   *memArticleRepo
	categories *memRefRepo
}

func newMemItemRepo(lists *memListRepo, articles *memArticleRepo, categories *memRefRepo) *memItemRepo {
	repo := &memItemRepo{
		items:      make(map[uuid.UUID]*domain.ShoppingListItem),
		lists:      lists,
		articles:   articles,
		categories: categories,
	}
	articles.items = repo
	return repo
}

func (m *memItemRepo) touch(listID uuid.UUID, at time.Time) error {
	list, ok := m.lists.lists[listID]
	if !ok {
		return repository.ErrListNotFound
	}
	list.UpdatedAt = at
	return nil
}

func (m *memItemRepo) Create(ctx context.Context, item *domain.ShoppingListItem) error {
	for _, other := range m.items {
		if other.ListID == item.ListID && other.ArticleID == item.ArticleID {
			return repository.ErrDuplicateArticle
		}
	}
	copied := *item
	m.items[item.ID] = &copied
	return m.touch(item.ListID, item.UpdatedAt)
}

func (m *memItemRepo) Update(ctx context.Context, item *domain.ShoppingListItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrListItemNotFound
	}
	for _, other := range m.items {
		if other.ID != item.ID && other.ListID == item.ListID && other.ArticleID == item.ArticleID {
			return repository.ErrDuplicateArticle
		}
	}
	copied := *item
	m.items[item.ID] = &copied
	return m.touch(item.ListID, item.UpdatedAt)
}

func (m *memItemRepo) Delete(ctx context.Context, id, listID uuid.UUID, at time.Time) error {
	item, ok := m.items[id]
	if !ok || item.ListID != listID {
		return repository.ErrListItemNotFound
	}
	delete(m.items, id)
	return m.touch(listID, at)
}

func (m *memItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.ShoppingListItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrListItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memItemRepo) ListByList(ctx context.Context, listID uuid.UUID) ([]repository.ListItemRow, error) {
	rows := []repository.ListItemRow{}
	for _, item := range m.items {
		if item.ListID != listID {
			continue
		}
		row := repository.ListItemRow{Item: *item}
		if article, ok := m.articles.articles[item.ArticleID]; ok {
			row.ArticleName = article.Name
			if article.CategoryID != nil {
				if category, ok := m.categories.refs[*article.CategoryID]; ok {
					name := category.Name
					row.CategoryName = &name
				}
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Item.CreatedAt.Before(rows[j].Item.CreatedAt)
	})
	return rows, nil
}

func (m *memItemRepo) HasArticle(ctx context.Context, listID, articleID uuid.UUID) (bool, error) {
	for _, item := range m.items {
		if item.ListID == listID && item.ArticleID == articleID {
			return true, nil
		}
	}
	return false, nil
}

type memCostRepo struct {
	rows map[uuid.UUID][]domain.ShoppingListCost
}

func newMemCostRepo() *memCostRepo {
	return &memCostRepo{rows: make(map[uuid.UUID][]domain.ShoppingListCost)}
}

func (m *memCostRepo) ListByList(ctx context.Context, listID uuid.UUID) ([]domain.ShoppingListCost, error) {
	return append([]domain.ShoppingListCost{}, m.rows[listID]...), nil
}

func (m *memCostRepo) Replace(ctx context.Context, listID uuid.UUID, rows []domain.ShoppingListCost) error {
	m.rows[listID] = append([]domain.ShoppingListCost{}, rows...)
	return nil
}

// fixture wires the fakes into the full service layer for one test
type fixture struct {
	stores     *memRefRepo
	categories *memRefRepo
	brands     *memRefRepo
	articles   *memArticleRepo
	prices     *memPriceRepo
	lists      *memListRepo
	items      *memItemRepo
	costs      *memCostRepo

	catalog CatalogService
	list    ListService
	cache   CostCacheService
}

func newFixture() *fixture {
	prices := newMemPriceRepo()
	articles := newMemArticleRepo(prices)
	stores := newMemRefRepo(articles, func(a *domain.Article) *uuid.UUID { return a.StoreID })
	categories := newMemRefRepo(articles, func(a *domain.Article) *uuid.UUID { return a.CategoryID })
	brands := newMemRefRepo(articles, func(a *domain.Article) *uuid.UUID { return a.BrandID })
	lists := newMemListRepo()
	items := newMemItemRepo(lists, articles, categories)
	costs := newMemCostRepo()

	return &fixture{
		stores:     stores,
		categories: categories,
		brands:     brands,
		articles:   articles,
		prices:     prices,
		lists:      lists,
		items:      items,
		costs:      costs,
		catalog:    NewCatalogService(articles, prices, stores, categories, brands),
		list:       NewListService(lists, items, articles, prices, categories),
		cache:      NewCostCacheService(lists, items, prices, categories, costs),
	}
}
