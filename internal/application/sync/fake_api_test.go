package sync_test

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
)

// fakeAPI is an in-memory commerce.API for pipeline tests. Products are keyed
// by handle; error fields inject failures per operation.
type fakeAPI struct {
	mu stdsync.Mutex

	products    map[string]*commerce.RemoteProduct
	discounts   map[string]*commerce.RemoteDiscount
	collections map[string]string
	members     map[string][]string
	inventory   map[string]int
	metafields  []commerce.MetafieldInput
	nextID      int

	createCalls         int
	updateCalls         int
	discountCreateCalls int
	discountUpdateCalls int
	inventorySetCalls   int
	metafieldsCalls     int

	fetchErr        error
	createErr       error
	inventorySetErr error
	metafieldsErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		products:    make(map[string]*commerce.RemoteProduct),
		discounts:   make(map[string]*commerce.RemoteDiscount),
		collections: make(map[string]string),
		members:     make(map[string][]string),
		inventory:   make(map[string]int),
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// cloneProduct mirrors a real client, which decodes a fresh value per call;
// callers must never alias the fake's stored state.
func cloneProduct(p *commerce.RemoteProduct) *commerce.RemoteProduct {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Variants = append([]commerce.RemoteVariant(nil), p.Variants...)
	return &clone
}

func (f *fakeAPI) GetLocations(ctx context.Context) ([]commerce.Location, error) {
	return []commerce.Location{{ID: "loc-1", Name: "Main", Primary: true}}, nil
}

func (f *fakeAPI) PrimaryLocation(ctx context.Context) (*commerce.Location, error) {
	return &commerce.Location{ID: "loc-1", Name: "Main", Primary: true}, nil
}

func (f *fakeAPI) FetchProductByHandle(ctx context.Context, handle string) (*commerce.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return cloneProduct(f.products[handle]), nil
}

func (f *fakeAPI) CreateProduct(ctx context.Context, input commerce.ProductInput) (*commerce.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	product := &commerce.RemoteProduct{
		ID:          f.id("prod"),
		Handle:      input.Handle,
		Title:       input.Title,
		Vendor:      input.Vendor,
		ProductType: input.ProductType,
		TaxonomyID:  input.TaxonomyID,
		Status:      input.Status,
	}
	f.products[input.Handle] = product
	return cloneProduct(product), nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, productID string, input commerce.ProductInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	for _, p := range f.products {
		if p.ID == productID {
			p.Title = input.Title
			p.Vendor = input.Vendor
			p.ProductType = input.ProductType
			p.TaxonomyID = input.TaxonomyID
			p.Status = input.Status
			return nil
		}
	}
	return fmt.Errorf("product %s not found", productID)
}

func (f *fakeAPI) byID(productID string) *commerce.RemoteProduct {
	for _, p := range f.products {
		if p.ID == productID {
			return p
		}
	}
	return nil
}

func (f *fakeAPI) BulkCreateVariants(ctx context.Context, productID string, variants []commerce.VariantInput) ([]commerce.RemoteVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product := f.byID(productID)
	if product == nil {
		return nil, fmt.Errorf("product %s not found", productID)
	}
	created := make([]commerce.RemoteVariant, 0, len(variants))
	for _, v := range variants {
		rv := commerce.RemoteVariant{
			ID:              f.id("var"),
			InventoryItemID: f.id("inv"),
			SKU:             v.SKU,
			Option1:         v.Option1,
			Option2:         v.Option2,
			Price:           v.Price,
			CompareAtPrice:  v.CompareAtPrice,
			Barcode:         v.Barcode,
		}
		product.Variants = append(product.Variants, rv)
		created = append(created, rv)
	}
	return created, nil
}

func (f *fakeAPI) BulkUpdateVariants(ctx context.Context, productID string, variants []commerce.VariantInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product := f.byID(productID)
	if product == nil {
		return fmt.Errorf("product %s not found", productID)
	}
	for _, v := range variants {
		for i := range product.Variants {
			if product.Variants[i].ID == v.ID {
				product.Variants[i].SKU = v.SKU
				product.Variants[i].Price = v.Price
				product.Variants[i].CompareAtPrice = v.CompareAtPrice
			}
		}
	}
	return nil
}

func (f *fakeAPI) ActivateInventoryTracking(ctx context.Context, inventoryItemID, locationID string) error {
	return nil
}

func (f *fakeAPI) SetInventoryOnHand(ctx context.Context, inventoryItemID, locationID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventorySetCalls++
	if f.inventorySetErr != nil {
		return f.inventorySetErr
	}
	f.inventory[inventoryItemID] = quantity
	return nil
}

func (f *fakeAPI) SetMetafields(ctx context.Context, metafields []commerce.MetafieldInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metafieldsCalls++
	if f.metafieldsErr != nil {
		return f.metafieldsErr
	}
	f.metafields = append(f.metafields, metafields...)
	return nil
}

func (f *fakeAPI) FindAutomaticDiscountByTitle(ctx context.Context, title string) (*commerce.RemoteDiscount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discounts[title], nil
}

func (f *fakeAPI) CreateAutomaticDiscount(ctx context.Context, input commerce.DiscountInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discountCreateCalls++
	id := f.id("disc")
	f.discounts[input.Title] = &commerce.RemoteDiscount{
		ID:       id,
		Title:    input.Title,
		Percent:  input.Percent,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
	}
	return id, nil
}

func (f *fakeAPI) UpdateAutomaticDiscount(ctx context.Context, discountID string, input commerce.DiscountInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discountUpdateCalls++
	for _, d := range f.discounts {
		if d.ID == discountID {
			d.Percent = input.Percent
			d.StartsAt = input.StartsAt
			d.EndsAt = input.EndsAt
			return nil
		}
	}
	return fmt.Errorf("discount %s not found", discountID)
}

func (f *fakeAPI) EnsureCollection(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.collections[name]; ok {
		return id, nil
	}
	id := f.id("coll")
	f.collections[name] = id
	return id, nil
}

func (f *fakeAPI) AddProductsToCollection(ctx context.Context, collectionID string, productIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[collectionID] = append(f.members[collectionID], productIDs...)
	return nil
}

func (f *fakeAPI) FetchOrderByID(ctx context.Context, orderID string) (*order.CommerceOrder, error) {
	return nil, fmt.Errorf("order %s not found", orderID)
}
