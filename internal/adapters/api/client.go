package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/order"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRatePerSecond = 2

	// Endpoint families get separate token buckets so a burst of inventory
	// writes cannot starve product mutations.
	FamilyGraphQL   = "graphql"
	FamilyInventory = "inventory"
	FamilyDiscount  = "discount"
)

// ShopClient implements the commerce.API interface over the platform's
// GraphQL admin endpoint. Every call is wrapped in a per-family token
// bucket, classified retries, and a shared circuit breaker.
type ShopClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	limiters   map[string]*rate.Limiter
	burst      int
	retry      *RetryExecutor
	breaker    *CircuitBreaker
	clock      shared.Clock

	mu              sync.Mutex
	primaryLocation *commerce.Location
	collections     map[string]string // normalized name -> collection id
}

// NewShopClient creates a commerce client. ratePerSecond defaults to 2 with
// burst equal to the rate; a nil retry executor and clock get defaults.
func NewShopClient(shopURL, token, apiVersion string, ratePerSecond float64, retry *RetryExecutor, clock shared.Clock) *ShopClient {
	if ratePerSecond <= 0 {
		ratePerSecond = defaultRatePerSecond
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if retry == nil {
		retry = NewRetryExecutor(0, 0, 0, clock)
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	limiters := map[string]*rate.Limiter{
		FamilyGraphQL:   rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		FamilyInventory: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		FamilyDiscount:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
	return &ShopClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   fmt.Sprintf("%s/admin/api/%s/graphql.json", shopURL, apiVersion),
		token:      token,
		limiters:   limiters,
		burst:      burst,
		retry:      retry,
		breaker:    NewCircuitBreaker(5, 30*time.Second, clock),
		clock:      clock,
		collections: make(map[string]string),
	}
}

// graphql executes one operation with breaker + retry + rate limiting and
// unmarshals the response data into out.
func (c *ShopClient) graphql(ctx context.Context, family, op, query string, variables map[string]any, out any) error {
	return c.breaker.Call(func() error {
		return c.retry.Do(ctx, op, func(ctx context.Context) error {
			return c.post(ctx, family, op, query, variables, out)
		})
	})
}

func (c *ShopClient) post(ctx context.Context, family, op, query string, variables map[string]any, out any) error {
	limiter := c.limiters[family]
	if limiter == nil {
		limiter = c.limiters[FamilyGraphQL]
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.NewTransientError(op, "network error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.NewTransientError(op, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, convErr := strconv.Atoi(ra); convErr == nil {
				retryAfter = seconds
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			// Surrender the remaining budget; the server told us to back off.
			c.drain(family)
		}
		return classifyStatus(op, resp.StatusCode, string(body), retryAfter)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message    string `json:"message"`
			Extensions struct {
				Code string `json:"code"`
			} `json:"extensions"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return shared.NewSchemaDriftError(op, "response is not valid JSON", string(body))
	}

	if len(envelope.Errors) > 0 {
		for _, ge := range envelope.Errors {
			if ge.Extensions.Code == "THROTTLED" {
				c.drain(family)
				return shared.NewTransientError(op, "throttled", nil)
			}
		}
		e := shared.NewValidationError(op, envelope.Errors[0].Message)
		e.Payload = string(body)
		return e
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return shared.NewSchemaDriftError(op, fmt.Sprintf("unexpected response shape: %v", err), string(body))
		}
	}
	return nil
}

// drain empties the family's token bucket so no further call goes out before
// the refill, honouring the server's throttle signal.
func (c *ShopClient) drain(family string) {
	limiter := c.limiters[family]
	if limiter == nil {
		return
	}
	for i := 0; i < c.burst; i++ {
		if !limiter.Allow() {
			return
		}
	}
}

// --- locations ---

// GetLocations retrieves the shop's inventory locations.
func (c *ShopClient) GetLocations(ctx context.Context) ([]commerce.Location, error) {
	query := `query { locations(first: 20) { nodes { id name isPrimary } } }`

	var response struct {
		Locations struct {
			Nodes []struct {
				ID        string `json:"id"`
				Name      string `json:"name"`
				IsPrimary bool   `json:"isPrimary"`
			} `json:"nodes"`
		} `json:"locations"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "locations", query, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}

	locations := make([]commerce.Location, 0, len(response.Locations.Nodes))
	for _, node := range response.Locations.Nodes {
		locations = append(locations, commerce.Location{ID: node.ID, Name: node.Name, Primary: node.IsPrimary})
	}
	return locations, nil
}

// PrimaryLocation returns the shop's primary location, cached after first use.
func (c *ShopClient) PrimaryLocation(ctx context.Context) (*commerce.Location, error) {
	c.mu.Lock()
	if c.primaryLocation != nil {
		loc := *c.primaryLocation
		c.mu.Unlock()
		return &loc, nil
	}
	c.mu.Unlock()

	locations, err := c.GetLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, shared.NewSchemaDriftError("locations", "shop has no locations", "")
	}
	primary := locations[0]
	for _, loc := range locations {
		if loc.Primary {
			primary = loc
			break
		}
	}

	c.mu.Lock()
	c.primaryLocation = &primary
	c.mu.Unlock()
	return &primary, nil
}

// --- products ---

const productFields = `
	id
	handle
	title
	vendor
	productType
	status
	category { id }
	variants(first: 250) {
		nodes {
			id
			sku
			price
			compareAtPrice
			barcode
			selectedOptions { name value }
			inventoryItem { id }
		}
	}`

type productNode struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"productType"`
	Status      string `json:"status"`
	Category    *struct {
		ID string `json:"id"`
	} `json:"category"`
	Variants struct {
		Nodes []variantNode `json:"nodes"`
	} `json:"variants"`
}

type variantNode struct {
	ID              string  `json:"id"`
	SKU             string  `json:"sku"`
	Price           string  `json:"price"`
	CompareAtPrice  *string `json:"compareAtPrice"`
	Barcode         string  `json:"barcode"`
	SelectedOptions []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
	InventoryItem struct {
		ID string `json:"id"`
	} `json:"inventoryItem"`
}

func (n *productNode) toRemote() *commerce.RemoteProduct {
	product := &commerce.RemoteProduct{
		ID:          n.ID,
		Handle:      n.Handle,
		Title:       n.Title,
		Vendor:      n.Vendor,
		ProductType: n.ProductType,
		Status:      n.Status,
	}
	if n.Category != nil {
		product.TaxonomyID = n.Category.ID
	}
	for _, vn := range n.Variants.Nodes {
		product.Variants = append(product.Variants, vn.toRemote())
	}
	return product
}

func (n *variantNode) toRemote() commerce.RemoteVariant {
	variant := commerce.RemoteVariant{
		ID:              n.ID,
		InventoryItemID: n.InventoryItem.ID,
		SKU:             n.SKU,
		Price:           parseDecimal(n.Price),
		Barcode:         n.Barcode,
	}
	if n.CompareAtPrice != nil && *n.CompareAtPrice != "" {
		cap := parseDecimal(*n.CompareAtPrice)
		variant.CompareAtPrice = &cap
	}
	if len(n.SelectedOptions) > 0 {
		variant.Option1 = n.SelectedOptions[0].Value
	}
	if len(n.SelectedOptions) > 1 {
		variant.Option2 = n.SelectedOptions[1].Value
	}
	return variant
}

// FetchProductByHandle returns the remote product for a handle, or nil when
// the handle does not exist.
func (c *ShopClient) FetchProductByHandle(ctx context.Context, handle string) (*commerce.RemoteProduct, error) {
	query := fmt.Sprintf(`query($handle: String!) { productByHandle(handle: $handle) {%s} }`, productFields)

	var response struct {
		ProductByHandle *productNode `json:"productByHandle"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "productByHandle", query, map[string]any{"handle": handle}, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch product by handle: %w", err)
	}
	if response.ProductByHandle == nil {
		return nil, nil
	}
	return response.ProductByHandle.toRemote(), nil
}

func productInputMap(input commerce.ProductInput) map[string]any {
	m := map[string]any{
		"handle":      input.Handle,
		"title":       input.Title,
		"vendor":      input.Vendor,
		"productType": input.ProductType,
		"status":      input.Status,
	}
	if input.TaxonomyID != "" {
		m["category"] = input.TaxonomyID
	}
	return m
}

// CreateProduct creates a product and returns its remote snapshot.
func (c *ShopClient) CreateProduct(ctx context.Context, input commerce.ProductInput) (*commerce.RemoteProduct, error) {
	query := fmt.Sprintf(`mutation($input: ProductInput!) {
		productCreate(input: $input) {
			product {%s}
			userErrors { field message code }
		}
	}`, productFields)

	var response struct {
		ProductCreate struct {
			Product    *productNode `json:"product"`
			UserErrors []userError  `json:"userErrors"`
		} `json:"productCreate"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "productCreate", query, map[string]any{"input": productInputMap(input)}, &response); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if err := userErrorsToError("productCreate", response.ProductCreate.UserErrors); err != nil {
		return nil, err
	}
	if response.ProductCreate.Product == nil {
		return nil, shared.NewSchemaDriftError("productCreate", "no product in response", "")
	}
	return response.ProductCreate.Product.toRemote(), nil
}

// UpdateProduct patches an existing product.
func (c *ShopClient) UpdateProduct(ctx context.Context, productID string, input commerce.ProductInput) error {
	query := `mutation($input: ProductInput!) {
		productUpdate(input: $input) {
			product { id }
			userErrors { field message code }
		}
	}`

	inputMap := productInputMap(input)
	inputMap["id"] = productID

	var response struct {
		ProductUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "productUpdate", query, map[string]any{"input": inputMap}, &response); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return userErrorsToError("productUpdate", response.ProductUpdate.UserErrors)
}

// --- variants ---

func variantInputMaps(variants []commerce.VariantInput) []map[string]any {
	out := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		m := map[string]any{
			"optionValues": []map[string]any{
				{"optionName": "Color", "name": v.Option1},
				{"optionName": "Talla", "name": v.Option2},
			},
			"price": v.Price.String(),
			"inventoryItem": map[string]any{
				"sku": v.SKU,
			},
		}
		if v.ID != "" {
			m["id"] = v.ID
		}
		if v.CompareAtPrice != nil {
			m["compareAtPrice"] = v.CompareAtPrice.String()
		} else {
			m["compareAtPrice"] = nil
		}
		if v.Barcode != "" {
			m["barcode"] = v.Barcode
		}
		out = append(out, m)
	}
	return out
}

// BulkCreateVariants creates the given variants on a product.
func (c *ShopClient) BulkCreateVariants(ctx context.Context, productID string, variants []commerce.VariantInput) ([]commerce.RemoteVariant, error) {
	query := `mutation($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
		productVariantsBulkCreate(productId: $productId, variants: $variants) {
			productVariants {
				id
				sku
				price
				compareAtPrice
				barcode
				selectedOptions { name value }
				inventoryItem { id }
			}
			userErrors { field message code }
		}
	}`

	var response struct {
		ProductVariantsBulkCreate struct {
			ProductVariants []variantNode `json:"productVariants"`
			UserErrors      []userError   `json:"userErrors"`
		} `json:"productVariantsBulkCreate"`
	}
	vars := map[string]any{"productId": productID, "variants": variantInputMaps(variants)}
	if err := c.graphql(ctx, FamilyGraphQL, "productVariantsBulkCreate", query, vars, &response); err != nil {
		return nil, fmt.Errorf("failed to bulk create variants: %w", err)
	}
	if err := userErrorsToError("productVariantsBulkCreate", response.ProductVariantsBulkCreate.UserErrors); err != nil {
		return nil, err
	}

	created := make([]commerce.RemoteVariant, 0, len(response.ProductVariantsBulkCreate.ProductVariants))
	for i := range response.ProductVariantsBulkCreate.ProductVariants {
		created = append(created, response.ProductVariantsBulkCreate.ProductVariants[i].toRemote())
	}
	return created, nil
}

// BulkUpdateVariants updates price, compare-at price and SKU on existing
// variants. Inputs must carry the remote variant ID.
func (c *ShopClient) BulkUpdateVariants(ctx context.Context, productID string, variants []commerce.VariantInput) error {
	query := `mutation($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
		productVariantsBulkUpdate(productId: $productId, variants: $variants) {
			userErrors { field message code }
		}
	}`

	var response struct {
		ProductVariantsBulkUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	vars := map[string]any{"productId": productID, "variants": variantInputMaps(variants)}
	if err := c.graphql(ctx, FamilyGraphQL, "productVariantsBulkUpdate", query, vars, &response); err != nil {
		return fmt.Errorf("failed to bulk update variants: %w", err)
	}
	return userErrorsToError("productVariantsBulkUpdate", response.ProductVariantsBulkUpdate.UserErrors)
}

// --- inventory ---

// ActivateInventoryTracking enables stock tracking for an inventory item at
// a location.
func (c *ShopClient) ActivateInventoryTracking(ctx context.Context, inventoryItemID, locationID string) error {
	query := `mutation($inventoryItemId: ID!, $locationId: ID!) {
		inventoryActivate(inventoryItemId: $inventoryItemId, locationId: $locationId) {
			inventoryLevel { id }
			userErrors { field message }
		}
	}`

	var response struct {
		InventoryActivate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventoryActivate"`
	}
	vars := map[string]any{"inventoryItemId": inventoryItemID, "locationId": locationID}
	if err := c.graphql(ctx, FamilyInventory, "inventoryActivate", query, vars, &response); err != nil {
		return fmt.Errorf("failed to activate inventory tracking: %w", err)
	}
	return userErrorsToError("inventoryActivate", response.InventoryActivate.UserErrors)
}

// SetInventoryOnHand sets the absolute on-hand quantity at a location.
func (c *ShopClient) SetInventoryOnHand(ctx context.Context, inventoryItemID, locationID string, quantity int) error {
	query := `mutation($input: InventorySetOnHandQuantitiesInput!) {
		inventorySetOnHandQuantities(input: $input) {
			userErrors { field message }
		}
	}`

	vars := map[string]any{
		"input": map[string]any{
			"reason": "correction",
			"setQuantities": []map[string]any{
				{
					"inventoryItemId": inventoryItemID,
					"locationId":      locationID,
					"quantity":        quantity,
				},
			},
		},
	}

	var response struct {
		InventorySetOnHandQuantities struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventorySetOnHandQuantities"`
	}
	if err := c.graphql(ctx, FamilyInventory, "inventorySetOnHandQuantities", query, vars, &response); err != nil {
		return fmt.Errorf("failed to set inventory on hand: %w", err)
	}
	return userErrorsToError("inventorySetOnHandQuantities", response.InventorySetOnHandQuantities.UserErrors)
}

// --- metafields ---

// SetMetafields writes up to 25 metafields in one call.
func (c *ShopClient) SetMetafields(ctx context.Context, metafields []commerce.MetafieldInput) error {
	if len(metafields) == 0 {
		return nil
	}
	if len(metafields) > commerce.MaxMetafieldsPerCall {
		return shared.NewValidationError("metafieldsSet", fmt.Sprintf("%d metafields exceed the per-call limit of %d", len(metafields), commerce.MaxMetafieldsPerCall))
	}

	query := `mutation($metafields: [MetafieldsSetInput!]!) {
		metafieldsSet(metafields: $metafields) {
			metafields { id }
			userErrors { field message code }
		}
	}`

	inputs := make([]map[string]any, 0, len(metafields))
	for _, mf := range metafields {
		inputs = append(inputs, map[string]any{
			"ownerId":   mf.OwnerID,
			"namespace": mf.Namespace,
			"key":       mf.Key,
			"type":      mf.Type,
			"value":     mf.Value,
		})
	}

	var response struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "metafieldsSet", query, map[string]any{"metafields": inputs}, &response); err != nil {
		return fmt.Errorf("failed to set metafields: %w", err)
	}
	return userErrorsToError("metafieldsSet", response.MetafieldsSet.UserErrors)
}

// --- discounts ---

// FindAutomaticDiscountByTitle returns the automatic discount whose title
// matches exactly, or nil.
func (c *ShopClient) FindAutomaticDiscountByTitle(ctx context.Context, title string) (*commerce.RemoteDiscount, error) {
	query := `query($query: String!) {
		automaticDiscountNodes(first: 1, query: $query) {
			nodes {
				id
				automaticDiscount {
					... on DiscountAutomaticBasic {
						title
						startsAt
						endsAt
						customerGets {
							value { ... on DiscountPercentage { percentage } }
						}
					}
				}
			}
		}
	}`

	var response struct {
		AutomaticDiscountNodes struct {
			Nodes []struct {
				ID                string `json:"id"`
				AutomaticDiscount struct {
					Title        string `json:"title"`
					StartsAt     string `json:"startsAt"`
					EndsAt       string `json:"endsAt"`
					CustomerGets struct {
						Value struct {
							Percentage float64 `json:"percentage"`
						} `json:"value"`
					} `json:"customerGets"`
				} `json:"automaticDiscount"`
			} `json:"nodes"`
		} `json:"automaticDiscountNodes"`
	}
	vars := map[string]any{"query": fmt.Sprintf("title:%s", strconv.Quote(title))}
	if err := c.graphql(ctx, FamilyDiscount, "automaticDiscountNodes", query, vars, &response); err != nil {
		return nil, fmt.Errorf("failed to find automatic discount: %w", err)
	}

	for _, node := range response.AutomaticDiscountNodes.Nodes {
		if node.AutomaticDiscount.Title != title {
			continue
		}
		discount := &commerce.RemoteDiscount{
			ID:      node.ID,
			Title:   node.AutomaticDiscount.Title,
			Percent: decimal.NewFromFloat(node.AutomaticDiscount.CustomerGets.Value.Percentage * 100).Round(2),
		}
		if t, err := time.Parse(time.RFC3339, node.AutomaticDiscount.StartsAt); err == nil {
			discount.StartsAt = t
		}
		if t, err := time.Parse(time.RFC3339, node.AutomaticDiscount.EndsAt); err == nil {
			discount.EndsAt = t
		}
		return discount, nil
	}
	return nil, nil
}

func discountInputMap(input commerce.DiscountInput) map[string]any {
	// The API expects the percentage as a fraction of 1.
	fraction := input.Percent.Div(decimal.NewFromInt(100))
	items := map[string]any{"all": true}
	if len(input.ProductIDs) > 0 {
		items = map[string]any{
			"products": map[string]any{"productsToAdd": input.ProductIDs},
		}
	}
	return map[string]any{
		"title":    input.Title,
		"startsAt": input.StartsAt.UTC().Format(time.RFC3339),
		"endsAt":   input.EndsAt.UTC().Format(time.RFC3339),
		"customerGets": map[string]any{
			"value": map[string]any{
				"percentage": fraction.InexactFloat64(),
			},
			"items": items,
		},
	}
}

// CreateAutomaticDiscount creates a time-bounded automatic percentage
// discount and returns its remote id.
func (c *ShopClient) CreateAutomaticDiscount(ctx context.Context, input commerce.DiscountInput) (string, error) {
	query := `mutation($automaticBasicDiscount: DiscountAutomaticBasicInput!) {
		discountAutomaticBasicCreate(automaticBasicDiscount: $automaticBasicDiscount) {
			automaticDiscountNode { id }
			userErrors { field message code }
		}
	}`

	var response struct {
		DiscountAutomaticBasicCreate struct {
			AutomaticDiscountNode *struct {
				ID string `json:"id"`
			} `json:"automaticDiscountNode"`
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticBasicCreate"`
	}
	vars := map[string]any{"automaticBasicDiscount": discountInputMap(input)}
	if err := c.graphql(ctx, FamilyDiscount, "discountAutomaticBasicCreate", query, vars, &response); err != nil {
		return "", fmt.Errorf("failed to create automatic discount: %w", err)
	}
	if err := userErrorsToError("discountAutomaticBasicCreate", response.DiscountAutomaticBasicCreate.UserErrors); err != nil {
		return "", err
	}
	if response.DiscountAutomaticBasicCreate.AutomaticDiscountNode == nil {
		return "", shared.NewSchemaDriftError("discountAutomaticBasicCreate", "no discount node in response", "")
	}
	return response.DiscountAutomaticBasicCreate.AutomaticDiscountNode.ID, nil
}

// UpdateAutomaticDiscount updates the dates and percentage of an existing
// automatic discount in place.
func (c *ShopClient) UpdateAutomaticDiscount(ctx context.Context, discountID string, input commerce.DiscountInput) error {
	query := `mutation($id: ID!, $automaticBasicDiscount: DiscountAutomaticBasicInput!) {
		discountAutomaticBasicUpdate(id: $id, automaticBasicDiscount: $automaticBasicDiscount) {
			userErrors { field message code }
		}
	}`

	var response struct {
		DiscountAutomaticBasicUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"discountAutomaticBasicUpdate"`
	}
	vars := map[string]any{"id": discountID, "automaticBasicDiscount": discountInputMap(input)}
	if err := c.graphql(ctx, FamilyDiscount, "discountAutomaticBasicUpdate", query, vars, &response); err != nil {
		return fmt.Errorf("failed to update automatic discount: %w", err)
	}
	return userErrorsToError("discountAutomaticBasicUpdate", response.DiscountAutomaticBasicUpdate.UserErrors)
}

// --- collections ---

// EnsureCollection returns the id of the collection with the given title,
// creating it when absent. Lookups are cached by normalized name.
func (c *ShopClient) EnsureCollection(ctx context.Context, name string) (string, error) {
	normalized := normalizeCollectionName(name)

	c.mu.Lock()
	if id, ok := c.collections[normalized]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	query := `query($query: String!) {
		collections(first: 1, query: $query) {
			nodes { id title }
		}
	}`

	var response struct {
		Collections struct {
			Nodes []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"nodes"`
		} `json:"collections"`
	}
	vars := map[string]any{"query": fmt.Sprintf("title:%s", strconv.Quote(name))}
	if err := c.graphql(ctx, FamilyGraphQL, "collections", query, vars, &response); err != nil {
		return "", fmt.Errorf("failed to look up collection: %w", err)
	}

	for _, node := range response.Collections.Nodes {
		if normalizeCollectionName(node.Title) == normalized {
			c.cacheCollection(normalized, node.ID)
			return node.ID, nil
		}
	}

	createQuery := `mutation($input: CollectionInput!) {
		collectionCreate(input: $input) {
			collection { id }
			userErrors { field message }
		}
	}`

	var createResponse struct {
		CollectionCreate struct {
			Collection *struct {
				ID string `json:"id"`
			} `json:"collection"`
			UserErrors []userError `json:"userErrors"`
		} `json:"collectionCreate"`
	}
	createVars := map[string]any{"input": map[string]any{"title": name}}
	if err := c.graphql(ctx, FamilyGraphQL, "collectionCreate", createQuery, createVars, &createResponse); err != nil {
		return "", fmt.Errorf("failed to create collection: %w", err)
	}
	if err := userErrorsToError("collectionCreate", createResponse.CollectionCreate.UserErrors); err != nil {
		return "", err
	}
	if createResponse.CollectionCreate.Collection == nil {
		return "", shared.NewSchemaDriftError("collectionCreate", "no collection in response", "")
	}

	id := createResponse.CollectionCreate.Collection.ID
	c.cacheCollection(normalized, id)
	return id, nil
}

func (c *ShopClient) cacheCollection(normalized, id string) {
	c.mu.Lock()
	c.collections[normalized] = id
	c.mu.Unlock()
}

// AddProductsToCollection attaches products to a collection; the platform
// treats repeated additions as no-ops.
func (c *ShopClient) AddProductsToCollection(ctx context.Context, collectionID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	query := `mutation($id: ID!, $productIds: [ID!]!) {
		collectionAddProducts(id: $id, productIds: $productIds) {
			userErrors { field message }
		}
	}`

	var response struct {
		CollectionAddProducts struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"collectionAddProducts"`
	}
	vars := map[string]any{"id": collectionID, "productIds": productIDs}
	if err := c.graphql(ctx, FamilyGraphQL, "collectionAddProducts", query, vars, &response); err != nil {
		return fmt.Errorf("failed to add products to collection: %w", err)
	}
	return userErrorsToError("collectionAddProducts", response.CollectionAddProducts.UserErrors)
}

// --- orders ---

// FetchOrderByID retrieves the full commerce order for ingestion.
func (c *ShopClient) FetchOrderByID(ctx context.Context, orderID string) (*order.CommerceOrder, error) {
	query := `query($id: ID!) {
		order(id: $id) {
			id
			name
			createdAt
			displayFinancialStatus
			email
			customer { displayName }
			totalPriceSet { shopMoney { amount } }
			totalTaxSet { shopMoney { amount } }
			shippingAddress {
				name address1 address2 city province zip country phone
			}
			lineItems(first: 100) {
				nodes {
					sku
					title
					quantity
					discountedUnitPriceSet { shopMoney { amount } }
					originalUnitPriceSet { shopMoney { amount } }
				}
			}
		}
	}`

	type moneySet struct {
		ShopMoney struct {
			Amount string `json:"amount"`
		} `json:"shopMoney"`
	}
	var response struct {
		Order *struct {
			ID                     string   `json:"id"`
			Name                   string   `json:"name"`
			CreatedAt              string   `json:"createdAt"`
			DisplayFinancialStatus string   `json:"displayFinancialStatus"`
			Email                  string   `json:"email"`
			Customer               *struct {
				DisplayName string `json:"displayName"`
			} `json:"customer"`
			TotalPriceSet   moneySet `json:"totalPriceSet"`
			TotalTaxSet     moneySet `json:"totalTaxSet"`
			ShippingAddress *struct {
				Name     string `json:"name"`
				Address1 string `json:"address1"`
				Address2 string `json:"address2"`
				City     string `json:"city"`
				Province string `json:"province"`
				Zip      string `json:"zip"`
				Country  string `json:"country"`
				Phone    string `json:"phone"`
			} `json:"shippingAddress"`
			LineItems struct {
				Nodes []struct {
					SKU                    string   `json:"sku"`
					Title                  string   `json:"title"`
					Quantity               int      `json:"quantity"`
					DiscountedUnitPriceSet moneySet `json:"discountedUnitPriceSet"`
					OriginalUnitPriceSet   moneySet `json:"originalUnitPriceSet"`
				} `json:"nodes"`
			} `json:"lineItems"`
		} `json:"order"`
	}
	if err := c.graphql(ctx, FamilyGraphQL, "order", query, map[string]any{"id": orderID}, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if response.Order == nil {
		return nil, shared.NewValidationError("order", fmt.Sprintf("order %s not found", orderID))
	}

	node := response.Order
	result := &order.CommerceOrder{
		ID:              node.ID,
		Name:            node.Name,
		FinancialStatus: normalizeFinancialStatus(node.DisplayFinancialStatus),
		Email:           node.Email,
		Total:           parseDecimal(node.TotalPriceSet.ShopMoney.Amount),
		Tax:             parseDecimal(node.TotalTaxSet.ShopMoney.Amount),
	}
	if t, err := time.Parse(time.RFC3339, node.CreatedAt); err == nil {
		result.CreatedAt = t
	}
	if node.Customer != nil {
		result.CustomerName = node.Customer.DisplayName
	}
	if node.ShippingAddress != nil {
		result.ShippingAddress = &order.Address{
			Name:     node.ShippingAddress.Name,
			Address1: node.ShippingAddress.Address1,
			Address2: node.ShippingAddress.Address2,
			City:     node.ShippingAddress.City,
			Province: node.ShippingAddress.Province,
			Zip:      node.ShippingAddress.Zip,
			Country:  node.ShippingAddress.Country,
			Phone:    node.ShippingAddress.Phone,
		}
	}
	for _, line := range node.LineItems.Nodes {
		result.LineItems = append(result.LineItems, order.LineItem{
			SKU:       line.SKU,
			Title:     line.Title,
			Quantity:  line.Quantity,
			Price:     parseDecimal(line.DiscountedUnitPriceSet.ShopMoney.Amount),
			FullPrice: parseDecimal(line.OriginalUnitPriceSet.ShopMoney.Amount),
		})
	}
	return result, nil
}

// --- helpers ---

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalizeFinancialStatus(s string) string {
	switch s {
	case "PAID":
		return "paid"
	case "PARTIALLY_PAID":
		return "partially_paid"
	case "AUTHORIZED":
		return "authorized"
	case "PENDING":
		return "pending"
	case "REFUNDED":
		return "refunded"
	case "VOIDED":
		return "voided"
	}
	return s
}

func normalizeCollectionName(name string) string {
	return catalog.FoldAccents(strings.TrimSpace(name))
}
