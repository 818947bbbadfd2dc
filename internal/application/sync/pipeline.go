package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/adapters/checkpoint"
	"github.com/retailbridge/rms-commerce-sync/internal/application/common"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/catalog"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/commerce"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
	"github.com/retailbridge/rms-commerce-sync/internal/domain/taxonomy"
)

// Pipeline defaults; all overridable through Options.
const (
	DefaultBatchSize            = 10
	DefaultMaxConcurrentBatches = 3
	DefaultCheckpointInterval   = 50
	DefaultProductTimeout       = 120 * time.Second
)

// discountTitlePrefix keys automatic discounts to their product so repeated
// runs update in place instead of stacking rules.
const discountTitlePrefix = "rms-sync/"

// Options tunes one pipeline run.
type Options struct {
	BatchSize            int
	MaxConcurrentBatches int
	// CheckpointInterval is the number of processed products between
	// progress saves.
	CheckpointInterval int
	ProductTimeout     time.Duration
	// ForceUpdate bypasses the unchanged-product check and re-writes every
	// product, including zero-stock creates.
	ForceUpdate bool
}

func (o *Options) normalize() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxConcurrentBatches <= 0 {
		o.MaxConcurrentBatches = DefaultMaxConcurrentBatches
	}
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = DefaultCheckpointInterval
	}
	if o.ProductTimeout <= 0 {
		o.ProductTimeout = DefaultProductTimeout
	}
}

// Pipeline pushes prepared product aggregates into the commerce platform:
// upsert product, upsert variants, set inventory, write metafields, maintain
// discounts and collection membership.
type Pipeline struct {
	api      commerce.API
	resolver *taxonomy.Resolver
	progress ProgressStore
	metrics  MetricsSink
	clock    shared.Clock
}

// NewPipeline creates a pipeline over the commerce API.
func NewPipeline(api commerce.API, resolver *taxonomy.Resolver, progress ProgressStore, metrics MetricsSink, clock shared.Clock) *Pipeline {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Pipeline{api: api, resolver: resolver, progress: progress, metrics: metrics, clock: clock}
}

// runState is the mutable cross-batch state of one run, guarded by mu.
type runState struct {
	mu            sync.Mutex
	summary       *RunSummary
	cp            *checkpoint.ProgressCheckpoint
	sinceSave     int
	fatal         error
	checkpointGap int
	progress      ProgressStore

	// keys holds the product keys in run order; done marks completed
	// products and nextIdx is the first incomplete one. Together they keep
	// the resume cursor at the highest contiguous completed key even when
	// batches finish out of order.
	keys    []string
	done    []bool
	nextIdx int
}

func (st *runState) record(idx int, p *catalog.Product, outcome ProductOutcome, errSample string, invUpdated, invFailed int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.summary.Record(outcome, errSample)
	st.summary.InventoryUpdated += invUpdated
	st.summary.InventoryFailed += invFailed
	st.summary.ObserveLastUpdated(p.MaxLastUpdated())

	st.cp.ProcessedCount++
	st.advanceCursor(idx, outcome)
	switch outcome {
	case OutcomeCreated:
		st.cp.Stats.Created++
	case OutcomeUpdated:
		st.cp.Stats.Updated++
	case OutcomeSkipped:
		st.cp.Stats.Skipped++
	case OutcomeError:
		st.cp.Stats.Errors++
	}
	st.cp.Stats.InventoryUpdated += invUpdated
	st.cp.Stats.InventoryFailed += invFailed

	st.sinceSave++
	if st.sinceSave >= st.checkpointGap {
		st.sinceSave = 0
		_ = st.progress.Save(st.cp)
	}
}

// advanceCursor moves LastProcessedCCOD to the highest key for which this and
// every earlier product completed. Cancelled products stay incomplete so a
// resumed run re-pushes them.
func (st *runState) advanceCursor(idx int, outcome ProductOutcome) {
	if outcome == OutcomeCancelled {
		return
	}
	st.done[idx] = true
	for st.nextIdx < len(st.done) && st.done[st.nextIdx] {
		st.nextIdx++
	}
	cursor := st.nextIdx - 1
	// Split siblings share a key; the cursor may only pass a key once every
	// product carrying it has completed.
	if st.nextIdx < len(st.keys) {
		for cursor >= 0 && st.keys[cursor] == st.keys[st.nextIdx] {
			cursor--
		}
	}
	if cursor < 0 {
		return
	}
	if key := st.keys[cursor]; key > st.cp.LastProcessedCCOD {
		st.cp.LastProcessedCCOD = key
	}
}

func (st *runState) setFatal(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fatal == nil {
		st.fatal = err
	}
}

func (st *runState) isFatal() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.fatal != nil
}

// Run processes the product aggregates in batches. A progress checkpoint for
// the same scope, if present, resumes the run past already-processed CCODs.
// The returned summary is valid even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, syncID, scope, kind string, products []*catalog.Product, opts Options) (*RunSummary, error) {
	opts.normalize()
	log := common.LoggerFromContext(ctx).WithField("sync_id", syncID)
	started := p.clock.Now()

	summary := &RunSummary{SyncID: syncID, Kind: kind, StartedAt: started}

	cp := &checkpoint.ProgressCheckpoint{SyncID: syncID, Scope: scope, TotalCount: len(products)}
	if prev, err := p.progress.FindByScope(scope); err == nil && prev != nil {
		cp = prev
		cp.TotalCount = len(products)
		log.WithFields(map[string]any{
			"resume_sync_id": prev.SyncID,
			"last_ccod":      prev.LastProcessedCCOD,
		}).Info("resuming interrupted sync")
		products = skipProcessed(products, prev.LastProcessedCCOD)
	}

	primary, err := p.api.PrimaryLocation(ctx)
	if err != nil {
		summary.Duration = p.clock.Now().Sub(started)
		return summary, fmt.Errorf("failed to resolve primary location: %w", err)
	}

	st := &runState{
		summary:       summary,
		cp:            cp,
		checkpointGap: opts.CheckpointInterval,
		progress:      p.progress,
		keys:          make([]string, len(products)),
		done:          make([]bool, len(products)),
	}
	for i, product := range products {
		st.keys[i] = product.Key
	}

	sem := make(chan struct{}, opts.MaxConcurrentBatches)
	var wg sync.WaitGroup

batches:
	for lo := 0; lo < len(products); lo += opts.BatchSize {
		hi := lo + opts.BatchSize
		if hi > len(products) {
			hi = len(products)
		}
		batch := products[lo:hi]
		cp.BatchNumber++

		select {
		case <-ctx.Done():
			break batches
		case sem <- struct{}{}:
		}
		if st.isFatal() {
			<-sem
			break batches
		}

		wg.Add(1)
		go func(lo int, batch []*catalog.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			for i, product := range batch {
				if ctx.Err() != nil || st.isFatal() {
					st.record(lo+i, product, OutcomeCancelled, "", 0, 0)
					continue
				}
				p.processProduct(ctx, lo+i, product, primary, opts, st)
			}
		}(lo, batch)
	}
	wg.Wait()

	summary.Duration = p.clock.Now().Sub(started)

	// Per-product metrics were emitted in-flight; only persistence of the
	// final cursor remains.
	if ctx.Err() != nil || st.fatal != nil {
		_ = p.progress.Save(cp)
	} else {
		_ = p.progress.Delete(cp.SyncID)
	}

	if st.fatal != nil {
		return summary, st.fatal
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

// processProduct runs steps A–J for one aggregate and folds the outcome into
// the run state.
func (p *Pipeline) processProduct(ctx context.Context, idx int, product *catalog.Product, primary *commerce.Location, opts Options, st *runState) {
	productStart := p.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, opts.ProductTimeout)
	defer cancel()

	result := p.syncOne(ctx, product, primary, opts)

	if result.err != nil && shared.Classify(result.err) == shared.KindAuth {
		// Auth failures are fatal for the whole run, not just the product.
		st.setFatal(result.err)
	}

	st.record(idx, product, result.outcome, result.errSample, result.invUpdated, result.invFailed)
	if p.metrics != nil {
		p.metrics.ProductProcessed(result.outcome)
		p.metrics.ProductDuration(p.clock.Now().Sub(productStart))
	}
}

type productResult struct {
	outcome    ProductOutcome
	errSample  string
	invUpdated int
	invFailed  int
	err        error
}

func failed(product *catalog.Product, step string, err error) productResult {
	outcome := OutcomeError
	if shared.IsCancelled(err) {
		outcome = OutcomeCancelled
	}
	return productResult{
		outcome:   outcome,
		errSample: fmt.Sprintf("%s %s: %v", product.Key, step, err),
		err:       err,
	}
}

// syncOne is the per-product step sequence: prepare, upsert product, upsert
// variants, inventory, metafields, discount, collections.
func (p *Pipeline) syncOne(ctx context.Context, product *catalog.Product, primary *commerce.Location, opts Options) productResult {
	log := common.LoggerFromContext(ctx).WithField("ccod", product.Key)
	now := p.clock.Now()

	// Prepare: taxonomy, handle, status, discount eligibility.
	if len(product.Variants) == 0 {
		return productResult{outcome: OutcomeSkipped, errSample: ""}
	}
	p.prepare(product, now)

	// Upsert product.
	remote, err := p.api.FetchProductByHandle(ctx, product.Handle)
	if err != nil {
		return failed(product, "fetch", err)
	}

	created := false
	switch {
	case remote == nil && !opts.ForceUpdate && product.TotalQuantity() == 0:
		log.Debug("skipping zero-stock product with no remote counterpart")
		return productResult{outcome: OutcomeSkipped}
	case remote == nil:
		remote, err = p.api.CreateProduct(ctx, productInput(product))
		if err != nil {
			return failed(product, "create", err)
		}
		created = true
	case !opts.ForceUpdate && !ProductChanged(product, remote, now):
		return productResult{outcome: OutcomeSkipped}
	default:
		if err := p.api.UpdateProduct(ctx, remote.ID, productInput(product)); err != nil {
			return failed(product, "update", err)
		}
	}

	// Upsert variants; sale pricing is applied inside the diff.
	diff := DiffVariants(product.Variants, remote, now)
	if len(diff.Create) > 0 {
		createdVariants, err := p.api.BulkCreateVariants(ctx, remote.ID, diff.Create)
		if err != nil {
			return failed(product, "variants_create", err)
		}
		remote.Variants = append(remote.Variants, createdVariants...)
	}
	if len(diff.Update) > 0 {
		if err := p.api.BulkUpdateVariants(ctx, remote.ID, diff.Update); err != nil {
			return failed(product, "variants_update", err)
		}
	}

	result := productResult{outcome: OutcomeUpdated}
	if created {
		result.outcome = OutcomeCreated
	}
	partial := false

	// Inventory: activate tracking and push on-hand quantities. Failures do
	// not abort the product.
	inventoryOK := false
	for i := range product.Variants {
		v := &product.Variants[i]
		match := remote.VariantByOptions(v.Color, v.Size)
		if match == nil || match.InventoryItemID == "" {
			result.invFailed++
			continue
		}
		if err := p.api.ActivateInventoryTracking(ctx, match.InventoryItemID, primary.ID); err != nil {
			log.WithError(err).Warn("failed to activate inventory tracking")
			result.invFailed++
			continue
		}
		if err := p.api.SetInventoryOnHand(ctx, match.InventoryItemID, primary.ID, v.Quantity); err != nil {
			log.WithError(err).Warn("failed to set on-hand inventory")
			result.invFailed++
			continue
		}
		result.invUpdated++
		inventoryOK = true
	}
	if result.invFailed > 0 {
		partial = true
	}
	if p.metrics != nil {
		for i := 0; i < result.invUpdated; i++ {
			p.metrics.InventoryUpdated()
		}
		for i := 0; i < result.invFailed; i++ {
			p.metrics.InventoryFailed()
		}
	}

	// Metafields.
	metafieldsOK := true
	for _, chunk := range ChunkMetafields(BuildMetafields(product, remote.ID)) {
		if err := p.api.SetMetafields(ctx, chunk); err != nil {
			log.WithError(err).Warn("failed to write metafields")
			metafieldsOK = false
			partial = true
			break
		}
	}

	// A product succeeds only when at least one of inventory or metafields
	// landed.
	if !inventoryOK && !metafieldsOK {
		partial = true
	}

	// Discount: one automatic rule per product, updated in place.
	if product.Discount != nil {
		if err := p.upsertDiscount(ctx, product, remote.ID); err != nil {
			log.WithError(err).Warn("failed to upsert discount")
			partial = true
		}
	}

	// Collections: ensure and attach.
	for _, name := range product.CollectionKeys {
		collectionID, err := p.api.EnsureCollection(ctx, name)
		if err != nil {
			log.WithError(err).WithField("collection", name).Warn("failed to ensure collection")
			partial = true
			continue
		}
		if err := p.api.AddProductsToCollection(ctx, collectionID, []string{remote.ID}); err != nil {
			log.WithError(err).WithField("collection", name).Warn("failed to attach product to collection")
			partial = true
		}
	}

	if partial {
		result.outcome = OutcomePartial
	}
	return result
}

// prepare resolves taxonomy, derives the handle, and evaluates discount
// eligibility. Mutates the aggregate in place.
func (p *Pipeline) prepare(product *catalog.Product, now time.Time) {
	res := p.resolver.Resolve(product.Familia, product.Categoria, product.ExtendedCategory)
	product.TaxonomyID = res.TaxonomyID
	if res.ProductType != "" {
		product.ProductType = res.ProductType
	}
	if product.Vendor == "" {
		product.Vendor = res.Vendor
	}

	if product.Handle == "" {
		product.Handle = catalog.DeriveHandle(product.Key, product.Title)
		if product.SplitIndex > 0 {
			product.Handle = catalog.HandleWithSuffix(product.Handle, product.SplitIndex+1)
		}
	}
	product.Status = product.ResolveStatus()
	ApplyDiscount(product, now)
}

func (p *Pipeline) upsertDiscount(ctx context.Context, product *catalog.Product, productID string) error {
	title := discountTitlePrefix + product.Handle
	input := commerce.DiscountInput{
		Title:      title,
		Percent:    product.Discount.Percent,
		StartsAt:   product.Discount.StartsAt,
		EndsAt:     product.Discount.EndsAt,
		ProductIDs: []string{productID},
	}

	existing, err := p.api.FindAutomaticDiscountByTitle(ctx, title)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err = p.api.CreateAutomaticDiscount(ctx, input)
		return err
	}
	return p.api.UpdateAutomaticDiscount(ctx, existing.ID, input)
}

func productInput(p *catalog.Product) commerce.ProductInput {
	return commerce.ProductInput{
		Handle:      p.Handle,
		Title:       p.Title,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		TaxonomyID:  p.TaxonomyID,
		Status:      string(p.Status),
	}
}

// skipProcessed drops products whose key is lexically at or below the resume
// cursor. Products arrive sorted by key.
func skipProcessed(products []*catalog.Product, lastCCOD string) []*catalog.Product {
	if lastCCOD == "" {
		return products
	}
	for i, p := range products {
		if p.Key > lastCCOD {
			return products[i:]
		}
	}
	return nil
}
