package product

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jarafer/armatutienda-backend/internal/stock"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/workerpool"
)

// Service exposes catalog management and the stock decrement primitive.
type Service interface {
	Publish(ctx context.Context, sellerID string, input PublishInput) (*ProductDTO, error)
	BulkPublish(ctx context.Context, sellerID string, inputs []PublishInput) (*BulkResult, error)
	Edit(ctx context.Context, sellerID, productID string, input EditInput) (*ProductDTO, error)
	Get(ctx context.Context, sellerID, productID string) (*ProductDTO, error)
	List(ctx context.Context, sellerID string) ([]ProductDTO, error)
	Delete(ctx context.Context, sellerID, productID string) error
	DecrementStock(ctx context.Context, sellerID, productID, orderRef, size, color string, qty int) (*stock.Result, error)
	FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error)
}

// PublishInput is the validated payload to create or edit a product.
type PublishInput struct {
	ID            string
	Name          string
	Group         string
	Subgroup      string
	Description   string
	Price         int
	PreviousPrice int
	Position      int
	Sizes         []string
	Colors        []string
	Stock         int
	StockBySize   map[string]int
	Variants      map[string]models.Variant
	Image         string
	ExtraImages   []string
}

// EditInput is a partial product edit. Nil fields stay untouched.
// Structural changes (sizes, colors, stock schemas) go through Publish,
// which replaces the whole document.
type EditInput struct {
	Name          *string
	Description   *string
	Price         *int
	PreviousPrice *int
	Position      *int
	Image         *string
}

// BulkResult summarizes a bulk publish run.
type BulkResult struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type movementRecorder interface {
	RecordSale(ctx context.Context, sellerID, productID, orderRef string, res stock.Result, qty int) error
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Repo      *Repository
	Movements movementRecorder
	Log       *logger.Logger
	Pool      *workerpool.Pool
}

type service struct {
	repo      *Repository
	movements movementRecorder
	log       *logger.Logger
	pool      *workerpool.Pool
}

// NewService constructs the product service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movement recorder required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pool == nil {
		return nil, fmt.Errorf("worker pool required")
	}
	return &service{
		repo:      params.Repo,
		movements: params.Movements,
		log:       params.Log,
		pool:      params.Pool,
	}, nil
}

// Publish creates or overwrites a product. Editing is an idempotent upsert
// keyed by the product id; new products get a generated slug id.
func (s *service) Publish(ctx context.Context, sellerID string, input PublishInput) (*ProductDTO, error) {
	if sellerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	p := buildProduct(sellerID, input)
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert product")
	}
	return NewProductDTO(p), nil
}

// BulkPublish fans the inputs out over the worker pool. Items are
// independent; one failure never aborts the rest.
func (s *service) BulkPublish(ctx context.Context, sellerID string, inputs []PublishInput) (*BulkResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no products supplied")
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BulkResult
	)

	for i := range inputs {
		input := inputs[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			_, err := s.Publish(ctx, sellerID, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", input.Name, err))
				return
			}
			result.Published++
		}
		if err := s.pool.SubmitWait(task); err != nil {
			wg.Done()
			mu.Lock()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", input.Name, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	logCtx := s.log.WithFields(ctx, map[string]any{
		"published": result.Published,
		"failed":    result.Failed,
	})
	s.log.Info(logCtx, "bulk publish finished")
	return &result, nil
}

// Edit applies a partial column update to an existing product. The offer
// rule is re-checked whenever either price column changes.
func (s *service) Edit(ctx context.Context, sellerID, productID string, input EditInput) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, sellerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product for edit")
	}
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		p.Name = name
		fields["name"] = name
	}
	if input.Description != nil {
		p.Description = *input.Description
		fields["description"] = *input.Description
	}
	if input.Position != nil {
		p.Position = *input.Position
		fields["position"] = *input.Position
	}
	if input.Image != nil {
		p.Image = *input.Image
		fields["image"] = *input.Image
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		p.Price = *input.Price
	}
	if input.PreviousPrice != nil {
		p.PreviousPrice = *input.PreviousPrice
	}
	if input.Price != nil || input.PreviousPrice != nil {
		if p.PreviousPrice <= p.Price {
			p.PreviousPrice = 0
		}
		fields["price"] = p.Price
		fields["previous_price"] = p.PreviousPrice
	}

	if len(fields) == 0 {
		return NewProductDTO(p), nil
	}
	if err := s.repo.UpdateFields(ctx, sellerID, productID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: edit product")
	}
	return NewProductDTO(p), nil
}

func (s *service) Get(ctx context.Context, sellerID, productID string) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, sellerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(p), nil
}

func (s *service) List(ctx context.Context, sellerID string) ([]ProductDTO, error) {
	items, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return NewProductDTOs(items), nil
}

func (s *service) Delete(ctx context.Context, sellerID, productID string) error {
	if err := s.repo.Delete(ctx, sellerID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// stockWriteAttempts bounds the reload-and-retry loop when the
// conditional stock write loses to a concurrent edit.
const stockWriteAttempts = 3

// DecrementStock applies one sale line against the product's counters and
// records the movement. The counters are written with a conditional update;
// losing to a concurrent seller edit reloads a fresh snapshot and retries.
// History failures are logged, never surfaced.
func (s *service) DecrementStock(ctx context.Context, sellerID, productID, orderRef, size, color string, qty int) (*stock.Result, error) {
	for attempt := 0; attempt < stockWriteAttempts; attempt++ {
		p, err := s.repo.FindByID(ctx, sellerID, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product for decrement")
		}
		if p == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		res := stock.Decrement(p, size, color, qty)
		if res.Degraded {
			degCtx := s.log.WithFields(ctx, map[string]any{
				"product_id": productID,
				"order_ref":  orderRef,
				"note":       res.Note,
			})
			s.log.Warn(degCtx, "stock decrement degraded")
		}

		applied, err := s.repo.SaveStock(ctx, p)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: persist stock")
		}
		if !applied {
			s.log.Warn(s.log.WithField(ctx, "product_id", productID), "stock snapshot went stale, retrying")
			continue
		}

		if err := s.movements.RecordSale(ctx, sellerID, productID, orderRef, res, qty); err != nil {
			s.log.Warn(s.log.WithField(ctx, "product_id", productID), "stock history write failed")
		}
		return &res, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock update kept losing to concurrent edits")
}

// FindForLine resolves the product a cart line refers to: direct id, then
// the secondary base id, then an exact name match against the line title.
func (s *service) FindForLine(ctx context.Context, sellerID, productID, title string) (*models.Product, error) {
	if productID != "" {
		p, err := s.repo.FindByID(ctx, sellerID, productID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		p, err = s.repo.FindByBaseID(ctx, sellerID, productID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	if title != "" {
		name := strings.TrimSpace(strings.SplitN(title, " (", 2)[0])
		return s.repo.FindByName(ctx, sellerID, name)
	}
	return nil, nil
}

var slugScrubRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = slugScrubRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// GenerateID builds the catalog id slug: <name>_<yyyymmdd>_<group>.
func GenerateID(name, group string, now time.Time) string {
	g := slugify(group)
	if g == "" {
		g = "general"
	}
	return fmt.Sprintf("%s_%s_%s", slugify(name), now.Format("20060102"), g)
}

func buildProduct(sellerID string, input PublishInput) *models.Product {
	id := input.ID
	if id == "" {
		id = GenerateID(input.Name, input.Group, time.Now().UTC())
	}

	group := strings.TrimSpace(input.Group)
	if group == "" {
		group = "General"
	}
	subgroup := strings.TrimSpace(input.Subgroup)
	if subgroup == "" {
		subgroup = "general"
	}

	// A previous price at or below the current price is not an offer.
	previousPrice := input.PreviousPrice
	if previousPrice <= input.Price {
		previousPrice = 0
	}

	p := &models.Product{
		ID:            id,
		SellerID:      sellerID,
		BaseID:        firstNonEmpty(input.ID, id),
		Name:          strings.TrimSpace(input.Name),
		Group:         group,
		Subgroup:      subgroup,
		Description:   input.Description,
		Price:         input.Price,
		PreviousPrice: previousPrice,
		Position:      input.Position,
		Sizes:         input.Sizes,
		Colors:        input.Colors,
		Stock:         input.Stock,
		StockBySize:   input.StockBySize,
		Variants:      input.Variants,
		HasSizeStock:  len(input.StockBySize) > 0,
		HasVariants:   len(input.Variants) > 0,
		Image:         input.Image,
		ExtraImages:   input.ExtraImages,
	}
	stock.Normalize(p)
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
