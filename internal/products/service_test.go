package product

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jarafer/armatutienda-backend/internal/stock"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/workerpool"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  base_id TEXT,
  name TEXT NOT NULL,
  grp TEXT NOT NULL DEFAULT 'General',
  subgroup TEXT NOT NULL DEFAULT 'general',
  description TEXT,
  price INTEGER NOT NULL DEFAULT 0,
  previous_price INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 999,
  sizes TEXT,
  colors TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  stock_by_size TEXT,
  variants TEXT,
  has_size_stock INTEGER NOT NULL DEFAULT 0,
  has_variants INTEGER NOT NULL DEFAULT 0,
  stock_version INTEGER NOT NULL DEFAULT 0,
  image TEXT,
  extra_images TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (id, seller_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type recordedSale struct {
	productID string
	orderRef  string
	qty       int
}

type stubMovements struct {
	sales []recordedSale
}

func (s *stubMovements) RecordSale(ctx context.Context, sellerID, productID, orderRef string, res stock.Result, qty int) error {
	s.sales = append(s.sales, recordedSale{productID: productID, orderRef: orderRef, qty: qty})
	return nil
}

func newProductTestService(t *testing.T) (Service, *stubMovements) {
	t.Helper()

	pool := workerpool.New(2)
	t.Cleanup(pool.Shutdown)

	movements := &stubMovements{}
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(setupProductsTestDB(t)),
		Movements: movements,
		Log:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Pool:      pool,
	})
	require.NoError(t, err)
	return svc, movements
}

func TestPublishGeneratesSlugID(t *testing.T) {
	svc, _ := newProductTestService(t)

	dto, err := svc.Publish(context.Background(), "slug@example.com", PublishInput{
		Name:  "Remera Oversize Ninho",
		Group: "Ropa Urbana",
		Price: 5000,
	})
	require.NoError(t, err)
	today := time.Now().UTC().Format("20060102")
	assert.Equal(t, "remera_oversize_ninho_"+today+"_ropa_urbana", dto.ID)
}

func TestPublishNormalizesOffer(t *testing.T) {
	svc, _ := newProductTestService(t)

	// Previous price below the current one is not a markdown.
	notOffer, err := svc.Publish(context.Background(), "offer@example.com", PublishInput{
		Name:          "Gorra",
		Price:         5000,
		PreviousPrice: 4000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, notOffer.PreviousPrice)
	assert.False(t, notOffer.HasOffer)

	offer, err := svc.Publish(context.Background(), "offer@example.com", PublishInput{
		Name:          "Gorra Rebajada",
		Price:         5000,
		PreviousPrice: 8000,
	})
	require.NoError(t, err)
	assert.Equal(t, 8000, offer.PreviousPrice)
	assert.True(t, offer.HasOffer)
}

func TestPublishUpsertOverwritesByID(t *testing.T) {
	svc, _ := newProductTestService(t)

	first, err := svc.Publish(context.Background(), "upsert@example.com", PublishInput{
		ID:    "remera_20250810_ropa",
		Name:  "Remera",
		Price: 5000,
		Stock: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 10, first.Stock)

	second, err := svc.Publish(context.Background(), "upsert@example.com", PublishInput{
		ID:    "remera_20250810_ropa",
		Name:  "Remera",
		Price: 6000,
		Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 6000, second.Price)
	assert.Equal(t, 4, second.Stock)

	list, err := svc.List(context.Background(), "upsert@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1, "republishing the same id never duplicates")
}

func TestPublishAggregatesSizedStock(t *testing.T) {
	svc, _ := newProductTestService(t)

	dto, err := svc.Publish(context.Background(), "agg@example.com", PublishInput{
		Name:        "Buzo",
		Price:       9000,
		Stock:       999,
		StockBySize: map[string]int{"S": 2, "M": 5, "L": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, dto.Stock, "aggregate is recomputed from the per-size map")
}

func TestBulkPublishReportsPerItemFailures(t *testing.T) {
	svc, _ := newProductTestService(t)

	result, err := svc.BulkPublish(context.Background(), "bulk@example.com", []PublishInput{
		{Name: "Valido Uno", Price: 100},
		{Name: "", Price: 100},
		{Name: "Valido Dos", Price: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)

	list, err := svc.List(context.Background(), "bulk@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEditUpdatesOnlyProvidedFields(t *testing.T) {
	svc, _ := newProductTestService(t)
	sellerID := "edit@example.com"

	dto, err := svc.Publish(context.Background(), sellerID, PublishInput{
		Name:        "Buzo Canguro",
		Description: "Friza invisible",
		Price:       9000,
		Stock:       4,
	})
	require.NoError(t, err)

	newPrice := 7000
	edited, err := svc.Edit(context.Background(), sellerID, dto.ID, EditInput{
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 7000, edited.Price)

	reloaded, err := svc.Get(context.Background(), sellerID, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 7000, reloaded.Price)
	assert.Equal(t, "Friza invisible", reloaded.Description)
	assert.Equal(t, 4, reloaded.Stock)
}

func TestEditReappliesOfferRule(t *testing.T) {
	svc, _ := newProductTestService(t)
	sellerID := "edit-offer@example.com"

	dto, err := svc.Publish(context.Background(), sellerID, PublishInput{
		Name:          "Campera Rebajada",
		Price:         5000,
		PreviousPrice: 8000,
	})
	require.NoError(t, err)
	require.Equal(t, 8000, dto.PreviousPrice)

	// Raising the price past the old one kills the markdown.
	newPrice := 9000
	edited, err := svc.Edit(context.Background(), sellerID, dto.ID, EditInput{
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 9000, edited.Price)
	assert.Equal(t, 0, edited.PreviousPrice)

	reloaded, err := svc.Get(context.Background(), sellerID, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.PreviousPrice)
}

func TestEditUnknownProduct(t *testing.T) {
	svc, _ := newProductTestService(t)

	price := 100
	_, err := svc.Edit(context.Background(), "edit-missing@example.com", "nope", EditInput{Price: &price})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestDecrementStockPersistsAndRecordsMovement(t *testing.T) {
	svc, movements := newProductTestService(t)

	_, err := svc.Publish(context.Background(), "dec@example.com", PublishInput{
		ID:          "remera_dec",
		Name:        "Remera",
		Price:       5000,
		StockBySize: map[string]int{"M": 5},
	})
	require.NoError(t, err)

	res, err := svc.DecrementStock(context.Background(), "dec@example.com", "remera_dec", "pedido_1", "M", "", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Before)
	assert.Equal(t, 3, res.After)

	reloaded, err := svc.Get(context.Background(), "dec@example.com", "remera_dec")
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.StockBySize["M"])
	assert.Equal(t, 3, reloaded.Stock)

	require.Len(t, movements.sales, 1)
	assert.Equal(t, "pedido_1", movements.sales[0].orderRef)
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	svc, _ := newProductTestService(t)

	_, err := svc.DecrementStock(context.Background(), "dec@example.com", "no_existe", "pedido_2", "", "", 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSaveStockRejectsStaleSnapshot(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Product{
		ID:       "gorra_cas",
		SellerID: "cas@example.com",
		Name:     "Gorra",
		Stock:    5,
	}))

	stale, err := repo.FindByID(ctx, "cas@example.com", "gorra_cas")
	require.NoError(t, err)
	require.NotNil(t, stale)

	// A seller edit lands between the snapshot read and its write-back.
	edited, err := repo.FindByID(ctx, "cas@example.com", "gorra_cas")
	require.NoError(t, err)
	edited.Stock = 20
	applied, err := repo.SaveStock(ctx, edited)
	require.NoError(t, err)
	require.True(t, applied)

	stale.Stock = 4
	applied, err = repo.SaveStock(ctx, stale)
	require.NoError(t, err)
	assert.False(t, applied, "stale snapshot must not overwrite the concurrent edit")

	reloaded, err := repo.FindByID(ctx, "cas@example.com", "gorra_cas")
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.Stock)
}

func TestRepublishInvalidatesStockSnapshot(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	ctx := context.Background()

	seed := &models.Product{ID: "buzo_cas", SellerID: "repub@example.com", Name: "Buzo", Stock: 3}
	require.NoError(t, repo.Upsert(ctx, seed))

	snapshot, err := repo.FindByID(ctx, "repub@example.com", "buzo_cas")
	require.NoError(t, err)

	// Republishing the same id overwrites the row and bumps the fence.
	require.NoError(t, repo.Upsert(ctx, &models.Product{
		ID:       "buzo_cas",
		SellerID: "repub@example.com",
		Name:     "Buzo",
		Stock:    9,
	}))

	snapshot.Stock = 2
	applied, err := repo.SaveStock(ctx, snapshot)
	require.NoError(t, err)
	assert.False(t, applied, "snapshot taken before the republish must lose")

	reloaded, err := repo.FindByID(ctx, "repub@example.com", "buzo_cas")
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Stock)
}

func TestFindForLineFallbackChain(t *testing.T) {
	svc, _ := newProductTestService(t)

	_, err := svc.Publish(context.Background(), "line@example.com", PublishInput{
		ID:    "campera_20250810_abrigo",
		Name:  "Campera Puffer",
		Price: 20000,
	})
	require.NoError(t, err)

	byID, err := svc.FindForLine(context.Background(), "line@example.com", "campera_20250810_abrigo", "")
	require.NoError(t, err)
	require.NotNil(t, byID)

	byTitle, err := svc.FindForLine(context.Background(), "line@example.com", "tmp_123", "Campera Puffer (Talle: L, Color: Negro)")
	require.NoError(t, err)
	require.NotNil(t, byTitle, "title prefix before the attribute suffix matches the name")
	assert.Equal(t, "campera_20250810_abrigo", byTitle.ID)

	none, err := svc.FindForLine(context.Background(), "line@example.com", "", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGenerateID(t *testing.T) {
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "remera_lisa_20250810_ropa", GenerateID("Remera Lisa", "Ropa", now))
	assert.Equal(t, "gorra_20250810_general", GenerateID("Gorra", "", now))
	assert.Equal(t, "buzo_frisa_20250810_invierno_2025", GenerateID("  Buzo Frisa! ", "Invierno 2025", now))
}
