package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

const collectionPurchaseOrders = "purchase_orders"

type PurchaseOrderRepository struct {
	col *mongo.Collection
}

func NewPurchaseOrderRepository(db *mongo.Database) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{col: db.Collection(collectionPurchaseOrders)}
}

type mongoOrderItem struct {
	Description string               `bson:"description"`
	Quantity    int64                `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
}

type mongoOrderHistory struct {
	Status    string    `bson:"status"`
	ChangedBy string    `bson:"changed_by"`
	Timestamp time.Time `bson:"timestamp"`
	Note      string    `bson:"note,omitempty"`
}

type mongoOrder struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	Number         string               `bson:"number"`
	Supplier       string               `bson:"supplier"`
	ProjectID      string               `bson:"project_id"`
	Items          []mongoOrderItem     `bson:"items"`
	Total          primitive.Decimal128 `bson:"total"`
	Currency       string               `bson:"currency"`
	Status         string               `bson:"status"`
	RequestedBy    string               `bson:"requested_by"`
	IdempotencyKey string               `bson:"idempotency_key,omitempty"`
	StatusHistory  []mongoOrderHistory  `bson:"status_history"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

func toMongoHistory(e domain.OrderHistoryEntry) mongoOrderHistory {
	return mongoOrderHistory{
		Status:    string(e.Status),
		ChangedBy: e.ChangedBy,
		Timestamp: e.Timestamp,
		Note:      e.Note,
	}
}

func toMongoOrder(o *domain.PurchaseOrder) (*mongoOrder, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return nil, fmt.Errorf("encode total: %w", err)
	}
	doc := &mongoOrder{
		Number:         o.Number,
		Supplier:       o.Supplier,
		ProjectID:      o.ProjectID,
		Total:          total,
		Currency:       o.Currency,
		Status:         string(o.Status),
		RequestedBy:    o.RequestedBy,
		IdempotencyKey: o.IdempotencyKey,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, it := range o.Items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("encode unit price: %w", err)
		}
		doc.Items = append(doc.Items, mongoOrderItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}
	for _, h := range o.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, toMongoHistory(h))
	}
	return doc, nil
}

func (m *mongoOrder) toDomain() *domain.PurchaseOrder {
	o := &domain.PurchaseOrder{
		ID:             m.ID.Hex(),
		Number:         m.Number,
		Supplier:       m.Supplier,
		ProjectID:      m.ProjectID,
		Total:          fromDecimal128(m.Total),
		Currency:       m.Currency,
		Status:         domain.OrderStatus(m.Status),
		RequestedBy:    m.RequestedBy,
		IdempotencyKey: m.IdempotencyKey,
		Items:          make([]domain.OrderItem, 0, len(m.Items)),
		StatusHistory:  make([]domain.OrderHistoryEntry, 0, len(m.StatusHistory)),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.OrderItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   fromDecimal128(it.UnitPrice),
		})
	}
	for _, h := range m.StatusHistory {
		o.StatusHistory = append(o.StatusHistory, domain.OrderHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			ChangedBy: h.ChangedBy,
			Timestamp: h.Timestamp.UTC(),
			Note:      h.Note,
		})
	}
	return o
}

// Create inserts a new purchase order document.
func (r *PurchaseOrderRepository) Create(ctx context.Context, o *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	doc, err := toMongoOrder(o)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrOrderExists
		}
		return nil, storeError("insert purchase order", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *PurchaseOrderRepository) FindByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByIdempotencyKey retrieves an existing order that was created with the given key.
func (r *PurchaseOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PurchaseOrder, error) {
	return r.findOne(ctx, bson.M{"idempotency_key": key})
}

func (r *PurchaseOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.PurchaseOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoOrder
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, storeError("find purchase order", err)
	}
	return doc.toDomain(), nil
}

// List returns a page of orders matching filter, newest first.
func (r *PurchaseOrderRepository) List(ctx context.Context, f ports.OrderFilter) ([]*domain.PurchaseOrder, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ProjectID != "" {
		filter["project_id"] = f.ProjectID
	}
	if f.RequestedBy != "" {
		filter["requested_by"] = f.RequestedBy
	}
	if f.Supplier != "" {
		filter["supplier"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Supplier), Options: "i"}
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		created := bson.M{}
		if !f.DateFrom.IsZero() {
			created["$gte"] = f.DateFrom.UTC()
		}
		if !f.DateTo.IsZero() {
			created["$lte"] = f.DateTo.UTC()
		}
		filter["created_at"] = created
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeError("count purchase orders", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(f.Page.Skip()).
		SetLimit(int64(f.Page.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeError("list purchase orders", err)
	}
	defer cur.Close(ctx)

	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, storeError("decode purchase orders", err)
	}
	out := make([]*domain.PurchaseOrder, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, total, nil
}

// UpdateStatus atomically sets the new status and appends a history entry,
// provided the order is still in from. A concurrent transition that got there
// first makes this one fail with an invalid-transition error.
func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id string, from domain.OrderStatus, entry domain.OrderHistoryEntry) (*domain.PurchaseOrder, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "status": string(from)}
	update := bson.M{
		"$set":  bson.M{"status": string(entry.Status), "updated_at": entry.Timestamp.UTC()},
		"$push": bson.M{"status_history": toMongoHistory(entry)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoOrder
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.TransitionError(string(from), string(entry.Status))
		}
		return nil, storeError("update purchase order status", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates necessary indexes on the purchase orders collection.
func (r *PurchaseOrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "project_id", Value: 1}}},
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
