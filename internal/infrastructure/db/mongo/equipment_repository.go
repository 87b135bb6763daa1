package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

const collectionEquipment = "equipment"

type EquipmentRepository struct {
	col *mongo.Collection
}

func NewEquipmentRepository(db *mongo.Database) *EquipmentRepository {
	return &EquipmentRepository{col: db.Collection(collectionEquipment)}
}

type mongoEquipment struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	Code            string              `bson:"code"`
	Name            string              `bson:"name"`
	Category        string              `bson:"category"`
	Status          string              `bson:"status"`
	ProjectID       string              `bson:"project_id,omitempty"`
	Location        *domain.Coordinates `bson:"location,omitempty"`
	LastTelemetryAt *time.Time          `bson:"last_telemetry_at,omitempty"`
	IsActive        bool                `bson:"is_active"`
	CreatedAt       time.Time           `bson:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at"`
}

func (m *mongoEquipment) toDomain() *domain.Equipment {
	e := &domain.Equipment{
		ID:        m.ID.Hex(),
		Code:      m.Code,
		Name:      m.Name,
		Category:  m.Category,
		Status:    domain.EquipmentStatus(m.Status),
		ProjectID: m.ProjectID,
		Location:  m.Location,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.LastTelemetryAt != nil {
		t := m.LastTelemetryAt.UTC()
		e.LastTelemetryAt = &t
	}
	return e
}

// Create inserts a new equipment document.
func (r *EquipmentRepository) Create(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoEquipment{
		Code:      e.Code,
		Name:      e.Name,
		Category:  e.Category,
		Status:    string(e.Status),
		ProjectID: e.ProjectID,
		Location:  e.Location,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEquipmentExists
		}
		return nil, storeError("insert equipment", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*domain.Equipment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEquipmentNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoEquipment
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEquipmentNotFound
		}
		return nil, storeError("find equipment", err)
	}
	return doc.toDomain(), nil
}

// List returns a page of equipment matching filter, ordered by code.
func (r *EquipmentRepository) List(ctx context.Context, f ports.EquipmentFilter) ([]*domain.Equipment, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ProjectID != "" {
		filter["project_id"] = f.ProjectID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"code": pattern},
			bson.M{"name": pattern},
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeError("count equipment", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "code", Value: 1}}).
		SetSkip(f.Page.Skip()).
		SetLimit(int64(f.Page.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeError("list equipment", err)
	}
	defer cur.Close(ctx)

	var docs []mongoEquipment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, storeError("decode equipment", err)
	}
	out := make([]*domain.Equipment, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, total, nil
}

// Update applies the non-nil fields of upd and returns the updated document.
func (r *EquipmentRepository) Update(ctx context.Context, id string, upd ports.EquipmentUpdate, at time.Time) (*domain.Equipment, error) {
	set := bson.M{"updated_at": at}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.ProjectID != nil {
		set["project_id"] = *upd.ProjectID
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	return r.findAndSet(ctx, id, set, "update equipment")
}

// RecordTelemetry stores the latest reported position.
func (r *EquipmentRepository) RecordTelemetry(ctx context.Context, ping domain.TelemetryPing) (*domain.Equipment, error) {
	return r.findAndSet(ctx, ping.EquipmentID, bson.M{
		"location":          ping.Location,
		"last_telemetry_at": ping.RecordedAt.UTC(),
		"updated_at":        time.Now().UTC(),
	}, "record telemetry")
}

func (r *EquipmentRepository) findAndSet(ctx context.Context, id string, set bson.M, op string) (*domain.Equipment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEquipmentNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoEquipment
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEquipmentNotFound
		}
		return nil, storeError(op, err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates necessary indexes on the equipment collection.
func (r *EquipmentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "project_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
