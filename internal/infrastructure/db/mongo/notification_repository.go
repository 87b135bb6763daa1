package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

const collectionNotifications = "notifications"

// NotificationRepository implements ports.NotificationRepository using MongoDB.
type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{col: db.Collection(collectionNotifications)}
}

type mongoNotification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	RecipientID   string             `bson:"recipient_id,omitempty"`
	RecipientRole string             `bson:"recipient_role,omitempty"`
	Title         string             `bson:"title"`
	Message       string             `bson:"message"`
	Link          string             `bson:"link,omitempty"`
	ReadBy        []string           `bson:"read_by,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// toDomain converts the document, computing Read for viewer.
func (m *mongoNotification) toDomain(viewer string) *domain.Notification {
	n := &domain.Notification{
		ID:            m.ID.Hex(),
		RecipientID:   m.RecipientID,
		RecipientRole: domain.Role(m.RecipientRole),
		Title:         m.Title,
		Message:       m.Message,
		Link:          m.Link,
		ReadBy:        m.ReadBy,
		CreatedAt:     m.CreatedAt.UTC(),
	}
	n.Read = n.IsReadBy(viewer)
	return n
}

// Insert persists n and fills in its ID.
func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, mongoNotification{
		RecipientID:   n.RecipientID,
		RecipientRole: string(n.RecipientRole),
		Title:         n.Title,
		Message:       n.Message,
		Link:          n.Link,
		ReadBy:        n.ReadBy,
		CreatedAt:     n.CreatedAt.UTC(),
	})
	if err != nil {
		return storeError("insert notification", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotificationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoNotification
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, storeError("find notification", err)
	}
	return doc.toDomain(""), nil
}

// List returns the notifications addressed to the recipient id or role,
// newest first.
func (r *NotificationRepository) List(ctx context.Context, f ports.NotificationFilter) ([]*domain.Notification, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	audience := bson.A{bson.M{"recipient_id": f.RecipientID}}
	if f.RecipientRole != "" {
		audience = append(audience, bson.M{"recipient_id": bson.M{"$exists": false}, "recipient_role": string(f.RecipientRole)})
	}
	filter := bson.M{"$or": audience}
	if f.UnreadOnly {
		filter["read_by"] = bson.M{"$ne": f.RecipientID}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeError("count notifications", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(f.Page.Skip()).
		SetLimit(int64(f.Page.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeError("list notifications", err)
	}
	defer cur.Close(ctx)

	var docs []mongoNotification
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, storeError("decode notifications", err)
	}
	out := make([]*domain.Notification, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain(f.RecipientID))
	}
	return out, total, nil
}

// MarkRead adds userID to the readers of the notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotificationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$addToSet": bson.M{"read_by": userID}})
	if err != nil {
		return storeError("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the notifications collection.
func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_role", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
