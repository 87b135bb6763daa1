package mongo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

func TestNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("mark read adds the reader", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		err := NewNotificationRepository(mt.DB).MarkRead(context.Background(), primitive.NewObjectID().Hex(), "u-1")
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		cmd := mt.GetStartedEvent().Command.String()
		if !strings.Contains(cmd, "$addToSet") || !strings.Contains(cmd, "read_by") || !strings.Contains(cmd, "u-1") {
			t.Fatalf("update command = %s", cmd)
		}
	})

	mt.Run("mark read on missing notification", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := NewNotificationRepository(mt.DB).MarkRead(context.Background(), primitive.NewObjectID().Hex(), "u-1")
		if !errors.Is(err, domain.ErrNotificationNotFound) {
			t.Fatalf("expected ErrNotificationNotFound, got %v", err)
		}
	})

	mt.Run("list computes read state per reader", func(mt *mtest.T) {
		created := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "civil360.notifications", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, "civil360.notifications", mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "recipient_role", Value: "general_director"},
					{Key: "title", Value: "Order submitted"},
					{Key: "read_by", Value: bson.A{"u-1"}},
					{Key: "created_at", Value: created},
				},
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "recipient_role", Value: "general_director"},
					{Key: "title", Value: "Order approved"},
					{Key: "read_by", Value: bson.A{"u-9"}},
					{Key: "created_at", Value: created},
				},
			),
		)

		items, total, err := NewNotificationRepository(mt.DB).List(context.Background(), ports.NotificationFilter{
			RecipientID:   "u-1",
			RecipientRole: domain.RoleGeneralDirector,
			Page:          ports.NewPage(1, 20),
		})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 2 || len(items) != 2 {
			t.Fatalf("total=%d items=%d", total, len(items))
		}
		if !items[0].Read || items[1].Read {
			t.Fatalf("read state = %v/%v, want true/false", items[0].Read, items[1].Read)
		}
	})
}
