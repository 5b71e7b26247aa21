package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatcore/internal/domain"
)

type messageDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `bson:"conversationId"`
	SenderID       string             `bson:"senderId"`
	ReceiverID     string             `bson:"receiverId"`
	Text           string             `bson:"text"`
	Media          []domain.Media     `bson:"media,omitempty"`
	ReplyTo        primitive.ObjectID `bson:"replyTo,omitempty"`
	SeenBy         []string           `bson:"seenBy"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

func (d *messageDoc) toDomain() *domain.Message {
	m := &domain.Message{
		ID:             d.ID.Hex(),
		ConversationID: d.ConversationID.Hex(),
		SenderID:       d.SenderID,
		ReceiverID:     d.ReceiverID,
		Text:           d.Text,
		Media:          d.Media,
		SeenBy:         d.SeenBy,
		CreatedAt:      d.CreatedAt,
	}
	if !d.ReplyTo.IsZero() {
		m.ReplyTo = d.ReplyTo.Hex()
	}
	return m
}

type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: db.Collection(messagesColl)}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	convOID, err := primitive.ObjectIDFromHex(m.ConversationID)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	doc := messageDoc{
		ID:             primitive.NewObjectID(),
		ConversationID: convOID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		Media:          m.Media,
		SeenBy:         m.SeenBy,
		CreatedAt:      time.Now().UTC(),
	}
	if m.ReplyTo != "" {
		replyOID, err := primitive.ObjectIDFromHex(m.ReplyTo)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		doc.ReplyTo = replyOID
	}
	if doc.SeenBy == nil {
		doc.SeenBy = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = doc.ID.Hex()
	m.CreatedAt = doc.CreatedAt
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc messageDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int, before time.Time) ([]*domain.Message, error) {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, nil
	}
	filter := bson.M{"conversationId": convOID}
	if !before.IsZero() {
		filter["createdAt"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var res []*domain.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		res = append(res, doc.toDomain())
	}
	return res, cur.Err()
}

func (r *MessageRepo) MarkSeen(ctx context.Context, conversationID, viewerID string) error {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return domain.ErrNotFound
	}
	_, err = r.coll.UpdateMany(ctx,
		bson.M{"conversationId": convOID, "senderId": bson.M{"$ne": viewerID}},
		bson.M{"$addToSet": bson.M{"seenBy": viewerID}},
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (r *MessageRepo) NewestInConversation(ctx context.Context, conversationID string) (*domain.Message, error) {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, nil
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDoc
	if err := r.coll.FindOne(ctx, bson.M{"conversationId": convOID}, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("newest message: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, viewerID, counterpartID string) (int64, error) {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"conversationId": convOID,
		"senderId":       counterpartID,
		"seenBy":         bson.M{"$ne": viewerID},
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
