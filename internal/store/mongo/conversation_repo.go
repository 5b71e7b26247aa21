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

type conversationDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Participants    []string           `bson:"participants"`
	ParticipantsKey string             `bson:"participantsKey,omitempty"`
	IsGroup         bool               `bson:"isGroup"`
	GroupName       string             `bson:"groupName,omitempty"`
	GroupAvatar     string             `bson:"groupAvatar,omitempty"`
	LastMessage     primitive.ObjectID `bson:"lastMessage,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d *conversationDoc) toDomain() *domain.Conversation {
	c := &domain.Conversation{
		ID:              d.ID.Hex(),
		Participants:    d.Participants,
		ParticipantsKey: d.ParticipantsKey,
		IsGroup:         d.IsGroup,
		GroupName:       d.GroupName,
		GroupAvatar:     d.GroupAvatar,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if !d.LastMessage.IsZero() {
		c.LastMessageID = d.LastMessage.Hex()
	}
	return c
}

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{coll: db.Collection(conversationsColl)}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	now := time.Now().UTC()
	doc := conversationDoc{
		ID:              primitive.NewObjectID(),
		Participants:    c.Participants,
		ParticipantsKey: c.ParticipantsKey,
		IsGroup:         c.IsGroup,
		GroupName:       c.GroupName,
		GroupAvatar:     c.GroupAvatar,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	c.ID = doc.ID.Hex()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc conversationDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepo) FindDirectByKey(ctx context.Context, participantsKey string) (*domain.Conversation, error) {
	var doc conversationDoc
	err := r.coll.FindOne(ctx, bson.M{"participantsKey": participantsKey}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation by key: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ConversationRepo) TouchLastMessage(ctx context.Context, conversationID, messageID string) error {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return domain.ErrNotFound
	}
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	res, err := r.coll.UpdateByID(ctx, convOID, bson.M{
		"$set": bson.M{"lastMessage": msgOID, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("touch last message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer cur.Close(ctx)

	var res []*domain.Conversation
	for cur.Next(ctx) {
		var doc conversationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		res = append(res, doc.toDomain())
	}
	return res, cur.Err()
}
