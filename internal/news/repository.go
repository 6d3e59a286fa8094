package news

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"newschain/internal/logging"
)

const CollectionName = "news"

// ErrNotFound is returned when no news document matches.
var ErrNotFound = errors.New("news not found")

type Repository interface {
	Create(ctx context.Context, n *News) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*News, error)
}

type mongoRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewMongoRepository(ctx context.Context, db *mongo.Database, logger *zap.Logger) (Repository, error) {
	repo := &mongoRepository{
		col:    db.Collection(CollectionName),
		logger: logging.OrNop(logger),
	}
	if err := ensureSchema(ctx, db); err != nil {
		repo.logger.Warn("failed to install collection validator", zap.Error(err))
		return nil, err
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// schema mirrors the struct tags at the database level so writes that bypass
// Validate are still rejected.
var schema = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"title", "description"},
		"properties": bson.M{
			"title":       bson.M{"bsonType": "string", "minLength": 1},
			"description": bson.M{"bsonType": "string", "minLength": 1},
			"thumbnail":   bson.M{"bsonType": "string"},
			"files":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"category":    bson.M{"enum": bson.A{CategoryEmergency, CategorySolution, CategorySensitive, CategoryUnknown}},
			"sub_category": bson.M{"enum": bson.A{
				SubCategoryVerified, SubCategoryPotentialFlagged, SubCategoryTrending, SubCategoryUnknown,
			}},
			"labels":          bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"score":           bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0, "maximum": 100},
			"score_reasoning": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
		},
	},
}

// ensureSchema creates the collection with a validator, or updates the
// validator when the collection already exists.
func ensureSchema(ctx context.Context, db *mongo.Database) error {
	err := db.CreateCollection(ctx, CollectionName, options.CreateCollection().SetValidator(schema))
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != 48 { // NamespaceExists
		return fmt.Errorf("create %s collection: %w", CollectionName, err)
	}

	if err := db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: CollectionName},
		{Key: "validator", Value: schema},
	}).Err(); err != nil {
		return fmt.Errorf("update %s validator: %w", CollectionName, err)
	}
	return nil
}

// ensureIndexes supports listing newest first and filtering by category.
func (r *mongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}, {Key: "sub_category", Value: 1}},
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		r.logger.Error("failed to create indexes", zap.Error(err))
	}
	return err
}

// Create validates and inserts n, setting its ID and timestamps.
func (r *mongoRepository) Create(ctx context.Context, n *News) error {
	n.normalize()
	if err := Validate(n); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	n.CreatedAt = now
	n.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("insert news: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = id
	}

	r.logger.Info("news inserted", zap.String("id", n.ID.Hex()), zap.String("title", n.Title))
	return nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*News, error) {
	var n News
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find news %s: %w", id.Hex(), err)
	}
	return &n, nil
}
