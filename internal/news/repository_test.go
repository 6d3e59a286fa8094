package news_test

import (
	"context"
	"testing"
	"time"

	"newschain/internal/db"
	"newschain/internal/news"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type NewsRepositorySuite struct {
	suite.Suite

	ctx    context.Context
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection

	repo news.Repository
}

func TestNewsRepositorySuite(t *testing.T) {
	suite.Run(t, new(NewsRepositorySuite))
}

func (s *NewsRepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	connectCtx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()

	client, err := db.ConnectMongo(connectCtx, "mongodb://localhost:27017")
	if err != nil {
		s.T().Skipf("mongo not available: %v", err)
	}
	s.client = client
	s.db = client.Database("test_newsdb")
	s.col = s.db.Collection(news.CollectionName)
}

func (s *NewsRepositorySuite) TearDownSuite() {
	if s.client != nil {
		_ = s.db.Drop(s.ctx)
		_ = s.client.Disconnect(s.ctx)
	}
}

func (s *NewsRepositorySuite) SetupTest() {
	// ensure a fresh DB before each test
	_ = s.db.Drop(s.ctx)

	repo, err := news.NewMongoRepository(s.ctx, s.db, nil)
	s.Require().NoError(err, "failed to create news repository")
	s.repo = repo
}

func (s *NewsRepositorySuite) TestCreateAndFind() {
	n := &news.News{
		Title:          "Flood warning",
		Description:    "River levels rising",
		Thumbnail:      "https://gw.test/ipfs/bafythumb",
		Files:          []string{"https://gw.test/ipfs/bafyfile"},
		Category:       news.CategoryEmergency,
		SubCategory:    news.SubCategoryPotentialFlagged,
		Labels:         []string{"News"},
		Score:          65,
		ScoreReasoning: []string{"Named official source (+15)"},
		Insights:       "analysis",
		TxnHash:        "0xabc",
	}

	err := s.repo.Create(s.ctx, n)
	s.Require().NoError(err)
	s.False(n.ID.IsZero(), "id assigned on insert")
	s.False(n.CreatedAt.IsZero())
	s.Equal(n.CreatedAt, n.UpdatedAt)

	got, err := s.repo.FindByID(s.ctx, n.ID)
	s.Require().NoError(err)
	s.Equal("Flood warning", got.Title)
	s.Equal(news.SubCategoryPotentialFlagged, got.SubCategory)
	s.Equal([]string{"https://gw.test/ipfs/bafyfile"}, got.Files)
	s.Equal(float64(65), got.Score)
	s.Equal(n.CreatedAt, got.CreatedAt.UTC())
}

func (s *NewsRepositorySuite) TestCreateWithoutFilesStoresEmptyLists() {
	n := &news.News{Title: "t", Description: "d"}

	s.Require().NoError(s.repo.Create(s.ctx, n))

	var raw bson.M
	s.Require().NoError(s.col.FindOne(s.ctx, bson.M{"_id": n.ID}).Decode(&raw))
	s.Require().Contains(raw, "files", "empty list stored, not null")
	s.IsType(bson.A{}, raw["files"])
	s.Len(raw["files"], 0)
	s.IsType(bson.A{}, raw["labels"])
	_, hasThumb := raw["thumbnail"]
	s.False(hasThumb)
}

func (s *NewsRepositorySuite) TestCreateRejectsMissingFields() {
	err := s.repo.Create(s.ctx, &news.News{Title: "only a title"})
	s.Require().Error(err)

	vErrs, ok := news.IsValidation(err)
	s.Require().True(ok)
	fields := news.FieldErrors(vErrs)
	s.Require().Len(fields, 1)
	s.Equal("description", fields[0].Field)

	count, err := s.col.CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *NewsRepositorySuite) TestCollectionValidatorRejectsRawWrites() {
	_, err := s.col.InsertOne(s.ctx, bson.M{"title": "no description"})
	s.Require().Error(err)

	fields, ok := news.DocumentValidationErrors(err)
	s.Require().True(ok)
	s.NotEmpty(fields)
}

func (s *NewsRepositorySuite) TestFindByIDNotFound() {
	_, err := s.repo.FindByID(s.ctx, [12]byte{1})
	s.ErrorIs(err, news.ErrNotFound)
}
