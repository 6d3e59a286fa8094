package news

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newschain/internal/apperr"
	"newschain/internal/chain"
	"newschain/internal/insights"
	"newschain/internal/metrics"
	"newschain/internal/pinning"
)

// -------------------------
// Mocks
// -------------------------

type MockPinner struct{ mock.Mock }

func (m *MockPinner) PinFile(ctx context.Context, u pinning.Upload) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

type MockAnalyzer struct{ mock.Mock }

func (m *MockAnalyzer) Analyze(ctx context.Context, req insights.Request) (insights.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(insights.Result), args.Error(1)
}

type MockChain struct{ mock.Mock }

func (m *MockChain) CreateNews(ctx context.Context, p chain.NewsPayload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockChain) ListNews(ctx context.Context) ([]any, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]any)
	return items, args.Error(1)
}

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Create(ctx context.Context, n *News) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		n.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*News, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*News)
	return n, args.Error(1)
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) ObserveStep(step string, d time.Duration, err error) {
	m.Called(step, err)
}

func (m *MockRecorder) NewsCreated() {
	m.Called()
}

// -------------------------
// Suite
// -------------------------

const gateway = "https://gw.test"

type ServiceSuite struct {
	suite.Suite

	ctx      context.Context
	pinner   *MockPinner
	analyzer *MockAnalyzer
	chain    *MockChain
	repo     *MockRepository
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.pinner = &MockPinner{}
	s.analyzer = &MockAnalyzer{}
	s.chain = &MockChain{}
	s.repo = &MockRepository{}
}

func (s *ServiceSuite) service() *Service {
	return NewService(ServiceConfig{
		Gateway:  gateway,
		Pinner:   s.pinner,
		Analyzer: s.analyzer,
		Chain:    s.chain,
		Repo:     s.repo,
	}, nil)
}

func (s *ServiceSuite) TestCreate_FullPipeline() {
	doc := pinning.Upload{Name: "a.pdf", Data: []byte("a")}
	img := pinning.Upload{Name: "b.png", Data: []byte("b")}
	thumb := pinning.Upload{Name: "t.png", Data: []byte("t")}

	var order []string
	s.pinner.On("PinFile", mock.Anything, doc).Return("cid-a", nil).Run(func(mock.Arguments) { order = append(order, "a") }).Once()
	s.pinner.On("PinFile", mock.Anything, img).Return("cid-b", nil).Run(func(mock.Arguments) { order = append(order, "b") }).Once()
	s.pinner.On("PinFile", mock.Anything, thumb).Return("cid-t", nil).Run(func(mock.Arguments) { order = append(order, "t") }).Once()

	s.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(r insights.Request) bool {
		return r.Title == "Flood" && len(r.Files) == 2 && r.Thumbnail != nil
	})).Return(insights.Result{
		Status:         "success",
		Insights:       "likely accurate",
		Score:          72,
		ScoreReasoning: []string{"official source"},
		Category:       CategoryEmergency,
		SubCategory:    SubCategoryVerified,
		Labels:         []string{"weather"},
	}, nil).Once()

	s.chain.On("CreateNews", mock.Anything, chain.NewsPayload{
		Title:       "Flood",
		Description: "River rising",
		Thumbnail:   gateway + "/ipfs/cid-t",
		Files:       []string{gateway + "/ipfs/cid-a", gateway + "/ipfs/cid-b"},
		Category:    CategoryEmergency,
		SubCategory: SubCategoryVerified,
		Labels:      []string{"weather"},
		Score:       72,
	}).Return("0xhash", nil).Once()

	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(n *News) bool {
		return n.TxnHash == "0xhash" && n.Insights == "likely accurate"
	})).Return(nil).Once()

	out, err := s.service().Create(s.ctx, CreateInput{
		Title:       "Flood",
		Description: "River rising",
		Thumbnail:   &thumb,
		Files:       []pinning.Upload{doc, img},
	})
	s.Require().NoError(err)

	s.Equal("0xhash", out.TxnHash)
	s.Equal([]string{"a", "b", "t"}, order, "files are pinned in order, then the thumbnail")
	s.Equal(gateway+"/ipfs/cid-t", out.News.Thumbnail)
	s.Equal(float64(72), out.News.Score)
	s.False(out.News.ID.IsZero())

	s.pinner.AssertExpectations(s.T())
	s.analyzer.AssertExpectations(s.T())
	s.chain.AssertExpectations(s.T())
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestCreate_MissingFieldsFailBeforeUploads() {
	_, err := s.service().Create(s.ctx, CreateInput{
		Files: []pinning.Upload{{Name: "a.pdf"}},
	})
	s.Require().Error(err)

	vErrs, ok := IsValidation(err)
	s.Require().True(ok)
	s.Len(FieldErrors(vErrs), 2)

	s.pinner.AssertNotCalled(s.T(), "PinFile", mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreate_NoPinner() {
	svc := NewService(ServiceConfig{Gateway: gateway, Repo: s.repo}, nil)

	_, err := svc.Create(s.ctx, CreateInput{Title: "t", Description: "d"})

	var appErr *apperr.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(http.StatusInternalServerError, appErr.StatusCode)
	s.Equal("Pinata JWT not set", appErr.Message)
}

func (s *ServiceSuite) TestCreate_PinFailureStops() {
	s.pinner.On("PinFile", mock.Anything, mock.Anything).Return("", errors.New("401 unauthorized")).Once()

	_, err := s.service().Create(s.ctx, CreateInput{
		Title:       "t",
		Description: "d",
		Files:       []pinning.Upload{{Name: "a"}, {Name: "b"}},
	})
	s.Require().Error(err)
	s.Contains(err.Error(), "401 unauthorized")

	s.pinner.AssertNumberOfCalls(s.T(), "PinFile", 1)
	s.analyzer.AssertNotCalled(s.T(), "Analyze", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreate_InsightsRejected() {
	s.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(insights.Result{Status: "error", Error: "model overloaded"}, nil).Once()

	_, err := s.service().Create(s.ctx, CreateInput{Title: "t", Description: "d"})

	var appErr *apperr.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(http.StatusBadGateway, appErr.StatusCode)
	s.Equal("Failed to get news insights", appErr.Message)
	s.Equal("model overloaded", appErr.Errors)
	s.chain.AssertNotCalled(s.T(), "CreateNews", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreate_ChainFailureSkipsInsert() {
	s.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(insights.Result{Status: "success"}, nil).Once()
	s.chain.On("CreateNews", mock.Anything, mock.Anything).Return("", errors.New("Move abort")).Once()

	_, err := s.service().Create(s.ctx, CreateInput{Title: "t", Description: "d"})
	s.Require().Error(err)
	s.Contains(err.Error(), "Move abort")
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreate_OptionalCollaboratorsSkipped() {
	s.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	svc := NewService(ServiceConfig{Gateway: gateway, Pinner: s.pinner, Repo: s.repo}, nil)

	out, err := svc.Create(s.ctx, CreateInput{Title: "t", Description: "d"})
	s.Require().NoError(err)
	s.Empty(out.TxnHash)
	s.Equal([]string{}, out.News.Files)
	s.Empty(out.News.Thumbnail)
}

func (s *ServiceSuite) TestCreate_RecordsMetrics() {
	rec := &MockRecorder{}
	rec.On("ObserveStep", mock.Anything, nil).Return()
	rec.On("NewsCreated").Return().Once()
	s.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewService(ServiceConfig{Gateway: gateway, Pinner: s.pinner, Repo: s.repo, Metrics: rec}, nil)
	_, err := svc.Create(s.ctx, CreateInput{Title: "t", Description: "d"})
	s.Require().NoError(err)

	rec.AssertCalled(s.T(), "ObserveStep", metrics.StepValidate, nil)
	rec.AssertCalled(s.T(), "ObserveStep", metrics.StepPin, nil)
	rec.AssertCalled(s.T(), "ObserveStep", metrics.StepStore, nil)
	rec.AssertNotCalled(s.T(), "ObserveStep", metrics.StepChain, nil)
	rec.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestList() {
	items := []any{map[string]any{"title": "t"}}
	s.chain.On("ListNews", mock.Anything).Return(items, nil).Once()

	got, err := s.service().List(s.ctx)
	s.Require().NoError(err)
	s.Equal(items, got)
}

func (s *ServiceSuite) TestList_NoChain() {
	svc := NewService(ServiceConfig{Repo: s.repo}, nil)

	_, err := svc.List(s.ctx)

	var appErr *apperr.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(http.StatusServiceUnavailable, appErr.StatusCode)
}

func (s *ServiceSuite) TestCreate_InvalidFileURLNeverReachesChain() {
	s.pinner.On("PinFile", mock.Anything, mock.Anything).Return("bafyfile", nil).Once()
	s.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(insights.Result{Status: "success"}, nil).Once()

	svc := NewService(ServiceConfig{
		Gateway:  "moccasin-petite-canid-8.mypinata.cloud",
		Pinner:   s.pinner,
		Analyzer: s.analyzer,
		Chain:    s.chain,
		Repo:     s.repo,
	}, nil)

	_, err := svc.Create(s.ctx, CreateInput{
		Title:       "t",
		Description: "d",
		Files:       []pinning.Upload{{Name: "a.pdf", Data: []byte("a")}},
	})
	s.Require().Error(err)

	vErrs, ok := IsValidation(err)
	s.Require().True(ok)
	s.Equal("files[0]", FieldErrors(vErrs)[0].Field)

	s.chain.AssertNotCalled(s.T(), "CreateNews", mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreate_UnknownCategoryNeverReachesChain() {
	s.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(insights.Result{Status: "success", Category: "Gossip", Score: 40}, nil).Once()

	_, err := s.service().Create(s.ctx, CreateInput{Title: "t", Description: "d"})
	s.Require().Error(err)

	vErrs, ok := IsValidation(err)
	s.Require().True(ok)
	s.Equal("category", FieldErrors(vErrs)[0].Field)

	s.chain.AssertNotCalled(s.T(), "CreateNews", mock.Anything, mock.Anything)
}
