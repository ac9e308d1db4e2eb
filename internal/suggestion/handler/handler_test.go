package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"linkup/internal/suggestion/handler/mocks"
	"linkup/internal/suggestion/strategy"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Engine
type SuggestionHandlerSuite struct {
	suite.Suite
	callerID id.UserID
}

func (s *SuggestionHandlerSuite) SetupSuite() {
	s.callerID = id.NewUserID()
}

func TestSuggestionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SuggestionHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockEngine) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockEngine := mocks.NewMockEngine(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockEngine, logger).Register(r)
	return r, mockEngine
}

func (s *SuggestionHandlerSuite) get(router chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(requestcontext.WithCallerID(req.Context(), s.callerID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *SuggestionHandlerSuite) TestHandleSuggest() {
	router, mockEngine := newTestHandler(s.T())
	target := id.NewUserID()
	mockEngine.EXPECT().
		Suggest(gomock.Any(), s.callerID, 5).
		Return([]strategy.Candidate{
			{UserID: target, Score: 0.9, Reason: "You have 3 mutual connections"},
		}, nil)

	w := s.get(router, "/suggestions?limit=5")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		Suggestions []strategy.Candidate `json:"suggestions"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Suggestions, 1)
	assert.Equal(s.T(), target, resp.Suggestions[0].UserID)
	assert.Equal(s.T(), 0.9, resp.Suggestions[0].Score)
}

func (s *SuggestionHandlerSuite) TestHandleSuggestDefaultsLimit() {
	router, mockEngine := newTestHandler(s.T())
	// An absent limit passes zero through; the engine applies its default.
	mockEngine.EXPECT().Suggest(gomock.Any(), s.callerID, 0).Return(nil, nil)

	w := s.get(router, "/suggestions")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"suggestions": []}`, w.Body.String())
}

func (s *SuggestionHandlerSuite) TestHandleSuggestBadLimit() {
	router, _ := newTestHandler(s.T())

	for _, raw := range []string{"abc", "-3"} {
		w := s.get(router, "/suggestions?limit="+raw)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	}
}

func (s *SuggestionHandlerSuite) TestHandleSuggestUnauthenticated() {
	router, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *SuggestionHandlerSuite) TestHandleRunStrategy() {
	router, mockEngine := newTestHandler(s.T())
	target := id.NewUserID()
	mockEngine.EXPECT().
		RunStrategy(gomock.Any(), "mutual-connections", s.callerID, 0).
		Return([]strategy.Candidate{
			{UserID: target, Score: 0.4, Reason: "You have 1 mutual connection"},
		}, nil)

	w := s.get(router, "/suggestions/strategies/mutual-connections")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		Strategy    string               `json:"strategy"`
		Suggestions []strategy.Candidate `json:"suggestions"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "mutual-connections", resp.Strategy)
	require.Len(s.T(), resp.Suggestions, 1)
	assert.Equal(s.T(), 0.4, resp.Suggestions[0].Score)
}

func (s *SuggestionHandlerSuite) TestHandleRunStrategyUnknown() {
	router, mockEngine := newTestHandler(s.T())
	mockEngine.EXPECT().
		RunStrategy(gomock.Any(), "astrology", s.callerID, 0).
		Return(nil, dErrors.Newf(dErrors.CodeNotFound, "unknown strategy %q", "astrology"))

	w := s.get(router, "/suggestions/strategies/astrology")

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *SuggestionHandlerSuite) TestHandleRunStrategyInapplicable() {
	router, mockEngine := newTestHandler(s.T())
	mockEngine.EXPECT().
		RunStrategy(gomock.Any(), "same-industry", s.callerID, 0).
		Return(nil, nil)

	w := s.get(router, "/suggestions/strategies/same-industry")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"strategy": "same-industry", "suggestions": []}`, w.Body.String())
}

func (s *SuggestionHandlerSuite) TestHandleApplicability() {
	router, mockEngine := newTestHandler(s.T())
	mockEngine.EXPECT().
		Applicability(gomock.Any(), s.callerID).
		Return(map[string]bool{
			"mutual-connections": true,
			"same-industry":      false,
			"same-location":      true,
		}, nil)
	mockEngine.EXPECT().Strategies().
		Return([]string{"mutual-connections", "same-industry", "same-location"})

	w := s.get(router, "/suggestions/applicability")

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		Strategies    []string        `json:"strategies"`
		Applicability map[string]bool `json:"applicability"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), []string{"mutual-connections", "same-industry", "same-location"}, resp.Strategies)
	assert.False(s.T(), resp.Applicability["same-industry"])
}

func (s *SuggestionHandlerSuite) TestContextCancellationPropagates() {
	router, mockEngine := newTestHandler(s.T())
	mockEngine.EXPECT().
		Suggest(gomock.Any(), s.callerID, 0).
		DoAndReturn(func(ctx context.Context, _ id.UserID, _ int) ([]strategy.Candidate, error) {
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeInternal, "request cancelled")
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	req = req.WithContext(requestcontext.WithCallerID(ctx, s.callerID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}
