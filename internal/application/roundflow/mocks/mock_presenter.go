package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/execution-hub/matchflow/internal/domain/battle"
)

// MockPresenter is a mock implementation of roundflow.Presenter
type MockPresenter struct {
	mock.Mock
}

func (m *MockPresenter) ShowOutcome(outcome battle.RoundEvaluated) {
	m.Called(outcome)
}

func (m *MockPresenter) ApplyTransition(detail any) {
	m.Called(detail)
}
