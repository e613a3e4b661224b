package mocks

import (
	"context"

	"game-builder/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockPrompter is a mock type for the Prompter type
type MockPrompter struct {
	mock.Mock
}

// Ask provides a mock function with given fields: ctx, question
func (_m *MockPrompter) Ask(ctx context.Context, question string) (string, error) {
	ret := _m.Called(ctx, question)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, question)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, question)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockPrompter creates a new instance of MockPrompter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPrompter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPrompter {
	m := &MockPrompter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ service.Prompter = (*MockPrompter)(nil)
