package mocks

import (
	"context"

	"game-builder/pkg/ai"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock type for the Gateway type
type MockGateway struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, req
func (_m *MockGateway) Complete(ctx context.Context, req ai.Request) *ai.Completion {
	ret := _m.Called(ctx, req)

	var r0 *ai.Completion
	if rf, ok := ret.Get(0).(func(context.Context, ai.Request) *ai.Completion); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*ai.Completion)
		}
	}

	return r0
}

// NewMockGateway creates a new instance of MockGateway. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGateway {
	m := &MockGateway{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ ai.Gateway = (*MockGateway)(nil)
