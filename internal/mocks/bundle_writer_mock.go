package mocks

import (
	"context"

	"game-builder/internal/domain"
	"game-builder/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockBundleWriter is a mock type for the BundleWriter type
type MockBundleWriter struct {
	mock.Mock
}

// WriteBundle provides a mock function with given fields: ctx, bundle
func (_m *MockBundleWriter) WriteBundle(ctx context.Context, bundle domain.ArtifactBundle) ([]string, error) {
	ret := _m.Called(ctx, bundle)

	var r0 []string
	if rf, ok := ret.Get(0).(func(context.Context, domain.ArtifactBundle) []string); ok {
		r0 = rf(ctx, bundle)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, domain.ArtifactBundle) error); ok {
		r1 = rf(ctx, bundle)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockBundleWriter creates a new instance of MockBundleWriter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockBundleWriter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBundleWriter {
	m := &MockBundleWriter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ repository.BundleWriter = (*MockBundleWriter)(nil)
