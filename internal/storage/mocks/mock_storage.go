package mocks

import (
	"context"
	"io"

	"lawdocs/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Write(ctx context.Context, storedName string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, storedName, r, size, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, storedName)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}

func (m *MockBlobStore) Remove(ctx context.Context, storedName string) error {
	args := m.Called(ctx, storedName)
	return args.Error(0)
}

func (m *MockBlobStore) Entries(ctx context.Context) ([]storage.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Entry), args.Error(1)
}
