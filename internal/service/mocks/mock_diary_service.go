package mocks

import (
	"context"

	"diaryapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockDiaryService struct {
	mock.Mock
}

func (m *MockDiaryService) List(ctx context.Context) []model.DiaryEntry {
	args := m.Called(ctx)
	return args.Get(0).([]model.DiaryEntry)
}

func (m *MockDiaryService) Search(ctx context.Context, query string) []model.DiaryEntry {
	args := m.Called(ctx, query)
	return args.Get(0).([]model.DiaryEntry)
}

func (m *MockDiaryService) Get(ctx context.Context, id int64) (*model.DiaryEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiaryEntry), args.Error(1)
}

func (m *MockDiaryService) Create(ctx context.Context, in model.NewEntry) (*model.DiaryEntry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiaryEntry), args.Error(1)
}

func (m *MockDiaryService) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.DiaryEntry, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiaryEntry), args.Error(1)
}

func (m *MockDiaryService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDiaryService) SweepOrphans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
