package mocks

import (
	"context"

	"diaryapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockDiaryRepository struct {
	mock.Mock
}

func (m *MockDiaryRepository) List(ctx context.Context) []model.DiaryEntry {
	args := m.Called(ctx)
	return args.Get(0).([]model.DiaryEntry)
}

func (m *MockDiaryRepository) FindByID(ctx context.Context, id int64) (model.DiaryEntry, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.DiaryEntry), args.Bool(1)
}

func (m *MockDiaryRepository) Create(ctx context.Context, in model.NewEntry) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiaryRepository) Update(ctx context.Context, id int64, patch model.EntryPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockDiaryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDiaryRepository) Search(ctx context.Context, query string) []model.DiaryEntry {
	args := m.Called(ctx, query)
	return args.Get(0).([]model.DiaryEntry)
}

func (m *MockDiaryRepository) Snapshot(ctx context.Context) ([]model.DiaryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiaryEntry), args.Error(1)
}
