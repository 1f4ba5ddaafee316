package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *ClassifierService {
	return NewClassifierService(NewCategoryTable(), 0.4)
}

func TestClassify_ExactMatch(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	// 关键词精确命中给满置信度
	r := s.Classify(ctx, 0, "Starbucks Coffee #1234")
	assert.Equal(t, "food", r.Category)
	assert.Equal(t, MethodExactMatch, r.Method)
	assert.Equal(t, 1.0, r.Confidence)

	r = s.Classify(ctx, 0, "滴滴出行")
	assert.Equal(t, "transport", r.Category)
	assert.Equal(t, MethodExactMatch, r.Method)

	r = s.Classify(ctx, 0, "NETFLIX.COM")
	assert.Equal(t, "entertainment", r.Category)
}

func TestClassify_FuzzyMatch(t *testing.T) {
	s := newTestClassifier()

	// 拼写错误的 starbucks：编辑距离 1 / 9 ≈ 0.111
	r := s.Classify(context.Background(), 0, "starbuks")
	assert.Equal(t, "food", r.Category)
	assert.Equal(t, MethodFuzzyMatch, r.Method)
	assert.InDelta(t, 0.89, r.Confidence, 0.01)
}

func TestClassify_Default(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	// 完全无关的商户名落到未分类
	r := s.Classify(ctx, 0, "zzzzqqqqxxxx")
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, MethodDefault, r.Method)
	assert.Equal(t, 0.0, r.Confidence)

	// 空商户名
	r = s.Classify(ctx, 0, "   ")
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, MethodDefault, r.Method)
}

func TestClassify_UserMappingWins(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := newTestClassifier()

	// 用户把 starbucks 修正为 entertainment，个性化映射要压过内置关键词
	mock.ExpectQuery("SELECT .* FROM `category_mappings`").
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "keyword", "category", "confidence", "usage_count", "created_at", "updated_at"}).
			AddRow(1, 1, "starbucks", "entertainment", 0.7, 3, time.Now(), time.Now()))

	r := s.Classify(context.Background(), 1, "Starbucks Coffee")
	assert.Equal(t, "entertainment", r.Category)
	assert.Equal(t, MethodUserMapping, r.Method)
	assert.Equal(t, 0.7, r.Confidence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify_UserMappingMissFallsThrough(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := newTestClassifier()

	// 有映射但关键词不匹配，落到精确匹配
	mock.ExpectQuery("SELECT .* FROM `category_mappings`").
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "keyword", "category", "confidence", "usage_count", "created_at", "updated_at"}).
			AddRow(1, 1, "gymbox", "health", 0.5, 1, time.Now(), time.Now()))

	r := s.Classify(context.Background(), 1, "uber trip")
	assert.Equal(t, "transport", r.Category)
	assert.Equal(t, MethodExactMatch, r.Method)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Starbucks Coffee #1234", "starbucks"},
		{"The Coffee Shop", "coffee"},
		{"A to B Transport", "transport"},
		{"McDonald's", "mcdonalds"},
		{"ab", "ab"}, // 没有合格单词时退回清洗后的原串
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractKeyword(tt.in), "input=%q", tt.in)
	}
}

func TestSaveUserCorrection_CreatesMapping(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := newTestClassifier()

	// 不存在则新建，初始置信度 0.5
	mock.ExpectQuery("SELECT .* FROM `category_mappings`").
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `category_mappings`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.SaveUserCorrection(context.Background(), 1, "Starbucks Coffee", "entertainment")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUserCorrection_UpdatesExisting(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := newTestClassifier()

	// 已存在则置信度 +0.1、使用次数 +1
	mock.ExpectQuery("SELECT .* FROM `category_mappings`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "keyword", "category", "confidence", "usage_count", "created_at", "updated_at"}).
			AddRow(5, 1, "starbucks", "food", 0.5, 1, time.Now(), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `category_mappings`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SaveUserCorrection(context.Background(), 1, "Starbucks Coffee", "entertainment")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUserCorrection_EmptyKeyword(t *testing.T) {
	s := newTestClassifier()
	// 提取不出关键词时不动数据库
	require.NoError(t, s.SaveUserCorrection(context.Background(), 1, "", "food"))
}

func TestSuggestCategories(t *testing.T) {
	s := newTestClassifier()

	suggestions := s.SuggestCategories(context.Background(), 0, "Starbucks", 3)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "food", suggestions[0].Category)
	assert.LessOrEqual(t, len(suggestions), 3)

	assert.Nil(t, s.SuggestCategories(context.Background(), 0, "", 3))
}
