package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/config"
	"fintrack/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionHandler(cfg *config.Config) *TransactionHandler {
	table := service.NewCategoryTable()
	return NewTransactionHandler(
		table,
		service.NewClassifierService(table, 0.4),
		service.NewBudgetService(),
		service.NewGoalService(),
		service.NewEmailService(&cfg.Email),
	)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret"},
	}
}

func TestTransactionHandler_Create_AutoClassifies(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	// 类别留空：先查个性化映射（无），内置关键词命中 food
	mock.ExpectQuery("SELECT .* FROM `category_mappings`").
		WillReturnRows(sqlmock.NewRows([]string{}))

	// 写入交易
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	// 支出联动：没有预算、没有开启凑整的目标
	mock.ExpectQuery("SELECT .* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT .* FROM `goals`").
		WillReturnRows(sqlmock.NewRows([]string{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(1))
	h := newTestTransactionHandler(cfg)
	router.POST("/transactions", h.Create)

	body := `{"amount":38.50,"kind":"expense","merchant_name":"Starbucks Coffee","transaction_time":"2024-01-15 08:30:00"}`
	req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	tx := data["transaction"].(map[string]interface{})
	assert.Equal(t, "food", tx["category"])
	assert.Equal(t, true, tx["auto_categorized"])

	classification := data["classification"].(map[string]interface{})
	assert.Equal(t, "exact_match", classification["method"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHandler_Create_InvalidKind(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(1))
	h := newTestTransactionHandler(cfg)
	router.POST("/transactions", h.Create)

	body := `{"amount":10,"kind":"donation","transaction_time":"2024-01-15 08:30:00"}`
	req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestTransactionHandler_Create_InvalidCategory(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(1))
	h := newTestTransactionHandler(cfg)
	router.POST("/transactions", h.Create)

	body := `{"amount":10,"kind":"expense","category":"nonsense","transaction_time":"2024-01-15 08:30:00"}`
	req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "无效的类别", resp["message"])
}

func TestTransactionHandler_Create_IncomeSkipsLinkage(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	// 收入入账：用户指定类别，不触发预算检查和自动凑整
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(1))
	h := newTestTransactionHandler(cfg)
	router.POST("/transactions", h.Create)

	body := `{"amount":8000,"kind":"income","category":"income","transaction_time":"2024-01-01 09:00:00"}`
	req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHandler_List(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	txTime := time.Date(2024, 1, 15, 8, 30, 0, 0, time.Local)
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "kind", "category", "merchant_name", "description", "transaction_time", "auto_categorized", "user_overrode_category", "created_at", "updated_at", "deleted_at"}).
			AddRow(1, 1, 38.5, "expense", "food", "Starbucks", "", txTime, true, false, txTime, txTime, nil))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(asUser(1))
	h := newTestTransactionHandler(cfg)
	router.GET("/transactions", h.List)

	req := httptest.NewRequest("GET", "/transactions?category=food", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHandler_GetCategories(t *testing.T) {
	cfg := testConfig()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := newTestTransactionHandler(cfg)
	router.GET("/categories", h.GetCategories)

	req := httptest.NewRequest("GET", "/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	categories := resp["data"].([]interface{})
	// 9 个内置类别 + 未分类
	assert.Len(t, categories, 10)
	last := categories[len(categories)-1].(map[string]interface{})
	assert.Equal(t, "uncategorized", last["id"])
}
