package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"placely_ingest_v1_202601/internal/controller"
	"placely_ingest_v1_202601/internal/middleware"
	"placely_ingest_v1_202601/internal/model"
	"placely_ingest_v1_202601/internal/repository"
	"placely_ingest_v1_202601/internal/router"
	"placely_ingest_v1_202601/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试环境 ====================

type testEnv struct {
	engine      *gin.Engine
	db          *gorm.DB
	adminToken  string
	workerToken string
}

// setupTestEnv 用真实 service + 内存 sqlite 搭完整路由
func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.CatalogItem{}, &model.IngestJob{}, &model.IngestProposal{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	storage, err := service.NewStorageService(&service.StorageConfig{
		Provider: "local",
		BasePath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("初始化测试存储失败: %v", err)
	}

	uow := repository.NewIngestUnitOfWork(db)
	catalogSvc := service.NewCatalogService(repository.NewCatalogItemRepository(db))
	ingestSvc := service.NewIngestService(uow, storage)
	proposalSvc := service.NewProposalService(uow)

	engine := gin.New()
	router.InitRoutes(engine,
		controller.NewCatalogController(catalogSvc),
		controller.NewIngestController(ingestSvc, proposalSvc),
		controller.NewWorkerController(ingestSvc),
	)

	adminToken, err := middleware.GenerateAccessToken(1, "tester", middleware.RoleAdmin)
	if err != nil {
		t.Fatalf("签发测试 token 失败: %v", err)
	}
	workerToken, err := middleware.GenerateAccessToken(2, "extract-worker", middleware.RoleWorker)
	if err != nil {
		t.Fatalf("签发测试 token 失败: %v", err)
	}

	return &testEnv{engine: engine, db: db, adminToken: adminToken, workerToken: workerToken}
}

func performRequest(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v body=%s", err, w.Body.String())
	}
	return resp
}

// ==================== 认证测试 ====================

func TestCatalogRoutes_Auth(t *testing.T) {
	env := setupTestEnv(t)

	// 无 token
	w := performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// worker 角色进不了商户路由
	w = performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", env.workerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// admin 角色进不了 worker 路由
	w = performRequest(env.engine, "POST", "/worker/jobs/1/start", env.adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := setupTestEnv(t)

	// 缺省时生成
	w := performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", env.adminToken, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// 上游带来的原样透传
	req, _ := http.NewRequest("GET", "/api/listings/1/catalog/menuItems/items", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	req.Header.Set("X-Request-ID", "upstream-trace-42")
	w2 := httptest.NewRecorder()
	env.engine.ServeHTTP(w2, req)
	assert.Equal(t, "upstream-trace-42", w2.Header().Get("X-Request-ID"))
}

// ==================== 条目 CRUD 测试 ====================

func TestCatalogController_UpsertAndList(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items", env.adminToken,
		map[string]interface{}{"name": "Margherita", "price": 12.0, "currency": "eur"})
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeData(t, w)
	assert.EqualValues(t, 0, resp["code"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "EUR", data["currency"])

	w = performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decodeData(t, w)
	items := resp["data"].([]interface{})
	assert.Len(t, items, 1)
}

func TestCatalogController_Upsert_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
	}{
		{
			name:       "名称为空",
			path:       "/api/listings/1/catalog/menuItems/items",
			body:       map[string]interface{}{"name": "  "},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "非法品类",
			path:       "/api/listings/1/catalog/beverages/items",
			body:       map[string]interface{}{"name": "Cola"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "非法商户ID",
			path:       "/api/listings/abc/catalog/menuItems/items",
			body:       map[string]interface{}{"name": "Cola"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "更新不存在的条目",
			path:       "/api/listings/1/catalog/menuItems/items",
			body:       map[string]interface{}{"id": 999, "name": "Ghost"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(env.engine, "POST", tt.path, env.adminToken, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCatalogController_KindAlias(t *testing.T) {
	env := setupTestEnv(t)

	// 旧版别名 menu 等价于 menuItems
	w := performRequest(env.engine, "POST", "/api/listings/1/catalog/menu/items", env.adminToken,
		map[string]interface{}{"name": "Margherita"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", env.adminToken, nil)
	resp := decodeData(t, w)
	assert.Len(t, resp["data"].([]interface{}), 1)
}

func TestCatalogController_Delete(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(env.engine, "POST", "/api/listings/1/catalog/services/items", env.adminToken,
		map[string]interface{}{"name": "Haircut"})
	data := decodeData(t, w)["data"].(map[string]interface{})
	itemID := int64(data["id"].(float64))

	w = performRequest(env.engine, "DELETE",
		fmt.Sprintf("/api/listings/1/catalog/services/items/%d", itemID), env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 再删 404
	w = performRequest(env.engine, "DELETE",
		fmt.Sprintf("/api/listings/1/catalog/services/items/%d", itemID), env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogController_QuickAdd(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items/quick-add", env.adminToken,
		map[string]interface{}{"text": "Margherita €12, Tiramisu 6.50 EUR"})
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["created_count"])
}

func TestCatalogController_Reorder(t *testing.T) {
	env := setupTestEnv(t)

	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		w := performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items", env.adminToken,
			map[string]interface{}{"name": name})
		data := decodeData(t, w)["data"].(map[string]interface{})
		ids = append(ids, int64(data["id"].(float64)))
	}

	w := performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items/reorder", env.adminToken,
		map[string]interface{}{"item_ids": []int64{ids[2], ids[0], ids[1]}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items", env.adminToken, nil)
	items := decodeData(t, w)["data"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "C", first["name"])
}

func TestCatalogController_ListGrouped(t *testing.T) {
	env := setupTestEnv(t)

	performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items", env.adminToken,
		map[string]interface{}{"name": "Margherita", "category": "Pizza"})
	performRequest(env.engine, "POST", "/api/listings/1/catalog/menuItems/items", env.adminToken,
		map[string]interface{}{"name": "Tiramisu"})

	w := performRequest(env.engine, "GET", "/api/listings/1/catalog/menuItems/items?grouped=true", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	groups := decodeData(t, w)["data"].([]interface{})
	assert.Len(t, groups, 2)
	last := groups[1].(map[string]interface{})
	assert.Equal(t, model.DefaultCategory, last["category"])
}
