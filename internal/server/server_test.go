package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/netlift/netlift/internal/auditexport"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	baselinerepo "github.com/netlift/netlift/internal/baseline/repository"
	baselineservice "github.com/netlift/netlift/internal/baseline/service"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	clientrepo "github.com/netlift/netlift/internal/client/repository"
	clientservice "github.com/netlift/netlift/internal/client/service"
	"github.com/netlift/netlift/internal/clock"
	"github.com/netlift/netlift/internal/config"
	"github.com/netlift/netlift/internal/insights"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	ledgerrepo "github.com/netlift/netlift/internal/ledger/repository"
	ledgerservice "github.com/netlift/netlift/internal/ledger/service"
	"github.com/netlift/netlift/internal/observability"
	settlementdomain "github.com/netlift/netlift/internal/settlement/domain"
	settlementrepo "github.com/netlift/netlift/internal/settlement/repository"
	settlementservice "github.com/netlift/netlift/internal/settlement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAPIKey = "test-key"

type serverFixture struct {
	engine   *gin.Engine
	db       *gorm.DB
	clientID snowflake.ID
	clk      *clock.FakeClock
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&baselinedomain.BaselineSnapshot{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.AttributionLog{},
		&settlementdomain.SettlementInvoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.DefaultAttributionPolicy())

	clientSvc := clientservice.New(clientservice.Params{
		DB: db, Log: log, GenID: node, Repo: clientrepo.Provide(),
	})
	baselineSvc := baselineservice.New(baselineservice.Params{
		DB: db, Log: log, Repo: baselinerepo.Provide(),
	})
	lrepo := ledgerrepo.Provide()
	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: lrepo, ClientSvc: clientSvc, BaselineSvc: baselineSvc, Policy: policy,
	})
	settlementSvc := settlementservice.New(settlementservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: settlementrepo.Provide(), LedgerRepo: lrepo,
		ClientSvc: clientSvc, BaselineSvc: baselineSvc, Policy: policy,
	})
	insightsSvc := insights.New(insights.Params{
		DB: db, Log: log, LedgerRepo: lrepo, BaselineSvc: baselineSvc,
	})
	exporter := auditexport.New(auditexport.Params{DB: db, Log: log, Repo: lrepo})

	engine := NewEngine(observability.Config{LogLevel: "error", Environment: "test"})
	srv := NewServer(ServerParams{
		Gin: engine,
		Cfg: config.Config{APIKey: testAPIKey, RequestTimeout: 5 * time.Second},
		DB:  db, GenID: node,
		ClientSvc: clientSvc, BaselineSvc: baselineSvc,
		LedgerSvc: ledgerSvc, SettlementSvc: settlementSvc,
		InsightsSvc: insightsSvc, Exporter: exporter,
	})
	srv.RegisterRoutes()

	f := &serverFixture{engine: engine, db: db, clk: clk}

	created, err := clientSvc.Create(context.Background(), clientdomain.CreateClientRequest{
		Name: "Acme Outdoor", Platform: "shopify", FeePct: "0.20",
	})
	require.NoError(t, err)
	f.clientID = created.ID

	_, err = baselineSvc.Sync(context.Background(), created.ID, baselinedomain.SyncRequest{
		Revenue: 1_400_00, OrderCount: 20, SampleSize: 20, PeriodDays: 60,
	})
	require.NoError(t, err)

	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func (f *serverFixture) orderBody(orderID string) map[string]any {
	return map[string]any{
		"client_id":         f.clientID.String(),
		"external_order_id": orderID,
		"amount":            "99.99",
		"confidence":        0.85,
		"signals": map[string]any{
			"ad_touchpoint": 0.6,
			"acquisition":   0.5,
		},
	}
}

func TestAuth_RejectsMissingAndWrongToken(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_Open(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordOrder_CreatedThenDuplicate(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, false, data["duplicate"])

	entry := data["entry"].(map[string]any)
	assert.Equal(t, "99.99", entry["amount"])
	assert.Equal(t, true, entry["attributed"])
	assert.Equal(t, "29.99", entry["incremental_revenue"])
	assert.Equal(t, "6.00", entry["fee_amount"])

	rec = f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Equal(t, true, data["duplicate"])
}

func TestRecordOrder_Validation(t *testing.T) {
	f := newServerFixture(t)

	body := f.orderBody("ord-bad")
	body["amount"] = "not-money"
	rec := f.do(t, http.MethodPost, "/v1/orders", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = f.orderBody("ord-bad")
	body["client_id"] = "0"
	rec = f.do(t, http.MethodPost, "/v1/orders", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordOrder_UnknownClient(t *testing.T) {
	f := newServerFixture(t)

	body := f.orderBody("ord-2")
	body["client_id"] = "999999999999999999"
	rec := f.do(t, http.MethodPost, "/v1/orders", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClients_CreateAndGet(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/clients", map[string]any{
		"name": "North Peak Gear", "platform": "woocommerce", "fee_pct": "0.15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData(t, rec)
	id := created["id"].(string)

	rec = f.do(t, http.MethodGet, "/v1/clients/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData(t, rec)
	assert.Equal(t, "North Peak Gear", got["name"])
	assert.Equal(t, "0.15", got["fee_pct"])
}

func TestSyncBaseline_ReturnsSnapshot(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/v1/clients/%s/baseline", f.clientID), map[string]any{
		"revenue": "2000.00", "order_count": 40, "sample_size": 40, "period_days": 60,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.EqualValues(t, 5000, data["baseline_avg_order_value"])
}

func TestGetClientSummary(t *testing.T) {
	f := newServerFixture(t)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1")).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-2")).Code)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/summary", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.EqualValues(t, 2, data["total_orders"])
	assert.EqualValues(t, 2, data["attributed_orders"])
	assert.Equal(t, "59.98", data["cum_incremental_revenue"])
	assert.Equal(t, "12.00", data["cum_fees"])
}

func TestQueryLedger_CursorPages(t *testing.T) {
	f := newServerFixture(t)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/v1/orders", f.orderBody(fmt.Sprintf("ord-%d", i)))
		require.Equal(t, http.StatusCreated, rec.Code)
		f.clk.Advance(time.Minute)
	}

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/ledger?limit=2", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Data     []map[string]any `json:"data"`
		PageInfo struct {
			NextPageToken string `json:"next_page_token"`
			HasMore       bool   `json:"has_more"`
		} `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.True(t, page.PageInfo.HasMore)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/ledger?limit=2&cursor=%s", f.clientID, url.QueryEscape(page.PageInfo.NextPageToken)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.False(t, page.PageInfo.HasMore)
}

func TestListAttributions(t *testing.T) {
	f := newServerFixture(t)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1")).Code)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/attributions", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "ord-1", envelope.Data[0]["external_order_id"])
}

func TestExportAudit_CSV(t *testing.T) {
	f := newServerFixture(t)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1")).Code)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/audit?format=csv", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "ord-1")

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/audit?format=xml", f.clientID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlement_GenerateAndTransition(t *testing.T) {
	f := newServerFixture(t)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1")).Code)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/settlements/2026/3", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, "draft", data["status"])
	assert.Equal(t, "6.00", data["fee_amount"])
	invoiceID := data["id"].(string)

	rec = f.do(t, http.MethodPost, "/v1/settlements/"+invoiceID+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sent", decodeData(t, rec)["status"])

	rec = f.do(t, http.MethodPost, "/v1/settlements/"+invoiceID+"/pay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decodeData(t, rec)["status"])

	// paid is terminal
	rec = f.do(t, http.MethodPost, "/v1/settlements/"+invoiceID+"/dispute", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettlement_InvalidPeriod(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/settlements/2026/13", f.clientID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnonymizeClient(t *testing.T) {
	f := newServerFixture(t)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/orders", f.orderBody("ord-1")).Code)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/v1/clients/%s/anonymize", f.clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decodeData(t, rec)["anonymized"])

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/clients/%s/ledger", f.clientID), nil)
	var page struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Contains(t, page.Data[0]["external_order_id"], "anon-")
}
