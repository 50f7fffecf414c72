package in

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletledger/service/internal/apperr"
	"github.com/walletledger/service/internal/domain/transactionlog"
	"github.com/walletledger/service/internal/domain/transfer"
	"github.com/walletledger/service/internal/domain/wallet"
	"github.com/walletledger/service/internal/services/command"
	"github.com/walletledger/service/internal/services/idempotency"
	"github.com/walletledger/service/internal/services/query"
	"github.com/walletledger/service/pkg/mlog"
	"github.com/walletledger/service/pkg/mretry"
)

type memWallets struct {
	byID map[string]*wallet.Wallet
}

func (m *memWallets) Create(ctx context.Context, w *wallet.Wallet) error {
	m.byID[w.ID] = w
	return nil
}

func (m *memWallets) FindByID(ctx context.Context, id string) (*wallet.Wallet, error) {
	if w, ok := m.byID[id]; ok {
		return w, nil
	}

	return nil, apperr.New(apperr.KindWalletNotFound, "wallet not found: "+id)
}

func (m *memWallets) LockTwoForUpdate(ctx context.Context, idA, idB string) (map[string]*wallet.Wallet, error) {
	out := map[string]*wallet.Wallet{}

	for _, id := range []string{idA, idB} {
		if w, ok := m.byID[id]; ok {
			cp := *w
			out[id] = &cp
		}
	}

	return out, nil
}

func (m *memWallets) UpdateBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error {
	m.byID[id].Balance = newBalance
	m.byID[id].Version = expectedVersion + 1

	return nil
}

type memLogs struct {
	byKey map[string]*transactionlog.TransactionLog
}

func (m *memLogs) InsertPending(ctx context.Context, log *transactionlog.TransactionLog) error {
	if _, exists := m.byKey[log.IdempotencyKey]; exists {
		return apperr.New(apperr.KindDuplicateRequest, "duplicate")
	}

	log.Status = transactionlog.StatusPending
	m.byKey[log.IdempotencyKey] = log

	return nil
}

func (m *memLogs) FinalizeSuccess(ctx context.Context, key string, meta map[string]any) error {
	log := m.byKey[key]
	log.Status = transactionlog.StatusSuccess

	for k, v := range meta {
		if log.Metadata == nil {
			log.Metadata = map[string]any{}
		}

		log.Metadata[k] = v
	}

	return nil
}

func (m *memLogs) MarkFailed(ctx context.Context, key, msg string, meta map[string]any) error {
	if log, ok := m.byKey[key]; ok {
		log.Status = transactionlog.StatusFailed
		log.ErrorMessage = &msg
	}

	return nil
}

func (m *memLogs) FindByIdempotencyKey(ctx context.Context, key string) (*transactionlog.TransactionLog, error) {
	return m.byKey[key], nil
}

func (m *memLogs) RecentForWallet(ctx context.Context, walletID string, limit int) ([]*transactionlog.TransactionLog, error) {
	var out []*transactionlog.TransactionLog

	for _, log := range m.byKey {
		if log.FromWalletID == walletID || log.ToWalletID == walletID {
			out = append(out, log)
		}
	}

	return out, nil
}

type noopCache struct{}

func (noopCache) GetResult(ctx context.Context, key string) (*transfer.Result, bool, error) {
	return nil, false, nil
}

func (noopCache) SetResult(ctx context.Context, key string, result *transfer.Result, ttl time.Duration) error {
	return nil
}

func (noopCache) AcquireLease(ctx context.Context, key string, ttl time.Duration, cfg mretry.Config) (idempotency.Lease, bool, error) {
	return noopLease{}, true, nil
}

type noopLease struct{}

func (noopLease) Release(ctx context.Context) error { return nil }

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectCommit()

	wallets := &memWallets{byID: map[string]*wallet.Wallet{
		"11111111-1111-1111-1111-111111111111": {ID: "11111111-1111-1111-1111-111111111111", Balance: decimal.NewFromInt(100), Version: 1},
		"22222222-2222-2222-2222-222222222222": {ID: "22222222-2222-2222-2222-222222222222", Balance: decimal.NewFromInt(10), Version: 1},
	}}
	logs := &memLogs{byKey: map[string]*transactionlog.TransactionLog{}}

	executor := command.NewExecutor(db, wallets, logs, mlog.NewGoLogger(mlog.InfoLevel))
	coordinator := &idempotency.Coordinator{
		Cache:         noopCache{},
		LogRepo:       logs,
		Logger:        mlog.NewGoLogger(mlog.InfoLevel),
		CacheTTL:      time.Hour,
		LeaseTTL:      30 * time.Second,
		LeaseRetryCfg: mretry.DefaultLeaseRetryConfig(),
	}
	useCase := command.NewUseCase(coordinator, executor)
	queryUseCase := query.NewUseCase(wallets, logs)

	app := fiber.New()
	health := &HealthHandler{Database: fakePinger{}, Cache: fakePinger{}}
	RegisterRoutes(app, &TransferHandler{UseCase: useCase}, &QueryHandler{UseCase: queryUseCase}, health)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body []byte) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}

	return resp.StatusCode, parsed
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, "GET", "/health", nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_Degraded(t *testing.T) {
	app := fiber.New()
	health := &HealthHandler{Database: fakePinger{err: assert.AnError}, Cache: fakePinger{}}
	RegisterRoutes(app, &TransferHandler{}, &QueryHandler{}, health)

	status, body := doRequest(t, app, "GET", "/health", nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])

	services, ok := body["services"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unavailable", services["database"])
	assert.Equal(t, "ok", services["cache"])
}

func TestTransfer_Success(t *testing.T) {
	app := newTestApp(t)

	reqBody, err := json.Marshal(map[string]string{
		"fromWalletId":   "11111111-1111-1111-1111-111111111111",
		"toWalletId":     "22222222-2222-2222-2222-222222222222",
		"amount":         "30.0000",
		"idempotencyKey": "key-1",
	})
	require.NoError(t, err)

	status, body := doRequest(t, app, "POST", "/api/transfer", reqBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "70.0000", body["fromBalance"])
}

func TestTransfer_MissingFields(t *testing.T) {
	app := newTestApp(t)

	reqBody, err := json.Marshal(map[string]string{"fromWalletId": "11111111-1111-1111-1111-111111111111"})
	require.NoError(t, err)

	status, body := doRequest(t, app, "POST", "/api/transfer", reqBody)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, string(apperr.KindInvalidRequest), body["code"])
}

func TestTransfer_SameWallet(t *testing.T) {
	app := newTestApp(t)

	reqBody, err := json.Marshal(map[string]string{
		"fromWalletId":   "11111111-1111-1111-1111-111111111111",
		"toWalletId":     "11111111-1111-1111-1111-111111111111",
		"amount":         "10.0000",
		"idempotencyKey": "key-2",
	})
	require.NoError(t, err)

	status, body := doRequest(t, app, "POST", "/api/transfer", reqBody)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, string(apperr.KindSameWalletTransfer), body["code"])
}

func TestGetBalance_NotFound(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, "GET", "/api/wallet/missing/balance", nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, string(apperr.KindWalletNotFound), body["code"])
}

func TestGetBalance_Found(t *testing.T) {
	app := newTestApp(t)

	status, body := doRequest(t, app, "GET", "/api/wallet/11111111-1111-1111-1111-111111111111/balance", nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "100.0000", body["balance"])
}
