package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/engine"
)

// fakeL2 is an in-memory cache.Service that counts lookups.
type fakeL2 struct {
	slots   map[string]engine.RuleSet
	getErr  error
	lookups int
}

func newFakeL2() *fakeL2 {
	return &fakeL2{slots: make(map[string]engine.RuleSet)}
}

func (f *fakeL2) PublishRuleSet(_ context.Context, shopID string, rules engine.RuleSet) (int, error) {
	f.slots[shopID] = rules
	return len(rules), nil
}

func (f *fakeL2) GetRuleSet(_ context.Context, shopID string) (engine.RuleSet, bool, error) {
	f.lookups++
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	rs, ok := f.slots[shopID]
	return rs, ok, nil
}

func (f *fakeL2) HealthCheck(context.Context) error { return nil }
func (f *fakeL2) Close() error                      { return nil }

func newTestAPI(t *testing.T, l2 cache.Service) *API {
	t.Helper()

	l1, err := cache.NewMemoryCache(100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(l1.Close)

	return NewAPI(l1, l2)
}

func postJSON(t *testing.T, api *API, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

const twoLineCart = `{
	"cart": {
		"lines": [
			{"id": "gid://shop/CartLine/1", "quantity": 3, "merchandise": {"__typename": "ProductVariant", "product": {"id": "gid://shop/Product/1"}}},
			{"id": "gid://shop/CartLine/2", "quantity": 1, "merchandise": {"__typename": "ProductVariant", "product": {"id": "gid://shop/Product/2"}}}
		],
		"deliveryGroups": [{"id": "gid://shop/DeliveryGroup/0"}]
	},
	"discountClasses": ["PRODUCT", "SHIPPING"]
}`

func TestHandleEvaluateCart(t *testing.T) {
	t.Run("Should discount qualifying lines with the published rule set", func(t *testing.T) {
		l2 := newFakeL2()
		l2.slots["shop-1"] = engine.RuleSet{
			{Products: []string{"gid://shop/Product/1"}, MinQty: 2, PercentOff: 15},
		}
		api := newTestAPI(t, l2)

		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)

		var batch engine.OperationBatch
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
		require.Len(t, batch.Operations, 1)

		op := batch.Operations[0].ProductDiscountsAdd
		require.NotNil(t, op)
		require.Len(t, op.Candidates, 1)
		assert.Equal(t, "15% OFF", op.Candidates[0].Message)
		require.Len(t, op.Candidates[0].Targets, 1)
		assert.Equal(t, "gid://shop/CartLine/1", op.Candidates[0].Targets[0].CartLine.ID)
	})

	t.Run("Should return the empty batch for a never-synced shop", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		rec := postJSON(t, api, "/api/v1/shops/fresh-shop/evaluate/cart", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"operations":[]}`, rec.Body.String())
	})

	t.Run("Should fail open with the empty batch on a cache outage", func(t *testing.T) {
		l2 := newFakeL2()
		l2.getErr = errors.New("redis: connection refused")
		api := newTestAPI(t, l2)

		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"operations":[]}`, rec.Body.String())
	})

	t.Run("Should serve repeated evaluations from the in-memory layer", func(t *testing.T) {
		l2 := newFakeL2()
		l2.slots["shop-1"] = engine.RuleSet{
			{Products: []string{"gid://shop/Product/1"}, MinQty: 1, PercentOff: 10},
		}
		api := newTestAPI(t, l2)

		for i := 0; i < 3; i++ {
			rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", twoLineCart)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Equal(t, 1, l2.lookups)
	})

	t.Run("Should not cache the absence of a rule set", func(t *testing.T) {
		l2 := newFakeL2()
		api := newTestAPI(t, l2)

		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)

		// The first sync lands between the two requests.
		l2.slots["shop-1"] = engine.RuleSet{
			{Products: []string{"gid://shop/Product/1"}, MinQty: 1, PercentOff: 10},
		}

		rec = postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)

		var batch engine.OperationBatch
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
		assert.Len(t, batch.Operations, 1)
	})

	t.Run("Should reject a malformed payload", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/cart", `{"cart": nope`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should reject an invalid shop id", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		rec := postJSON(t, api, "/api/v1/shops/bad%20shop/evaluate/cart", twoLineCart)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleEvaluateDelivery(t *testing.T) {
	t.Run("Should grant free delivery on the first delivery group", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/delivery", twoLineCart)
		require.Equal(t, http.StatusOK, rec.Code)

		var batch engine.OperationBatch
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
		require.Len(t, batch.Operations, 1)

		op := batch.Operations[0].DeliveryDiscountsAdd
		require.NotNil(t, op)
		require.Len(t, op.Candidates, 1)
		assert.Equal(t, engine.FreeDeliveryMessage, op.Candidates[0].Message)
		assert.Equal(t, float64(100), op.Candidates[0].Value.Percentage.Value)
		assert.Equal(t, "gid://shop/DeliveryGroup/0", op.Candidates[0].Targets[0].DeliveryGroup.ID)
	})

	t.Run("Should return the empty batch without the shipping class", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		body := strings.Replace(twoLineCart, `["PRODUCT", "SHIPPING"]`, `["PRODUCT"]`, 1)
		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/delivery", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"operations":[]}`, rec.Body.String())
	})

	t.Run("Should reject a cart with no delivery groups", func(t *testing.T) {
		api := newTestAPI(t, newFakeL2())

		body := strings.Replace(twoLineCart, `[{"id": "gid://shop/DeliveryGroup/0"}]`, `[]`, 1)
		rec := postJSON(t, api, "/api/v1/shops/shop-1/evaluate/delivery", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "ERR_PRECONDITION_VIOLATION", errResp.Code)
	})
}

func TestNewAPI(t *testing.T) {
	t.Run("Should panic without an L1 cache", func(t *testing.T) {
		assert.Panics(t, func() { NewAPI(nil, newFakeL2()) })
	})

	t.Run("Should panic without an L2 cache service", func(t *testing.T) {
		l1, err := cache.NewMemoryCache(10, time.Minute)
		require.NoError(t, err)
		defer l1.Close()

		assert.Panics(t, func() { NewAPI(l1, nil) })
	})
}
