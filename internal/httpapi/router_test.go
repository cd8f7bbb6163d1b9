package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"superrider-be/internal/location"
	"superrider-be/internal/metrics"
	"superrider-be/internal/middleware"
	"superrider-be/internal/order"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router http.Handler
	store  order.Store
	hub    *location.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := order.NewFileRepository(filepath.Join(t.TempDir(), "orders.json"), "order-storage")
	store := order.NewStore(repo)
	require.NoError(t, store.Init(context.Background(), order.DemoSeed()))

	hub := location.NewHub(8)
	t.Cleanup(hub.Close)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	return &testEnv{
		router: NewRouter(Deps{
			Store:       store,
			Hub:         hub,
			Gatherer:    reg,
			Limiter:     middleware.NewRateLimiter(1000, 1000),
			CORSOrigins: []string{"http://localhost:3000"},
		}),
		store: store,
		hub:   hub,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do("GET", "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "OK")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Default lists everything newest first", func(t *testing.T) {
		rr := env.do("GET", "/orders", "")
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[listResponse](t, rr)
		assert.Equal(t, 12, resp.Count)
		assert.Equal(t, "ORD-008", resp.Orders[0].ID)
		assert.Equal(t, "ORD-004", resp.Orders[len(resp.Orders)-1].ID)
	})

	t.Run("Active oldest first", func(t *testing.T) {
		rr := env.do("GET", "/orders?view=active&sort=asc", "")
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[listResponse](t, rr)
		assert.Equal(t, 6, resp.Count)
		assert.Equal(t, "ORD-001", resp.Orders[0].ID)
	})

	t.Run("Search", func(t *testing.T) {
		rr := env.do("GET", "/orders?q=PIZZA", "")
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[listResponse](t, rr)
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "ORD-001", resp.Orders[0].ID)
		assert.Equal(t, "ORD-010", resp.Orders[1].ID)
	})

	t.Run("Unknown view", func(t *testing.T) {
		rr := env.do("GET", "/orders?view=archived", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown sort", func(t *testing.T) {
		rr := env.do("GET", "/orders?sort=sideways", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do("GET", "/orders/stats", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, order.Stats{Active: 6, Completed: 6, Total: 12}, decode[order.Stats](t, rr))
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Active", func(t *testing.T) {
		rr := env.do("GET", "/orders/ORD-002", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Jane Smith", decode[order.Order](t, rr).CustomerName)
	})

	t.Run("Completed", func(t *testing.T) {
		rr := env.do("GET", "/orders/ORD-003", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, order.StatusDelivered, decode[order.Order](t, rr).Status)
	})

	t.Run("Missing", func(t *testing.T) {
		rr := env.do("GET", "/orders/ORD-999", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "order not found", decode[map[string]string](t, rr)["error"])
	})
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Created", func(t *testing.T) {
		body := `{"pickupLocation":"Store A","dropLocation":"12 Oak St","customerName":"Ann",
			"customerPhone":"555-0100","items":[{"name":"Pizza","quantity":2,"price":9.5}]}`
		rr := env.do("POST", "/orders", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		o := decode[order.Order](t, rr)
		assert.Equal(t, "ORD-101", o.ID)
		assert.Equal(t, order.StatusPreparing, o.Status)
		assert.Equal(t, "2x Pizza", o.Items)
		assert.Equal(t, "12 Oak St", o.DeliveryAddress)
		assert.Equal(t, "/orders/ORD-101", rr.Header().Get("Location"))
		assert.Equal(t, 7, env.store.Stats().Active)
	})

	t.Run("Validation", func(t *testing.T) {
		body := `{"pickupLocation":"Store A","dropLocation":"12 Oak St","customerName":"",
			"customerPhone":"555-0100","items":[{"name":"Pizza","quantity":1,"price":1}]}`
		rr := env.do("POST", "/orders", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode[map[string]string](t, rr)["error"], "customerName")
	})

	t.Run("Malformed body", func(t *testing.T) {
		rr := env.do("POST", "/orders", `{"pickupLocation":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChangeStatus(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Forward", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-005/status", `{"status":"Waiting for Pickup"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, order.StatusWaitingForPickup, decode[order.Order](t, rr).Status)
	})

	t.Run("Delivered moves to completed", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-001/status", `{"status":"Delivered"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		o := decode[order.Order](t, rr)
		assert.NotNil(t, o.CompletedTime)
		assert.Equal(t, "ORD-001", env.store.CompletedOrders()[0].ID)
	})

	t.Run("Regression", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-002/status", `{"status":"Preparing"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Already delivered", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-003/status", `{"status":"Delivered"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Unknown status", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-002/status", `{"status":"Lost"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Missing order", func(t *testing.T) {
		rr := env.do("PATCH", "/orders/ORD-999/status", `{"status":"Delivered"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do("GET", "/orders/stats", "")

	rr := env.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "superrider_http_requests_total")
}

func TestRateLimited(t *testing.T) {
	repo := order.NewFileRepository(filepath.Join(t.TempDir(), "orders.json"), "order-storage")
	store := order.NewStore(repo)
	require.NoError(t, store.Init(context.Background(), nil))
	hub := location.NewHub(1)
	defer hub.Close()

	router := NewRouter(Deps{Store: store, Hub: hub, Limiter: middleware.NewRateLimiter(1, 1)})

	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/orders", nil))
		codes[i] = rr.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is not limited
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOrderLocationStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/orders/ORD-001/location"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers("ORD-001") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, env.hub.Publish(location.Event{OrderID: "ORD-001", Lat: 12.5, Lng: 77.5}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg location.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, location.EventDriverLocationUpdate, msg.Event)
	assert.Equal(t, location.Event{OrderID: "ORD-001", Lat: 12.5, Lng: 77.5}, msg.Data)
}

func TestLocationStreamOriginPolicy(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"

	t.Run("Listed origin", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("Unlisted origin", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
		if conn != nil {
			conn.Close()
		}
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Eventually(t, func() bool { return env.hub.Subscribers("") == 0 }, time.Second, time.Millisecond)
	})
}
