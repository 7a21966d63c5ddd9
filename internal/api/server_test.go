package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendfleet/server/adapters/llm"
	"github.com/vendfleet/server/adapters/memory"
	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
	"github.com/vendfleet/server/internal/auth"
	"github.com/vendfleet/server/usecase"
)

func newTestServer(t *testing.T, model repositories.LanguageModel) *echo.Echo {
	t.Helper()

	logger := zap.NewNop()
	machineRepo := memory.NewMachineRepository()
	userRepo := memory.NewUserRepository()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	server := NewServer(
		usecase.NewMachineService(machineRepo, userRepo, nil, logger),
		usecase.NewSaleService(machineRepo, userRepo, nil, logger),
		usecase.NewUserService(userRepo, tokens, logger),
		usecase.NewAnalyticsService(machineRepo, model, logger),
		nil,
		logger,
	)

	e := echo.New()
	server.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func createMachine(t *testing.T, e *echo.Echo, id string, keys []string) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/machine/createMachine", CreateMachineRequest{
		ID:       id,
		Location: "Lobby",
		Keys:     keys,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func configureSlot(t *testing.T, e *echo.Echo, id, key, name string, original, retail float64, amount int) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/machine/setMachineContent", SetContentRequest{
		ID:            id,
		Key:           key,
		Name:          &name,
		OriginalPrice: &original,
		RetailPrice:   &retail,
		Amount:        &amount,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(t, e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateMachine(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(t, e, http.MethodPost, "/api/machine/createMachine", CreateMachineRequest{
		ID:       "M1",
		Location: "Lobby",
		Keys:     []string{"A1", "A2"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var machine entities.Machine
	decode(t, rec, &machine)
	assert.Equal(t, "M1", machine.ID)
	assert.Equal(t, entities.DefaultMachineName, machine.Name)
	require.Len(t, machine.Content, 2)
	for _, slot := range machine.Content {
		assert.Equal(t, entities.UnconfiguredProduct, slot.Name)
		assert.Equal(t, entities.NoExpiry, slot.ExpiryDate)
		assert.Equal(t, 0, slot.Amount)
	}

	t.Run("SecondRegisterOnlyMovesIt", func(t *testing.T) {
		configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 5)

		rec := do(t, e, http.MethodPost, "/api/machine/createMachine", CreateMachineRequest{
			ID:       "M1",
			Location: "Cafeteria",
			Keys:     []string{"B1"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp MessageResponse
		decode(t, rec, &resp)
		assert.Equal(t, "The machine already exists! We've updated the location!", resp.Message)

		rec = do(t, e, http.MethodGet, "/api/machine/getMachineContent/M1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var after entities.Machine
		decode(t, rec, &after)
		assert.Equal(t, "Cafeteria", after.Location)
		require.Len(t, after.Content, 2)
		assert.Equal(t, "Soda", after.Content[0].Name)
		assert.Equal(t, 5, after.Content[0].Amount)
	})

	t.Run("MissingFields", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/machine/createMachine", CreateMachineRequest{ID: "M2"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetMachineContentUnknown(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(t, e, http.MethodGet, "/api/machine/getMachineContent/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaleLifecycle(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1", "A2"})
	configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 5)

	for i := 0; i < 5; i++ {
		rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
			ID: "M1", Key: "A1",
		})
		require.Equal(t, http.StatusOK, rec.Code, "sale %d", i+1)
	}

	rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
		ID: "M1", Key: "A1",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	decode(t, rec, &errResp)
	assert.Contains(t, errResp.Error, "no items to remove")

	rec = do(t, e, http.MethodGet, "/api/machine/getMachineContent/M1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var machine entities.Machine
	decode(t, rec, &machine)
	assert.Equal(t, 0, machine.Content[0].Amount)
	assert.Equal(t, 7.5, machine.TotalRevenue)
	assert.Equal(t, 7.5, machine.ActiveRevenue)
	assert.Equal(t, 5, machine.TotalSales["Soda"])
	assert.Len(t, machine.SalesHistory, 5)
}

func TestSaleReceipt(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})
	configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 2)

	rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
		ID: "M1", Key: "A1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var receipt entities.SaleReceipt
	decode(t, rec, &receipt)
	assert.Equal(t, "M1", receipt.MachineID)
	assert.Equal(t, 1, receipt.Slot.Amount)
	assert.Equal(t, "Soda", receipt.Sale.Name)
	assert.Equal(t, 1.5, receipt.Sale.RetailPrice)
	assert.NotEmpty(t, receipt.Sale.ID)
	assert.Equal(t, 1.5, receipt.TotalRevenue)
	assert.Equal(t, 1.5, receipt.ActiveRevenue)
}

func TestSaleUnknownSlot(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})

	rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
		ID: "M1", Key: "Z9",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItemsToContent(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})
	configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 2)

	rec := do(t, e, http.MethodPost, "/api/machine/addItemsToContent", AddItemsRequest{
		ID: "M1", Key: "A1", Amount: 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var machine entities.Machine
	decode(t, rec, &machine)
	assert.Equal(t, 5, machine.Content[0].Amount)

	t.Run("NonPositiveAmount", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/machine/addItemsToContent", AddItemsRequest{
			ID: "M1", Key: "A1", Amount: 0,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSetMachineContent(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})
	configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 5)

	t.Run("ZeroPriceIsKept", func(t *testing.T) {
		price := 0.0
		rec := do(t, e, http.MethodPost, "/api/machine/setMachineContent", SetContentRequest{
			ID: "M1", Key: "A1", RetailPrice: &price,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var machine entities.Machine
		decode(t, rec, &machine)
		assert.Equal(t, 0.0, machine.Content[0].RetailPrice)
		assert.Equal(t, "Soda", machine.Content[0].Name)
		assert.Equal(t, 5, machine.Content[0].Amount)
	})

	t.Run("BreakEvenDefault", func(t *testing.T) {
		retail, original := 2.5, 0.0
		rec := do(t, e, http.MethodPost, "/api/machine/setMachineContent", SetContentRequest{
			ID: "M1", Key: "A1", RetailPrice: &retail, OriginalPrice: &original,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var machine entities.Machine
		decode(t, rec, &machine)
		assert.Equal(t, 2.5, machine.Content[0].RetailPrice)
		assert.Equal(t, 2.5, machine.Content[0].OriginalPrice)
	})

	t.Run("UnknownSlot", func(t *testing.T) {
		name := "Chips"
		rec := do(t, e, http.MethodPost, "/api/machine/setMachineContent", SetContentRequest{
			ID: "M1", Key: "Z9", Name: &name,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("NegativeAmount", func(t *testing.T) {
		amount := -1
		rec := do(t, e, http.MethodPost, "/api/machine/setMachineContent", SetContentRequest{
			ID: "M1", Key: "A1", Amount: &amount,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateMachineStockMoney(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})

	rec := do(t, e, http.MethodPost, "/api/machine/updateMachineStockMoney", MarkCashFullRequest{ID: "M1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/machine/getMachineContent/M1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var machine entities.Machine
	decode(t, rec, &machine)
	assert.True(t, machine.IsCashFull)
}

func TestUserFlow(t *testing.T) {
	e := newTestServer(t, nil)
	createMachine(t, e, "M1", []string{"A1"})

	rec := do(t, e, http.MethodPost, "/api/user/signup", CredentialsRequest{
		Email: "owner@example.com", Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var creds usecase.Credentials
	decode(t, rec, &creds)
	assert.Equal(t, "owner@example.com", creds.Username)
	assert.NotEmpty(t, creds.Token)

	t.Run("DuplicateSignup", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/user/signup", CredentialsRequest{
			Email: "owner@example.com", Password: "other",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("SigninWrongPassword", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/user/signin", CredentialsRequest{
			Email: "owner@example.com", Password: "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("SigninUnknownEmail", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/user/signin", CredentialsRequest{
			Email: "nobody@example.com", Password: "hunter22",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Signin", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/user/signin", CredentialsRequest{
			Email: "owner@example.com", Password: "hunter22",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var creds usecase.Credentials
		decode(t, rec, &creds)
		assert.NotEmpty(t, creds.Token)
	})

	t.Run("AttachMachine", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/machine/addMachineToUser", AttachMachineRequest{
			Email: "owner@example.com", ID: "M1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp MessageResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Machine added to user!", resp.Message)

		rec = do(t, e, http.MethodPost, "/api/machine/addMachineToUser", AttachMachineRequest{
			Email: "owner@example.com", ID: "M1",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("UserMachines", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/machine/getUserMachines/owner@example.com", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var machines []entities.Machine
		decode(t, rec, &machines)
		require.Len(t, machines, 1)
		assert.Equal(t, "M1", machines[0].ID)
	})

	t.Run("UserMachinesUnknownUser", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/machine/getUserMachines/nobody@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("SelloutNotifiesOwner", func(t *testing.T) {
		configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 1)

		rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
			ID: "M1", Key: "A1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, e, http.MethodGet, "/api/user/getNotifications/owner@example.com", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Notifications []entities.Notification `json:"notifications"`
		}
		decode(t, rec, &resp)
		require.Len(t, resp.Notifications, 1)
		assert.Contains(t, resp.Notifications[0].Message, "Soda")
		assert.Equal(t, "unread", resp.Notifications[0].Status)
	})
}

func TestGetNotificationsUnknownUser(t *testing.T) {
	e := newTestServer(t, nil)

	rec := do(t, e, http.MethodGet, "/api/user/getNotifications/nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMachineRecommendations(t *testing.T) {
	reply := `{"recommendations": [{"title": "Restock A1", "description": "Slot A1 is empty.", "potentialImpact": "high"}]}`

	t.Run("OK", func(t *testing.T) {
		e := newTestServer(t, llm.NewMockModel(reply))
		createMachine(t, e, "M1", []string{"A1"})

		rec := do(t, e, http.MethodGet, "/api/machine/getMachineRecommendations/M1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var recs usecase.MachineRecommendations
		decode(t, rec, &recs)
		assert.Equal(t, "M1", recs.MachineID)
		require.Len(t, recs.Recommendations, 1)
		assert.Equal(t, "Restock A1", recs.Recommendations[0].Title)
	})

	t.Run("NoModelConfigured", func(t *testing.T) {
		e := newTestServer(t, nil)
		createMachine(t, e, "M1", []string{"A1"})

		rec := do(t, e, http.MethodGet, "/api/machine/getMachineRecommendations/M1", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("MalformedReply", func(t *testing.T) {
		e := newTestServer(t, llm.NewMockModel("sorry, I cannot help with that"))
		createMachine(t, e, "M1", []string{"A1"})

		rec := do(t, e, http.MethodGet, "/api/machine/getMachineRecommendations/M1", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var errResp ErrorResponse
		decode(t, rec, &errResp)
		assert.Equal(t, "sorry, I cannot help with that", errResp.Raw)
	})

	t.Run("UnknownMachine", func(t *testing.T) {
		e := newTestServer(t, llm.NewMockModel(reply))

		rec := do(t, e, http.MethodGet, "/api/machine/getMachineRecommendations/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetPerformanceMetrics(t *testing.T) {
	e := newTestServer(t, llm.NewMockModel("Sales are trending up."))
	createMachine(t, e, "M1", []string{"A1"})
	configureSlot(t, e, "M1", "A1", "Soda", 1.0, 1.5, 3)

	for i := 0; i < 2; i++ {
		rec := do(t, e, http.MethodPost, "/api/machine/removeItemsFromContent", RemoveItemsRequest{
			ID: "M1", Key: "A1",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, e, http.MethodGet, "/api/machine/getPerformanceMetrics/M1/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics usecase.PerformanceMetrics
	decode(t, rec, &metrics)
	assert.Equal(t, "week", metrics.TimeRange)
	assert.Equal(t, 3.0, metrics.TotalRevenue)
	assert.Equal(t, 2, metrics.TotalSales)
	assert.Equal(t, "Soda", metrics.TopSeller.Name)
	assert.Equal(t, 2, metrics.TopSeller.Units)
	assert.Equal(t, "Sales are trending up.", metrics.AIInsights)

	t.Run("BadTimeRange", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/machine/getPerformanceMetrics/M1/decade", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
