package sandbox

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var decoded map[string]interface{}
	if len(w.Body.Bytes()) > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func quoteRequestBody() map[string]interface{} {
	waypoint := func(address string) map[string]interface{} {
		return map[string]interface{}{
			"location": map[string]interface{}{
				"address":     address,
				"city":        "Brooklyn",
				"state":       "NY",
				"postal_code": "11231",
				"country":     "US",
			},
		}
	}
	return map[string]interface{}{
		"pickup":  waypoint("64 Seabring St"),
		"dropoff": waypoint("80 Willoughby St"),
	}
}

func createTestDelivery(t *testing.T, s *Server) string {
	t.Helper()

	body := quoteRequestBody()
	body["quote_id"] = "qt_test"
	body["order_reference_id"] = "order-1"

	w, decoded := doJSON(t, s, http.MethodPost, "/deliveries", body)
	require.Equal(t, http.StatusCreated, w.Code)

	id, _ := decoded["delivery_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestIssueToken(t *testing.T) {
	s := NewServer(nil)

	w, decoded := doJSON(t, s, http.MethodPost, "/token", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decoded["access_token"])
	assert.Equal(t, "bearer", decoded["token_type"])
}

func TestCreateQuote(t *testing.T) {
	s := NewServer(nil)

	w, decoded := doJSON(t, s, http.MethodPost, "/deliveries/quote", quoteRequestBody())

	require.Equal(t, http.StatusCreated, w.Code)
	quotes, ok := decoded["quotes"].([]interface{})
	require.True(t, ok)
	require.Len(t, quotes, 2)

	first := quotes[0].(map[string]interface{})
	assert.NotEmpty(t, first["quote_id"])
	assert.Equal(t, 12.5, first["fee"])
	assert.Equal(t, "USD", first["currency_code"])
}

func TestCreateQuote_RequiresLocations(t *testing.T) {
	s := NewServer(nil)

	body := quoteRequestBody()
	body["pickup"] = map[string]interface{}{"location": map[string]interface{}{"city": "Brooklyn"}}

	w, _ := doJSON(t, s, http.MethodPost, "/deliveries/quote", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateDelivery_UsesQuotedFee(t *testing.T) {
	s := NewServer(nil)

	_, quoted := doJSON(t, s, http.MethodPost, "/deliveries/quote", quoteRequestBody())
	quotes := quoted["quotes"].([]interface{})
	second := quotes[1].(map[string]interface{})

	body := quoteRequestBody()
	body["quote_id"] = second["quote_id"]

	w, decoded := doJSON(t, s, http.MethodPost, "/deliveries", body)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, second["fee"], decoded["fee"])
	assert.Equal(t, "en_route_to_pickup", decoded["status"])
	assert.NotEmpty(t, decoded["delivery_id"])

	courier := decoded["courier"].(map[string]interface{})
	assert.Equal(t, "Rob", courier["name"])
}

func TestGetDelivery_AdvancesCourier(t *testing.T) {
	s := NewServer(nil)
	id := createTestDelivery(t, s)

	_, first := doJSON(t, s, http.MethodGet, "/deliveries/"+id, nil)
	_, second := doJSON(t, s, http.MethodGet, "/deliveries/"+id, nil)

	loc1 := first["courier"].(map[string]interface{})["location"].(map[string]interface{})
	loc2 := second["courier"].(map[string]interface{})["location"].(map[string]interface{})
	assert.NotEqual(t, loc1["latitude"], loc2["latitude"], "polls should observe courier movement")
}

func TestGetDelivery_NotFound(t *testing.T) {
	s := NewServer(nil)

	w, _ := doJSON(t, s, http.MethodGet, "/deliveries/del_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverrideStatus(t *testing.T) {
	s := NewServer(nil)
	id := createTestDelivery(t, s)

	w, _ := doJSON(t, s, http.MethodPut, "/sandbox/deliveries/"+id, map[string]string{
		"status": "at_dropoff",
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, decoded := doJSON(t, s, http.MethodGet, "/deliveries/"+id, nil)
	assert.Equal(t, "at_dropoff", decoded["status"])
}

func TestCancelDelivery(t *testing.T) {
	s := NewServer(nil)
	id := createTestDelivery(t, s)

	w, decoded := doJSON(t, s, http.MethodPost, "/deliveries/"+id+"/cancel", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client_canceled", decoded["status"])
}

func TestRatings_RecordAndList(t *testing.T) {
	s := NewServer(nil)
	id := createTestDelivery(t, s)

	w, _ := doJSON(t, s, http.MethodPost, "/deliveries/"+id+"/ratings", map[string]interface{}{
		"waypoint":     "dropoff",
		"rating_type":  "binary",
		"rating_value": 1,
		"tags":         []string{"courier_on_time"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	_, decoded := doJSON(t, s, http.MethodGet, "/deliveries/"+id+"/ratings", nil)
	ratings := decoded["ratings"].([]interface{})
	require.Len(t, ratings, 1)
	assert.Equal(t, "dropoff", ratings[0].(map[string]interface{})["waypoint"])
}

func TestRatingTags_Vocabulary(t *testing.T) {
	s := NewServer(nil)
	id := createTestDelivery(t, s)

	w, decoded := doJSON(t, s, http.MethodGet, "/deliveries/"+id+"/rating_tags", nil)

	require.Equal(t, http.StatusOK, w.Code)
	dropoff := decoded["dropoff"].(map[string]interface{})
	assert.Contains(t, dropoff["positive"], "smooth_handoff")
}

func TestListDeliveries(t *testing.T) {
	s := NewServer(nil)
	createTestDelivery(t, s)
	createTestDelivery(t, s)

	w, _ := doJSON(t, s, http.MethodGet, "/deliveries", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)
}
