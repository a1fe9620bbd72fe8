package currency

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vaultbooks/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.Error())
	RegisterRoutes(r, NewHandler(newTestService(t)))
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_List(t *testing.T) {
	w := get(newTestRouter(t), "/v1/currencies")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Default    string     `json:"default"`
		Currencies []Currency `json:"currencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "USD", body.Default)
	require.Len(t, body.Currencies, 5)
}

func TestHandler_Convert(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/v1/currencies/convert?amount=100&from=USD&to=NPR")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res Conversion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Result.Equal(dec("13295")))

	w = get(r, "/v1/currencies/convert?from=USD&to=NPR")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/v1/currencies/convert?amount=abc&from=USD&to=NPR")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/v1/currencies/convert?amount=1&from=USD&to=JPY")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_FormatAndWords(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/v1/currencies/USD/format?amount=1234.5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"formatted":"$1,234.50"}`, w.Body.String())

	w = get(r, "/v1/currencies/usd/words?amount=1234.56")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"words":"One Thousand Two Hundred Thirty Four and 56/100 US Dollars Only"}`, w.Body.String())

	w = get(r, "/v1/currencies/USD/words?amount=-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
