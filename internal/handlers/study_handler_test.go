package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateStudiesWithoutFactory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Shipped configs can leave the factory contract unset; the route
	// must answer instead of dereferencing a nil reader
	h := NewStudyHandler(nil, nil)
	r := gin.New()
	r.GET("/api/factory/studies", h.PaginateStudies)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/factory/studies?start=1&limit=5", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "factory contract")
}
