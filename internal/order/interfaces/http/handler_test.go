package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: bad input", domain.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: cart x", domain.ErrNotFound), http.StatusNotFound},
		{"cart unavailable", fmt.Errorf("%w: cart x", domain.ErrCartUnavailable), http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: completed -> pending", domain.ErrInvalidTransition), http.StatusConflict},
		{"empty cart", fmt.Errorf("%w: cart x", domain.ErrEmptyCart), http.StatusUnprocessableEntity},
		{"infrastructure", fmt.Errorf("%w: db down", domain.ErrInfrastructure), http.StatusInternalServerError},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			respondError(c, tt.err)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=42&offset=oops", nil)

	limit, err := intQuery(c, "limit", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, limit)

	// 未传 limit 时由接口层补默认分页大小，服务层只接受正数
	missing, err := intQuery(c, "absent", defaultListLimit)
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, missing)

	_, err = intQuery(c, "offset", 0)
	assert.Error(t, err)
}
