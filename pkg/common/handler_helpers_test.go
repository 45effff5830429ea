package common_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/transithub/bus-ticketing/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectHandled bool
		expectCode    int
	}{
		{
			name:          "nil error is not handled",
			err:           nil,
			expectHandled: false,
		},
		{
			name:          "app error keeps its status code",
			err:           common.NewBadRequestError("bad input", nil),
			expectHandled: true,
			expectCode:    http.StatusBadRequest,
		},
		{
			name:          "unknown error becomes 500",
			err:           errors.New("boom"),
			expectHandled: true,
			expectCode:    http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handled := common.HandleServiceError(c, tt.err, "fallback message")

			assert.Equal(t, tt.expectHandled, handled)
			if tt.expectHandled {
				assert.Equal(t, tt.expectCode, w.Code)
			}
		})
	}
}
