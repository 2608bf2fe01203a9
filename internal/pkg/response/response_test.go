package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"filmrental/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validationf("bad date"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.InvalidTransitionf("returned -> approved"), http.StatusConflict, "INVALID_TRANSITION"},
		{domain.NewConflict("held", 4, 2), http.StatusConflict, "CONFLICT"},
		{domain.NewUnavailable("FX3 fully booked"), http.StatusConflict, "UNAVAILABLE"},
		{domain.NotFoundf("asset 9"), http.StatusNotFound, "NOT_FOUND"},
		{domain.Forbiddenf("not yours"), http.StatusForbidden, "FORBIDDEN"},
		{errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		FromError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.code)
		var body struct {
			Success bool `json:"success"`
			Error   struct {
				Code    string `json:"code"`
				Details struct {
					AssetIDs []int64 `json:"asset_ids"`
				} `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.code, body.Error.Code)
		if tc.code == "CONFLICT" {
			assert.Equal(t, []int64{2, 4}, body.Error.Details.AssetIDs)
		}
	}
}
