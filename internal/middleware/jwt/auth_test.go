package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RagLink/internal/config"
	"RagLink/pkg/util/myjwt"
	"RagLink/pkg/xerr"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.GetConfig().JwtConfig.Key = "test-signing-key"

	r := gin.New()
	r.GET("/protected", Auth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uuid":     c.GetString("uuid"),
			"username": c.GetString("username"),
		})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r := newAuthRouter(t)

	token, err := myjwt.GenerateToken("u_123", "alice")
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u_123", body["uuid"])
	assert.Equal(t, "alice", body["username"])
}

func TestAuthRejectsBadRequests(t *testing.T) {
	r := newAuthRouter(t)

	cases := []struct {
		name   string
		header string
	}{
		{"无Authorization头", ""},
		{"非Bearer格式", "Basic abc"},
		{"token不合法", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, tc.header)

			var body struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, xerr.Unauthorized, body.Code)
		})
	}
}

func TestAuthRejectsTokenSignedWithOtherKey(t *testing.T) {
	r := newAuthRouter(t)

	config.GetConfig().JwtConfig.Key = "another-key"
	token, err := myjwt.GenerateToken("u_456", "bob")
	require.NoError(t, err)

	config.GetConfig().JwtConfig.Key = "test-signing-key"
	w := doRequest(r, "Bearer "+token)

	var body struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, xerr.Unauthorized, body.Code)
}
