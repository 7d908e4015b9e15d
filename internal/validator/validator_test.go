package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type groupRequest struct {
	Name  string `json:"name" binding:"required,notblank"`
	Count int    `json:"count" binding:"required,min=1"`
}

func bind(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req groupRequest
	return Bind(c, &req)
}

func TestBind(t *testing.T) {
	Setup()

	require.Nil(t, bind(t, `{"name":"Class A","count":3}`))

	fields := bind(t, `{"name":"   ","count":3}`)
	assert.Equal(t, "name must not be blank", fields["name"])

	fields = bind(t, `{"name":"Class A","count":0}`)
	assert.Contains(t, fields, "count")

	fields = bind(t, `{"name":`)
	assert.Contains(t, fields, "detail")
}
