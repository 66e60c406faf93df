package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	"facturard/internal/infrastructure/http/v1/middleware"
)

type taxIDBody struct {
	TaxID string `json:"taxId" binding:"required,taxid"`
	Name  string `json:"name" binding:"required"`
}

func bind(t *testing.T, payload string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	var body taxIDBody
	return c.ShouldBindJSON(&body)
}

func TestBindingError_TaxID(t *testing.T) {
	err := bind(t, `{"taxId":"131888446","name":"Colmado"}`)
	require.Error(t, err)

	appErr := middleware.BindingError(err, "invalid request body")
	assert.Equal(t, apperror.CodeInvalidTaxID, appErr.Code)
	assert.Equal(t, "taxId", appErr.Details["field"])
}

func TestBindingError_ValidTaxIDPasses(t *testing.T) {
	assert.NoError(t, bind(t, `{"taxId":"131-88844-5","name":"Colmado"}`))
	assert.NoError(t, bind(t, `{"taxId":"001-1645428-1","name":"Juan"}`))
}

func TestBindingError_RequiredFields(t *testing.T) {
	err := bind(t, `{"taxId":"131888445"}`)
	require.Error(t, err)

	appErr := middleware.BindingError(err, "invalid request body")
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["name"])
}

func TestBindingError_MalformedJSON(t *testing.T) {
	err := bind(t, `{"taxId":`)
	require.Error(t, err)

	appErr := middleware.BindingError(err, "invalid request body")
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "error")
}
