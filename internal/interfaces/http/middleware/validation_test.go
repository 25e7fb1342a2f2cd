package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testQuery struct {
	OrganizationID string `form:"organization_id" binding:"required,uuid"`
	Harvests       int    `form:"harvests" binding:"omitempty,min=1,max=20"`
	Currency       string `form:"currency" binding:"omitempty,oneof=ARS USD"`
}

func bindTestQuery(t *testing.T, rawQuery string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	var q testQuery
	return c.ShouldBindQuery(&q)
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "missing organization",
			query: "",
			want:  []string{"organization_id: is required"},
		},
		{
			name:  "malformed uuid",
			query: "organization_id=abc",
			want:  []string{"organization_id: must be a valid UUID"},
		},
		{
			name:  "several failures",
			query: "organization_id=6f1c2a9e-3b7d-4e58-9a0c-1d2e3f405162&harvests=40&currency=EUR",
			want:  []string{"harvests: must be at most 20", "currency: must be one of: ARS USD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bindTestQuery(t, tt.query)
			require.Error(t, err)
			assert.Equal(t, tt.want, ValidationDetails(err))
		})
	}
}

func TestValidationDetails_Valid(t *testing.T) {
	SetupValidator()
	assert.NoError(t, bindTestQuery(t, "organization_id=6f1c2a9e-3b7d-4e58-9a0c-1d2e3f405162&harvests=5"))
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Equal(t, []string{"strconv.ParseInt: bad"}, ValidationDetails(errors.New("strconv.ParseInt: bad")))
}
