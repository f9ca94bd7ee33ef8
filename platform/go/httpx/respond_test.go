package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteDomainErrorTenantRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, zap.NewNop(), fmt.Errorf("list barbers: %w", tenant.ErrTenantRequired))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TENANT_REQUIRED", decodeErrorBody(t, rec).Error.Code)
}

func TestWriteDomainErrorNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, zap.NewNop(), fmt.Errorf("get barber: %w", persistence.ErrRecordNotFound))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeErrorBody(t, rec).Error.Code)
}

func TestWriteDomainErrorLimit(t *testing.T) {
	usage := plan.BuildPlanUsage(plan.PlanFree, 1, 0)
	limitErr := plan.NewLimitError(plan.FeatureBarbers, usage)

	rec := httptest.NewRecorder()
	WriteDomainError(rec, zap.NewNop(), fmt.Errorf("create barber: %w", limitErr))

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeErrorBody(t, rec)
	require.Equal(t, string(plan.CodeBarberLimitExceeded), body.Error.Code)
	require.NotNil(t, body.Error.Details)
}

func TestWriteDomainErrorInternalDoesNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, zap.NewNop(), errors.New("pq: connection refused at 10.0.0.3"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.3")
}
