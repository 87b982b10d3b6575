package apierrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_StrategyAndHTTPStatus(t *testing.T) {
	assert.Equal(t, StrategyRetry, CodeRateLimit.Strategy())
	assert.Equal(t, http.StatusTooManyRequests, CodeRateLimit.HTTPStatus())
	assert.True(t, CodeRateLimit.Retryable())

	assert.Equal(t, StrategyFallback, CodeValidation.Strategy())
	assert.False(t, CodeValidation.Retryable())
}

func TestCode_UnknownCodeFallsBackToUnknownStrategy(t *testing.T) {
	c := Code("SOMETHING_MADE_UP")
	assert.Equal(t, CodeUnknown.Strategy(), c.Strategy())
	assert.Equal(t, http.StatusInternalServerError, c.HTTPStatus())
	assert.False(t, c.Retryable())
}

func TestError_MessageIncludesWrappedCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Database("insert_rule", cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "DATABASE")
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestAs_ExtractsPlatformErrorButNotFlattenedString(t *testing.T) {
	inner := NotFound("rule", "r1")
	wrapped := errors.New("context: " + inner.Error())
	_, ok := As(wrapped)
	assert.False(t, ok)

	e, ok := As(inner)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, e.Code)
	assert.Equal(t, "r1", e.Details["id"])
}

func TestIs_MatchesCode(t *testing.T) {
	err := Conflict("duplicate agent type")
	assert.True(t, Is(err, CodeConflict))
	assert.False(t, Is(err, CodeValidation))
	assert.False(t, Is(errors.New("plain"), CodeConflict))
}

func TestHTTPStatusOf_NonPlatformErrorDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusOf(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, HTTPStatusOf(Conflict("x")))
}

func TestWithDetailsAndWithField_Chain(t *testing.T) {
	err := Validation("bad field").WithField("priority").WithDetails("got", -1)
	assert.Equal(t, "priority", err.Field)
	assert.Equal(t, -1, err.Details["got"])
}

func TestRateLimitExceeded_CarriesLimitAndWindow(t *testing.T) {
	err := RateLimitExceeded(60, "1m")
	assert.Equal(t, 60, err.Details["limit"])
	assert.Equal(t, "1m", err.Details["window"])
	assert.True(t, err.Code.Retryable())
}
