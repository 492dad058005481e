package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail bool
	}{
		{fmt.Errorf("%w: start after end", ErrValidation), http.StatusBadRequest, true},
		{fmt.Errorf("%w: report", ErrNotFound), http.StatusNotFound, true},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, false},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)

		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		if tc.detail {
			assert.Equal(t, tc.err.Error(), problem.Detail)
		} else {
			assert.Empty(t, problem.Detail)
		}
	}
}
