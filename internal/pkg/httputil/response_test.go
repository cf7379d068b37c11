package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/pkg/apperr"
)

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.New(apperr.KindNotFound, "enrollment not found"), http.StatusNotFound, "not_found"},
		{apperr.Validationf("bad outcome %q", "maybe"), http.StatusBadRequest, "validation"},
		{fmt.Errorf("resolve: %w", apperr.New(apperr.KindConcurrentModification, "stale version")), http.StatusConflict, "concurrent_modification"},
		{apperr.New(apperr.KindDuplicateEnrollment, "already enrolled"), http.StatusConflict, "duplicate_enrollment"},
		{apperr.New(apperr.KindSequenceNotActive, "sequence is draft"), http.StatusConflict, "sequence_not_active"},
		{apperr.New(apperr.KindInvalidTransition, "enrollment is completed"), http.StatusConflict, "invalid_transition"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		Fail(w, tc.err)
		assert.Equal(t, tc.status, w.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
		assert.Equal(t, apperr.Message(tc.err), body.Error)
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(w, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestDecode(t *testing.T) {
	var dst struct {
		Outcome string `json:"outcome"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outcome":"answered"}`))
	assert.True(t, Decode(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "answered", dst.Outcome)

	w := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	assert.False(t, Decode(w, r, &dst))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Code)

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.True(t, Decode(httptest.NewRecorder(), r, &dst))
}
