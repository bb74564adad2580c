package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{attendance.ErrMalformedPayload, http.StatusBadRequest},
		{person.ErrPersonNotFound, http.StatusNotFound},
		{person.ErrRoleNotPermitted, http.StatusForbidden},
		{attendance.ErrDuplicateEntry, http.StatusConflict},
		{attendance.ErrWindowNotActive, http.StatusForbidden},
		{fmt.Errorf("%w: find record: %w", attendance.ErrDependencyUnavailable, errors.New("connection refused")), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: insert: %w", attendance.ErrDependencyUnavailable, person.ErrPersonNotFound), http.StatusServiceUnavailable},
		{attendance.ErrSessionNotOpen, http.StatusConflict},
		{attendance.ErrWindowAlreadyOpen, http.StatusConflict},
		{person.ErrIdentityExists, http.StatusConflict},
		{person.ErrEmailExists, http.StatusConflict},
		{attendance.ErrClassroomMismatch, http.StatusForbidden},
		{attendance.ErrRecordNotFound, http.StatusNotFound},
		{attendance.ErrInvalidStatusTransition, http.StatusConflict},
		{classroom.ErrClassroomNotFound, http.StatusNotFound},
		{classroom.ErrDeviceNotRegistered, http.StatusForbidden},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrAccountDisabled, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, c.err)
			assert.Equal(t, c.code, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
		})
	}
}

func TestHandleError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, fmt.Errorf("scan: %w", validator.ValidationErrors{{Field: "payload", Message: "payload is required"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "payload is required", body.Error.Details["payload"])
}
