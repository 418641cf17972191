package utils

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidate(t *testing.T) {
	type TestStruct struct {
		Field1 string `json:"field1" validate:"required"`
		Field2 int    `json:"field2"`
	}

	tests := []struct {
		name        string
		requestBody string
		expectedErr *errors.ErrorWithStatusCode
	}{
		{name: "Valid JSON and Validation", requestBody: `{"field1": "value", "field2": 123}`},
		{name: "Valid JSON without optional field", requestBody: `{"field1": "value"}`},
		{
			name:        "Invalid JSON",
			requestBody: `{"field1": "value", "field2": 123`,
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
		{
			name:        "Missing Required Field",
			requestBody: `{"field2": 123}`,
			expectedErr: &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: 400},
		},
		{
			name:        "Empty Body",
			requestBody: "",
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte(tt.requestBody)))

			err := DecodeValidate(req.Body, &TestStruct{})

			if tt.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			var e *errors.ErrorWithStatusCode
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.expectedErr, e)
		})
	}
}

func TestWriteErrorAndStatusCode(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{name: "status error", err: errors.ErrBoardNotFound, expectedCode: http.StatusNotFound, expectedBody: "Board not found\n"},
		{name: "wrapped status error", err: fmt.Errorf("vote: %w", errors.ErrNotParticipant), expectedCode: http.StatusForbidden, expectedBody: "Only board participants can vote\n"},
		{name: "persistence error hides details", err: &errors.PersistenceError{Op: "GetBoard", Err: sql.ErrConnDone}, expectedCode: http.StatusInternalServerError, expectedBody: "Internal error\n"},
		{name: "plain error", err: fmt.Errorf("boom"), expectedCode: http.StatusInternalServerError, expectedBody: "Internal error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteErrorAndStatusCode(rr, tt.err)
			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}


func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar("alice@x.io", "required,email"))
	assert.Error(t, ValidateVar("alice", "required,email"))
	assert.Error(t, ValidateVar("", "required,email"))
}
