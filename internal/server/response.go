/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"screenwriter/internal/editor"
	"screenwriter/internal/storage"
)

// Stable error codes of the JSON envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnsupported  = "UNSUPPORTED_FORMAT"
	CodeMalformed    = "MALFORMED_SCRIPT"
	CodeDeclined     = "DECLINED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL"
)

var (
	errValidation   = errors.New("invalid request")
	errUnauthorized = errors.New("unauthorized")
)

// APIError is the error part of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// classify maps err to an HTTP status and envelope code.
func classify(err error) (int, APIError) {
	switch {
	case errors.Is(err, errValidation):
		return http.StatusBadRequest, APIError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, storage.ErrMalformedScript):
		return http.StatusBadRequest, APIError{Code: CodeMalformed, Message: err.Error()}
	case errors.Is(err, storage.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, APIError{Code: CodeUnsupported, Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, APIError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, APIError{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, editor.ErrDeclined):
		return http.StatusConflict, APIError{Code: CodeDeclined, Message: err.Error()}
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: err.Error()}
	}
	return http.StatusInternalServerError, APIError{Code: CodeInternal, Message: "internal error"}
}

func fail(c *gin.Context, err error) {
	status, apiErr := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &apiErr})
}
