package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxJSONBody = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// BindNestedOrFlat decodes a JSON body that is either wrapped under key
// ({"booking": {...}}) or sent flat ({...}), then runs the binding tags.
// A wrapped value of the wrong shape is an error; there is no fallback.
func BindNestedOrFlat(c *gin.Context, key string, obj any) error {
	if c.Request.Body == nil {
		return errEmptyBody
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return errEmptyBody
	}

	payload := raw
	var envelope map[string]json.RawMessage
	if json.Unmarshal(raw, &envelope) == nil {
		if inner, ok := envelope[key]; ok {
			payload = inner
		}
	}
	if err := json.Unmarshal(payload, obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}
