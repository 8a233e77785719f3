package models_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lambda-feedback/scripthost/models"
)

func TestNewRequest_NormalizesHeaderKeys(t *testing.T) {
	header := http.Header{}
	header.Set("X-Test", "1")
	header.Set("Content-Type", "application/json")

	req := models.NewRequest("POST", "/js/add.js", header, "{}")

	assert.Equal(t, map[string]string{
		"x-test":       "1",
		"content-type": "application/json",
	}, req.Headers)
}

func TestNewRequest_DuplicateHeadersOverwrite(t *testing.T) {
	header := http.Header{"X-Dup": {"first", "second"}}

	req := models.NewRequest("GET", "/", header, "")

	assert.Equal(t, "second", req.Headers["x-dup"])
}

func TestRequest_Header(t *testing.T) {
	req := models.NewRequest("GET", "/", http.Header{"X-Test": {"value"}}, "")

	v, ok := req.Header("X-TEST")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = req.Header("missing")
	assert.False(t, ok)
}

func TestRequest_HeaderKeys(t *testing.T) {
	req := models.NewRequest("GET", "/", http.Header{
		"B": {"2"},
		"A": {"1"},
		"C": {"3"},
	}, "")

	assert.Equal(t, []string{"a", "b", "c"}, req.HeaderKeys())
}

func TestResponseConstructors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, models.NotFound("Script not found").Status)
	assert.Equal(t, "boom", models.InternalError("boom").Body)
	assert.True(t, models.NewResponse(200, "").OK())
	assert.False(t, models.InternalError("").OK())
}
