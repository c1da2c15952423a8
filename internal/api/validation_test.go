package api

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestJobStatusBindingTag(t *testing.T) {
	assert.NotPanics(t, registerValidators)
	assert.NotPanics(t, registerValidators)

	type body struct {
		Status string `binding:"omitempty,jobstatus"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(body{Status: "offer"}))
	assert.NoError(t, binding.Validator.ValidateStruct(body{}))
	assert.Error(t, binding.Validator.ValidateStruct(body{Status: "ghosted"}))
}
