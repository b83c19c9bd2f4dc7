package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Action string `json:"action" validate:"required,max=16"`
	Reason string `json:"reason,omitempty" validate:"max=10"`
}

func TestValidate_OK(t *testing.T) {
	assert.Nil(t, Validate(sample{Action: "verify"}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	errs := Validate(sample{Reason: "far too long a reason"})

	assert.Equal(t, "required", errs["action"])
	assert.Equal(t, "max", errs["reason"])
}
