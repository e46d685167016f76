package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("learner")
	assert.True(t, ok)
	assert.Equal(t, RoleLearner, r)

	r, ok = ParseRole("proctor")
	assert.True(t, ok)
	assert.Equal(t, RoleProctor, r)

	for _, in := range []string{"", "student", "Learner", "admin"} {
		_, ok := ParseRole(in)
		assert.False(t, ok, in)
	}
}
