package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, KickMember, PolicyFor("kick").OnBackPressure(nil))
	assert.Equal(t, DropFrame, PolicyFor("drop").OnBackPressure(nil))
	assert.Equal(t, KickMember, PolicyFor("").OnBackPressure(nil))
}
