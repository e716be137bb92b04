package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := Registry()
	assert.True(t, reg.Supports("LinkedIn"))
	assert.True(t, reg.Supports("indeed"))
	assert.False(t, reg.Supports("glassdoor"))
}
