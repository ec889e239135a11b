package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)

	now := time.Now()
	nt := nullTime(now)
	assert.True(t, nt.Valid)
	assert.True(t, nt.Time.Equal(now))
}

func TestNonNilTags(t *testing.T) {
	assert.NotNil(t, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}
