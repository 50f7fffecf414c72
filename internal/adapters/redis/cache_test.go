package redis

import (
	"errors"
	"testing"

	"github.com/go-redsync/redsync/v4"
	"github.com/stretchr/testify/assert"
)

func TestIsLockContention(t *testing.T) {
	assert.True(t, isLockContention(redsync.ErrFailed))
	assert.True(t, isLockContention(errors.Join(errors.New("wrap"), redsync.ErrFailed)))
	assert.False(t, isLockContention(errors.New("connection refused")))
}
