package clock_test

import (
	"testing"

	"github.com/dargueta/vsfs/clock"
	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	c := clock.Fixed(42)
	assert.EqualValues(t, 42, c.Now())
	assert.EqualValues(t, 42, c.Now())
}

func TestSequence(t *testing.T) {
	c := clock.NewSequence(100)
	assert.EqualValues(t, 100, c.Now())
	assert.EqualValues(t, 101, c.Now())
	assert.EqualValues(t, 102, c.Now())
}

func TestSystem(t *testing.T) {
	var c clock.System
	before := c.Now()
	after := c.Now()
	assert.GreaterOrEqual(t, after, before)
}
