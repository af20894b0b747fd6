package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeSide(t *testing.T) {
	buy := Trade{Amount: 1.5}
	sell := Trade{Amount: -0.25}
	zero := Trade{Amount: 0}

	assert.Equal(t, SideBuy, buy.Side())
	assert.Equal(t, SideSell, sell.Side())
	assert.Equal(t, SideBuy, zero.Side())
}
