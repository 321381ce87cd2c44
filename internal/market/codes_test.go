package market

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickupCodeIsFourDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 1000; i++ {
		code := NewPickupCode()
		require.Regexp(t, re, code)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	num := NewOrderNumber(now)

	assert.True(t, strings.HasPrefix(num, "PS-20260829103000-"), num)
	assert.Equal(t, num, strings.ToUpper(num))
	assert.Regexp(t, `^PS-\d{14}-[A-Z2-9]{4}$`, num)
}
