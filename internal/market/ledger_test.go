package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stocked(stock int) *Product {
	return &Product{
		ID:             "p-1",
		Name:           "rescue box",
		AvailableStock: stock,
		Status:         ProductActive,
	}
}

func TestAdjustRoundTripRestoresCounters(t *testing.T) {
	p := stocked(10)

	ApplyAdjust(p, 3, DirDecrease)
	assert.Equal(t, 7, p.AvailableStock)
	assert.Equal(t, 1, p.OrderCount)
	assert.Equal(t, 3, p.TotalSold)
	assert.Equal(t, ProductActive, p.Status)

	// cancel path: undo the order
	ApplyAdjust(p, 3, DirIncrease)
	assert.Equal(t, 10, p.AvailableStock)
	assert.Equal(t, 0, p.OrderCount)
	assert.Equal(t, 0, p.TotalSold)
}

func TestDecreaseClampsAtZeroAndDerivesStatus(t *testing.T) {
	p := stocked(2)

	ApplyAdjust(p, 5, DirDecrease)
	assert.Equal(t, 0, p.AvailableStock)
	assert.Equal(t, ProductOutOfStock, p.Status)

	// stok tidak pernah negatif
	ApplyAdjust(p, 1, DirDecrease)
	assert.Equal(t, 0, p.AvailableStock)
	assert.Equal(t, ProductOutOfStock, p.Status)
}

func TestIncreaseFromZeroRestoresActive(t *testing.T) {
	p := stocked(0)
	p.Status = ProductOutOfStock

	ApplyAdjust(p, 4, DirIncrease)
	assert.Equal(t, 4, p.AvailableStock)
	assert.Equal(t, ProductActive, p.Status)
}

func TestIncreaseFloorsCounters(t *testing.T) {
	p := stocked(5)
	// increase tanpa order sebelumnya: counter tidak boleh negatif
	ApplyAdjust(p, 2, DirIncrease)
	assert.Equal(t, 7, p.AvailableStock)
	assert.Equal(t, 0, p.OrderCount)
	assert.Equal(t, 0, p.TotalSold)
}

func TestIncreaseKeepsInactiveStatus(t *testing.T) {
	p := stocked(3)
	p.Status = ProductInactive

	ApplyAdjust(p, 2, DirIncrease)
	assert.Equal(t, ProductInactive, p.Status)
}
