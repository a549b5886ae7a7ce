package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDError(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "valid", value: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", want: ""},
		{name: "valid with spaces", value: " 3f2504e0-4f89-11d3-9a0c-0305e82c3301 ", want: ""},
		{name: "empty", value: "", want: "productId is required"},
		{name: "blank", value: "   ", want: "productId is required"},
		{name: "not a uuid", value: "abc", want: "productId must be a valid id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IDError("productId", tt.value))
		})
	}
}

func TestQuantityError(t *testing.T) {
	assert.Empty(t, QuantityError(1))
	assert.Empty(t, QuantityError(5000))
	assert.Equal(t, "quantity must be at least 1", QuantityError(0))
	assert.Equal(t, "quantity must be at least 1", QuantityError(-3))
}

func TestIsValidPaymentMethod(t *testing.T) {
	assert.True(t, IsValidPaymentMethod("pix"))
	assert.True(t, IsValidPaymentMethod("cartao_credito"))
	assert.False(t, IsValidPaymentMethod(""))
	assert.False(t, IsValidPaymentMethod("   "))
	assert.False(t, IsValidPaymentMethod(string(make([]byte, 65))))
}
