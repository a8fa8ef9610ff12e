package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+92 300-1234567": "923001234567",
		"(0300) 123 4567": "03001234567",
		"98765":           "98765",
		"abc":             "",
		"٠١٢":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, (&Customer{Phone: "123"}).Validate(), ErrNameRequired)
	assert.ErrorIs(t, (&Customer{Name: "Asha"}).Validate(), ErrPhoneRequired)
	assert.ErrorIs(t, (&Customer{Name: "Asha", Phone: "n/a"}).Validate(), ErrPhoneInvalid)
	assert.NoError(t, (&Customer{Name: "Asha", Phone: "98765 43210"}).Validate())
}

func TestClone(t *testing.T) {
	c := &Customer{Name: "Asha", Phone: "123", Metadata: map[string]string{"k": "v"}}
	d := c.Clone()
	d.Metadata["k"] = "changed"
	assert.Equal(t, "v", c.Metadata["k"])
	assert.Nil(t, (*Customer)(nil).Clone())
}
