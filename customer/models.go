// Package customer defines the customer record that owns bills and payments.
package customer

import (
	"errors"
	"strings"
	"unicode"

	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

var (
	ErrNameRequired  = errors.New("customer: name is required")
	ErrPhoneRequired = errors.New("customer: phone is required")
	ErrPhoneInvalid  = errors.New("customer: phone must contain digits")
)

type Customer struct {
	types.Entity
	ID       id.CustomerID     `json:"id"`
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ListOpts struct {
	Limit  int
	Offset int
}

// NormalizePhone strips everything but digits so that "+92 300-123" and
// "92300123" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks the fields every stored customer must carry.
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrPhoneRequired
	}
	if NormalizePhone(c.Phone) == "" {
		return ErrPhoneInvalid
	}
	return nil
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
