package enums

import (
	"fmt"
	"slices"
)

// PaymentMethod is how the customer settles an order: cash on delivery or bank transfer.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodBank PaymentMethod = "bank"
)

var paymentMethods = []PaymentMethod{PaymentMethodCOD, PaymentMethodBank}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if p := PaymentMethod(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
