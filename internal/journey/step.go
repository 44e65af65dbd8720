package journey

import (
	"errors"
	"fmt"
)

// ErrUnknownStep is returned for a StepKind outside the defined set.
var ErrUnknownStep = errors.New("unknown journey step")

// StepKind is one action a simulated shopper can take.
type StepKind int

const (
	Homepage StepKind = iota
	Login
	BrowseProducts
	SearchProduct
	ViewProduct
	AddToCart
	ViewCart
	Checkout
	ViewOrders
	ContinueShopping
	Exit
)

var stepNames = [...]string{
	Homepage:         "homepage",
	Login:            "login",
	BrowseProducts:   "browse_products",
	SearchProduct:    "search_product",
	ViewProduct:      "view_product",
	AddToCart:        "add_to_cart",
	ViewCart:         "view_cart",
	Checkout:         "checkout",
	ViewOrders:       "view_orders",
	ContinueShopping: "continue_shopping",
	Exit:             "exit",
}

func (k StepKind) String() string {
	if k < 0 || int(k) >= len(stepNames) {
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
	return stepNames[k]
}

// ParseStepKind returns the StepKind named s, e.g. "add_to_cart".
func ParseStepKind(s string) (StepKind, error) {
	for i, name := range stepNames {
		if name == s {
			return StepKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStep, s)
}
