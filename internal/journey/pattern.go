package journey

import (
	"errors"
	"fmt"

	"perfkit/internal/config"
)

// ErrInvalidWeights is returned when pattern weights do not sum to 100.
var ErrInvalidWeights = errors.New("journey weights must be positive and sum to 100")

// Pattern is a named step sequence picked with probability Weight/100.
type Pattern struct {
	Name   string
	Weight int
	Steps  []StepKind
}

// DefaultPatterns returns the built-in journey table.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "browser", Weight: 40, Steps: []StepKind{
			Homepage, BrowseProducts, ViewProduct, Exit,
		}},
		{Name: "quick_shopper", Weight: 25, Steps: []StepKind{
			Homepage, SearchProduct, ViewProduct, AddToCart, Checkout,
		}},
		{Name: "comparison_shopper", Weight: 20, Steps: []StepKind{
			Homepage, BrowseProducts, ViewProduct, BrowseProducts,
			ViewProduct, AddToCart, ViewCart, ContinueShopping,
			ViewProduct, AddToCart, Checkout,
		}},
		{Name: "returning_user", Weight: 10, Steps: []StepKind{
			Login, ViewOrders, BrowseProducts, ViewProduct, AddToCart, Checkout,
		}},
		{Name: "cart_abandoner", Weight: 5, Steps: []StepKind{
			Homepage, BrowseProducts, ViewProduct, AddToCart, ViewCart, Exit,
		}},
	}
}

// PatternsFromConfig converts configured journeys. An empty list yields the defaults.
func PatternsFromConfig(cfgs []config.JourneyConfig) ([]Pattern, error) {
	if len(cfgs) == 0 {
		return DefaultPatterns(), nil
	}
	patterns := make([]Pattern, 0, len(cfgs))
	for _, c := range cfgs {
		steps := make([]StepKind, 0, len(c.Steps))
		for _, s := range c.Steps {
			kind, err := ParseStepKind(s)
			if err != nil {
				return nil, fmt.Errorf("journey %q: %w", c.Name, err)
			}
			steps = append(steps, kind)
		}
		patterns = append(patterns, Pattern{Name: c.Name, Weight: c.Weight, Steps: steps})
	}
	return patterns, nil
}

// Picker chooses journeys according to their weights.
type Picker struct {
	patterns []Pattern
}

// NewPicker validates patterns. Weights are not normalized: they must be
// positive and add up to exactly 100.
func NewPicker(patterns []Pattern) (*Picker, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: no patterns", ErrInvalidWeights)
	}
	total := 0
	for _, p := range patterns {
		if p.Weight <= 0 {
			return nil, fmt.Errorf("%w: %q has weight %d", ErrInvalidWeights, p.Name, p.Weight)
		}
		if len(p.Steps) == 0 {
			return nil, fmt.Errorf("journey %q has no steps", p.Name)
		}
		total += p.Weight
	}
	if total != 100 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWeights, total)
	}
	return &Picker{patterns: patterns}, nil
}

// Pick draws one pattern.
func (p *Picker) Pick(r Rand) Pattern {
	n := r.Intn(100)
	for _, pat := range p.patterns {
		if n < pat.Weight {
			return pat
		}
		n -= pat.Weight
	}
	return p.patterns[len(p.patterns)-1]
}

// Patterns returns the table in pick order.
func (p *Picker) Patterns() []Pattern {
	return p.patterns
}
