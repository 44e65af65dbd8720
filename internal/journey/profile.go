package journey

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"perfkit/internal/data"
)

var (
	shoppingFrequencies = []string{"frequent", "occasional", "rare"}
	productCategories   = []string{"electronics", "clothing", "books", "home", "sports", "beauty", "toys"}
)

type device struct {
	name   string
	weight int
	agents []string
}

var devices = []device{
	{name: "desktop", weight: 50, agents: []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	}},
	{name: "mobile", weight: 35, agents: []string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 11; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36",
	}},
	{name: "tablet", weight: 15, agents: []string{
		"Mozilla/5.0 (iPad; CPU OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
	}},
}

// UserProfile describes one simulated shopper. It does not change during a session.
type UserProfile struct {
	ID                  string
	Email               string
	Password            string
	FirstName           string
	LastName            string
	Age                 int
	Location            string
	ShoppingFrequency   string
	PreferredCategories []string
	PriceSensitivity    float64
	DeviceType          string
	UserAgent           string
}

// Name returns the shopper's full name.
func (p UserProfile) Name() string {
	return p.FirstName + " " + p.LastName
}

// ProfileGenerator creates shoppers, optionally drawing identities from a
// pool of pre-provisioned accounts.
type ProfileGenerator struct {
	accounts *data.Source
	password string
}

// NewProfileGenerator returns a generator. accounts may be nil; password is
// used for generated shoppers and for accounts without one.
func NewProfileGenerator(accounts *data.Source, password string) *ProfileGenerator {
	return &ProfileGenerator{accounts: accounts, password: password}
}

// New builds a profile from r and faker.
func (g *ProfileGenerator) New(r Rand, faker *gofakeit.Faker) UserProfile {
	p := UserProfile{
		ID:                uuid.NewString(),
		Email:             faker.Email(),
		Password:          g.password,
		FirstName:         faker.FirstName(),
		LastName:          faker.LastName(),
		Age:               18 + r.Intn(48),
		Location:          faker.City(),
		ShoppingFrequency: shoppingFrequencies[r.Intn(len(shoppingFrequencies))],
		PriceSensitivity:  uniform(r, 0.2, 0.9),
	}
	p.PreferredCategories = sampleCategories(r, 1+r.Intn(3))

	d := pickDevice(r)
	p.DeviceType = d.name
	p.UserAgent = d.agents[r.Intn(len(d.agents))]

	if g.accounts != nil {
		if acct, ok := g.accounts.Next(); ok {
			p.Email = acct.Email
			if acct.Password != "" {
				p.Password = acct.Password
			}
			if acct.FirstName != "" {
				p.FirstName = acct.FirstName
			}
			if acct.LastName != "" {
				p.LastName = acct.LastName
			}
		}
	}
	return p
}

// sampleCategories picks n distinct categories.
func sampleCategories(r Rand, n int) []string {
	pool := make([]string, len(productCategories))
	copy(pool, productCategories)
	out := make([]string, 0, n)
	for i := 0; i < n && len(pool) > 0; i++ {
		j := r.Intn(len(pool))
		out = append(out, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return out
}

func pickDevice(r Rand) device {
	n := r.Intn(100)
	for _, d := range devices {
		if n < d.weight {
			return d
		}
		n -= d.weight
	}
	return devices[0]
}
