package journey

import (
	"math/rand"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfkit/internal/data"
)

func TestProfileGenerator_New(t *testing.T) {
	g := NewProfileGenerator(nil, "pw")
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		p := g.New(r, gofakeit.New(int64(i)))

		assert.NotEmpty(t, p.ID)
		assert.Contains(t, p.Email, "@")
		assert.Equal(t, "pw", p.Password)
		assert.GreaterOrEqual(t, p.Age, 18)
		assert.LessOrEqual(t, p.Age, 65)
		assert.Contains(t, shoppingFrequencies, p.ShoppingFrequency)
		assert.GreaterOrEqual(t, p.PriceSensitivity, 0.2)
		assert.Less(t, p.PriceSensitivity, 0.9)
		require.NotEmpty(t, p.PreferredCategories)
		assert.LessOrEqual(t, len(p.PreferredCategories), 3)
		assert.NotEmpty(t, p.UserAgent)

		seen := map[string]bool{}
		for _, c := range p.PreferredCategories {
			assert.False(t, seen[c], "duplicate category %s", c)
			seen[c] = true
		}
	}
}

func TestProfileGenerator_DeviceMix(t *testing.T) {
	g := NewProfileGenerator(nil, "")
	r := rand.New(rand.NewSource(7))
	faker := gofakeit.New(7)

	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[g.New(r, faker).DeviceType]++
	}
	assert.InDelta(t, 50, float64(counts["desktop"])/n*100, 2)
	assert.InDelta(t, 35, float64(counts["mobile"])/n*100, 2)
	assert.InDelta(t, 15, float64(counts["tablet"])/n*100, 2)
}

func TestProfileGenerator_UsesAccounts(t *testing.T) {
	accounts := data.NewSource([]data.Account{
		{Email: "alice@shop.test", Password: "secret", FirstName: "Alice"},
		{Email: "bob@shop.test"},
	}, data.ModeSequential)
	g := NewProfileGenerator(accounts, "default-pw")
	r := rand.New(rand.NewSource(1))

	p1 := g.New(r, gofakeit.New(1))
	assert.Equal(t, "alice@shop.test", p1.Email)
	assert.Equal(t, "secret", p1.Password)
	assert.Equal(t, "Alice", p1.FirstName)

	p2 := g.New(r, gofakeit.New(2))
	assert.Equal(t, "bob@shop.test", p2.Email)
	assert.Equal(t, "default-pw", p2.Password)
	assert.NotEmpty(t, p2.FirstName)
}

func TestUserAgentMatchesDevice(t *testing.T) {
	g := NewProfileGenerator(nil, "")
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		p := g.New(r, gofakeit.New(int64(i)))
		switch p.DeviceType {
		case "tablet":
			assert.Contains(t, p.UserAgent, "iPad")
		case "mobile":
			assert.Contains(t, p.UserAgent, "Mobile")
		}
	}
}
