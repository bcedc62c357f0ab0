package testutils

import (
	"github.com/brianvoe/gofakeit/v7"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
)

// TestDataGenerator creates realistic fixture data.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed so failures
// are reproducible.
func NewTestDataGenerator(seed uint64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// Snowflake returns a Discord-style 18 digit id.
func (g *TestDataGenerator) Snowflake() string {
	return "1" + g.faker.DigitN(17)
}

// OsuID returns a plausible osu! user id.
func (g *TestDataGenerator) OsuID() int64 {
	return int64(g.faker.IntRange(1_000, 40_000_000))
}

// Username returns a name that fits the users.username column.
func (g *TestDataGenerator) Username() string {
	name := g.faker.Username()
	if len(name) > 15 {
		name = name[:15]
	}
	return name
}

// User returns an unsaved linked user.
func (g *TestDataGenerator) User(country string) *userdb.User {
	return &userdb.User{
		DiscordID: g.Snowflake(),
		OsuID:     g.OsuID(),
		Username:  g.Username(),
		Country:   country,
	}
}
