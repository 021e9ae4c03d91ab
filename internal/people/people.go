// Package people generates pseudo-random agents and clients.
package people

import (
	"math/rand/v2"
	"time"

	"github.com/Vovarama1992/supchat/internal/supchat"
)

var (
	cities   = []string{"Novosibirsk", "Moskva", "Kazan", "Ufa", "Sochi", "Peterburg", "Omsk", "Tomsk"}
	names    = []string{"Alexey", "Vladimir", "Dmitriy", "Makar", "Lev", "Vadim", "Danil", "Arkadiy", "Dennis"}
	patrons  = []string{"Alekseevich", "Vladimirovich", "Dmitrievich", "Vadimovich", "Sergeevich", "Konstantinovich", "Mihailovich", "Aleksandrovich"}
	surnames = []string{"Kazakov", "Tyan", "Nichkov", "Samoilov", "Bezrukov", "Lenin", "Ritchie", "Kochin", "Tokarev"}
)

const (
	minBirthYear = 1960
	maxBirthYear = 2010

	// tenure in months: agents' experience, clients' time since registration
	minTenure = 1
	maxTenure = 120
)

// Builder implements supchat.Generator. It is not safe for concurrent use.
type Builder struct {
	rng *rand.Rand
}

func NewBuilder(rng *rand.Rand) *Builder {
	return &Builder{rng: rng}
}

func (b *Builder) BuildAgent() *supchat.Person {
	tenure := b.tenure()
	post := supchat.Posts[b.rng.IntN(len(supchat.Posts))]
	return supchat.NewAgent(b.fullName(), b.city(), b.dateOfBirth(), tenure, post)
}

func (b *Builder) BuildClient() *supchat.Person {
	return supchat.NewClient(b.fullName(), b.city(), b.dateOfBirth(), b.tenure())
}

func (b *Builder) fullName() string {
	return pick(b.rng, surnames) + " " + pick(b.rng, names) + " " + pick(b.rng, patrons)
}

func (b *Builder) city() string {
	return pick(b.rng, cities)
}

// dateOfBirth picks a valid calendar day, leap years included.
func (b *Builder) dateOfBirth() time.Time {
	year := minBirthYear + b.rng.IntN(maxBirthYear-minBirthYear+1)
	month := time.Month(1 + b.rng.IntN(12))
	day := 1 + b.rng.IntN(daysIn(year, month))
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (b *Builder) tenure() int {
	return minTenure + b.rng.IntN(maxTenure-minTenure+1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}
