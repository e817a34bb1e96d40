package testutils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed the generator was created with.
func (g *TestDataGenerator) Seed() int64 {
	return g.seed
}

// GeneratePlayers creates count registry players with distinct names.
func (g *TestDataGenerator) GeneratePlayers(count int) []classificadb.Player {
	players := make([]classificadb.Player, 0, count)
	seen := make(map[string]bool, count)
	for len(players) < count {
		first := strings.ToUpper(g.faker.FirstName())
		last := strings.ToUpper(g.faker.LastName())
		if seen[first+" "+last] {
			continue
		}
		seen[first+" "+last] = true
		players = append(players, classificadb.Player{
			ID:        uuid.New(),
			FirstName: first,
			LastName:  last,
		})
	}
	return players
}

// Player builds a registry player with a fixed name.
func Player(firstName, lastName string) classificadb.Player {
	return classificadb.Player{ID: uuid.New(), FirstName: firstName, LastName: lastName}
}

// GenerateGames returns count plausible ten-pin game scores.
func (g *TestDataGenerator) GenerateGames(count int) []int {
	games := make([]int, count)
	for i := range games {
		games[i] = g.faker.Number(120, 279)
	}
	return games
}

// ClassificaRow renders a tab-separated results line for a player.
func ClassificaRow(rank int, p classificadb.Player, games []int) string {
	cells := []string{fmt.Sprint(rank), p.LastName + " " + p.FirstName}
	total := 0
	for _, score := range games {
		cells = append(cells, fmt.Sprint(score))
		total += score
	}
	cells = append(cells, fmt.Sprint(total))
	return strings.Join(cells, "\t")
}

// InsertPlayers stores players in the registry.
func InsertPlayers(ctx context.Context, db bun.IDB, players ...classificadb.Player) error {
	if len(players) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&players).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert players: %w", err)
	}
	return nil
}

// InsertTournament stores an empty tournament and returns it.
func InsertTournament(ctx context.Context, db bun.IDB, name string) (*classificadb.Tournament, error) {
	tournament := &classificadb.Tournament{ID: uuid.New(), Name: name}
	if _, err := db.NewInsert().Model(tournament).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert tournament: %w", err)
	}
	return tournament, nil
}

// GetPlayer reloads a player with its aggregates.
func GetPlayer(ctx context.Context, db bun.IDB, id uuid.UUID) (*classificadb.Player, error) {
	player := new(classificadb.Player)
	if err := db.NewSelect().Model(player).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}
