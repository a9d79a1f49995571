// Package equity computes all-in pot equity: exact enumeration when at most
// two board cards are still to come, parallel Monte Carlo otherwise.
package equity

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/poker"
)

// DefaultSamples is the Monte Carlo sample count used before the flop.
const DefaultSamples = 20000

// exactLimit is the most board cards still to come that are enumerated.
const exactLimit = 2

// Shares returns each hand's expected share of a pot contested by all of
// them, given the known board. Ties split evenly. The shares sum to 1.
func Shares(ctx context.Context, holes [][]poker.Card, board []poker.Card, samples int, rng *rand.Rand) ([]float64, error) {
	if len(holes) == 0 {
		return nil, nil
	}
	if len(board) > 5 {
		return nil, fmt.Errorf("board has %d cards", len(board))
	}

	used := poker.NewHand(board...)
	count := len(board)
	handSets := make([]poker.Hand, len(holes))
	for i, h := range holes {
		if len(h) != 2 {
			return nil, fmt.Errorf("hand %d has %d cards", i, len(h))
		}
		handSets[i] = poker.NewHand(h...)
		used |= handSets[i]
		count += 2
	}
	if used.CountCards() != count {
		return nil, fmt.Errorf("duplicate cards among hands and board")
	}

	if len(holes) == 1 {
		return []float64{1}, nil
	}

	known := poker.NewHand(board...)
	unseen := (poker.AllCards &^ used).Cards()
	toCome := 5 - len(board)
	if toCome <= exactLimit {
		return enumerate(handSets, known, unseen, toCome), nil
	}
	return sample(ctx, handSets, known, unseen, toCome, samples, rng)
}

// settle credits one completed board to the winning hands.
func settle(totals []float64, hands []poker.Hand, board poker.Hand) {
	var best poker.HandValue
	winners := 0
	values := make([]poker.HandValue, len(hands))
	for i, h := range hands {
		values[i] = poker.Evaluate(h | board)
		switch {
		case values[i] > best:
			best, winners = values[i], 1
		case values[i] == best:
			winners++
		}
	}
	share := 1 / float64(winners)
	for i, v := range values {
		if v == best {
			totals[i] += share
		}
	}
}

func enumerate(hands []poker.Hand, known poker.Hand, unseen []poker.Card, toCome int) []float64 {
	totals := make([]float64, len(hands))
	boards := 0
	switch toCome {
	case 0:
		settle(totals, hands, known)
		boards = 1
	case 1:
		for _, c := range unseen {
			settle(totals, hands, known|poker.NewHand(c))
			boards++
		}
	default:
		for i := 0; i < len(unseen); i++ {
			for j := i + 1; j < len(unseen); j++ {
				settle(totals, hands, known|poker.NewHand(unseen[i], unseen[j]))
				boards++
			}
		}
	}
	for i := range totals {
		totals[i] /= float64(boards)
	}
	return totals
}

func sample(ctx context.Context, hands []poker.Hand, known poker.Hand, unseen []poker.Card, toCome, samples int, rng *rand.Rand) ([]float64, error) {
	if samples <= 0 {
		samples = DefaultSamples
	}
	workers := min(runtime.NumCPU(), 8, samples)
	perWorker, remainder := samples/workers, samples%workers

	partials := make([][]float64, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		n := perWorker
		if w < remainder {
			n++
		}
		// Independent RNG per worker to avoid contention.
		seed1, seed2 := rng.Uint64(), rng.Uint64()

		g.Go(func() error {
			local := rand.New(rand.NewPCG(seed1, seed2))
			deck := make([]poker.Card, len(unseen))
			copy(deck, unseen)
			totals := make([]float64, len(hands))
			for s := range n {
				if s%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				// Partial Fisher-Yates for the cards still to come.
				board := known
				for k := range toCome {
					j := k + local.IntN(len(deck)-k)
					deck[k], deck[j] = deck[j], deck[k]
					board.AddCard(deck[k])
				}
				settle(totals, hands, board)
			}
			partials[w] = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make([]float64, len(hands))
	for _, p := range partials {
		for i, v := range p {
			totals[i] += v
		}
	}
	for i := range totals {
		totals[i] /= float64(samples)
	}
	return totals, nil
}

// Pot is a pot tier for ExpectedWinnings.
type Pot struct {
	Amount int
	Seats  []int
}

// ExpectedWinnings returns each seat's expected chips from the given pots
// when the hands are run out from board.
func ExpectedWinnings(ctx context.Context, pots []Pot, holes map[int][]poker.Card, board []poker.Card, samples int, rng *rand.Rand) (map[int]float64, error) {
	out := make(map[int]float64)
	for _, pot := range pots {
		var seats []int
		var hands [][]poker.Card
		for _, seat := range pot.Seats {
			if h, ok := holes[seat]; ok {
				seats = append(seats, seat)
				hands = append(hands, h)
			}
		}
		if len(seats) == 0 {
			continue
		}
		shares, err := Shares(ctx, hands, board, samples, rng)
		if err != nil {
			return nil, err
		}
		for i, seat := range seats {
			out[seat] += shares[i] * float64(pot.Amount)
		}
	}
	return out, nil
}
