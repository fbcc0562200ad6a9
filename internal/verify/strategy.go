package verify

import (
	"context"

	"github.com/0xknstntn/news-checker/internal/model"
)

// Strategy is the reasoning engine behind a run. Next is called once per
// step with the current state; Result is called once after the loop ends,
// whether by Finish or by the step bound.
type Strategy interface {
	Name() string
	Next(ctx context.Context, st *State) (Action, error)
	Result(ctx context.Context, st *State) (*model.VerificationResult, error)
}
