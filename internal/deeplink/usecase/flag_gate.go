package usecase

import (
	"context"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
)

// flagGate combines a static deny list with optional flag storage.
type flagGate struct {
	repo     FlagRepository
	disabled map[domain.Flow]struct{}
}

// IsEnabled reports whether flow may be issued and opened. A flow on the deny
// list is always disabled. Otherwise the stored flag decides; a flow without a
// stored flag is enabled.
func (g *flagGate) IsEnabled(ctx context.Context, flow domain.Flow) (bool, error) {
	if _, denied := g.disabled[flow]; denied {
		return false, nil
	}
	if g.repo == nil {
		return true, nil
	}

	enabled, found, err := g.repo.Get(ctx, flow.FlagKey())
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return enabled, nil
}

// NewFlagGate creates a FlagGate backed by repo with a static deny list.
func NewFlagGate(repo FlagRepository, disabled []string) FlagGate {
	gate := &flagGate{repo: repo, disabled: make(map[domain.Flow]struct{}, len(disabled))}
	for _, flow := range disabled {
		gate.disabled[domain.Flow(flow)] = struct{}{}
	}
	return gate
}

// NewStaticFlagGate creates a FlagGate that only consults the deny list.
func NewStaticFlagGate(disabled []string) FlagGate {
	return NewFlagGate(nil, disabled)
}
