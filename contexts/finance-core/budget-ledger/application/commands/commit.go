package commands

import (
	"context"
	"errors"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

// maxCommitAttempts bounds the optimistic-concurrency loop. After this many
// version conflicts the operation surfaces ErrConcurrencyConflict instead of
// looping forever.
const maxCommitAttempts = 4

// errNoLedgerEvent aborts a commit attempt from inside the build callback
// when the operation turns out to be a no-op. Never escapes the package.
var errNoLedgerEvent = errors.New("no ledger event")

// buildCommit computes one candidate commit from a freshly loaded campaign.
// It runs once per attempt, so it must not carry state between calls.
type buildCommit func(campaign entities.Campaign) (ports.BudgetCommit, error)

// commitWithRetry is the read-compute-compare-and-swap loop every budget
// operation runs through. The committed campaign row is returned so callers
// can report post-commit state.
func commitWithRetry(
	ctx context.Context,
	campaigns ports.CampaignRepository,
	committer ports.BudgetCommitter,
	campaignID string,
	build buildCommit,
) (ports.BudgetCommit, error) {
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		campaign, err := campaigns.GetCampaign(ctx, campaignID)
		if err != nil {
			return ports.BudgetCommit{}, err
		}
		commit, err := build(campaign)
		if err != nil {
			return ports.BudgetCommit{}, err
		}
		err = committer.CommitBudgetOperation(ctx, commit)
		if err == nil {
			return commit, nil
		}
		if !errors.Is(err, domainerrors.ErrVersionConflict) {
			return ports.BudgetCommit{}, err
		}
		backoff := time.NewTimer(time.Duration(attempt+1) * 2 * time.Millisecond)
		select {
		case <-ctx.Done():
			backoff.Stop()
			return ports.BudgetCommit{}, ctx.Err()
		case <-backoff.C:
		}
	}
	return ports.BudgetCommit{}, domainerrors.ErrConcurrencyConflict
}

// nextVersion stamps a campaign for commit against the version it was read at.
func nextVersion(campaign entities.Campaign) (entities.Campaign, int64) {
	expected := campaign.BudgetVersion
	campaign.BudgetVersion = expected + 1
	return campaign, expected
}
