package budgetledger

import (
	"log/slog"

	httpadapter "clipcash/contexts/finance-core/budget-ledger/adapters/http"
	"clipcash/contexts/finance-core/budget-ledger/adapters/memory"
	"clipcash/contexts/finance-core/budget-ledger/application/commands"
	"clipcash/contexts/finance-core/budget-ledger/application/queries"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Campaigns   ports.CampaignRepository
	Submissions ports.SubmissionRepository
	Committer   ports.BudgetCommitter
	History     ports.HistoryRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	reserve := commands.ReserveForSubmissionUseCase{
		Campaigns:   deps.Campaigns,
		Submissions: deps.Submissions,
		Committer:   deps.Committer,
		Clock:       deps.Clock,
		IDGen:       deps.IDGenerator,
		Logger:      deps.Logger,
	}
	spend := commands.SpendForPayoutUseCase{
		Campaigns:   deps.Campaigns,
		Submissions: deps.Submissions,
		Committer:   deps.Committer,
		Clock:       deps.Clock,
		IDGen:       deps.IDGenerator,
		Logger:      deps.Logger,
	}
	viewIncrease := commands.UpdateForViewIncreaseUseCase{
		Campaigns:   deps.Campaigns,
		Submissions: deps.Submissions,
		Committer:   deps.Committer,
		Clock:       deps.Clock,
		IDGen:       deps.IDGenerator,
		Logger:      deps.Logger,
	}
	release := commands.ReleaseForSubmissionUseCase{
		Campaigns:   deps.Campaigns,
		Submissions: deps.Submissions,
		Committer:   deps.Committer,
		Clock:       deps.Clock,
		IDGen:       deps.IDGenerator,
		Logger:      deps.Logger,
	}
	complete := commands.CompleteWithRefundUseCase{
		Campaigns: deps.Campaigns,
		Committer: deps.Committer,
		Clock:     deps.Clock,
		IDGen:     deps.IDGenerator,
		Logger:    deps.Logger,
	}

	getBudget := queries.GetBudgetUseCase{
		Campaigns: deps.Campaigns,
		Logger:    deps.Logger,
	}
	listBudgetLog := queries.ListBudgetLogUseCase{
		History: deps.History,
		Logger:  deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			ReserveForSubmission:  reserve,
			SpendForPayout:        spend,
			UpdateForViewIncrease: viewIncrease,
			ReleaseForSubmission:  release,
			CompleteWithRefund:    complete,
			GetBudget:             getBudget,
			ListBudgetLog:         listBudgetLog,
			Logger:                deps.Logger,
		},
	}
}

func NewInMemoryModule(
	seedCampaigns []entities.Campaign,
	seedSubmissions []entities.Submission,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seedCampaigns, seedSubmissions)
	module := NewModule(Dependencies{
		Campaigns:   store,
		Submissions: store,
		Committer:   store,
		History:     store,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
