package processormain

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/joincivil/civil-debate-processor/pkg/composer"
	"github.com/joincivil/civil-debate-processor/pkg/helpers"
	"github.com/joincivil/civil-debate-processor/pkg/ledger"
	"github.com/joincivil/civil-debate-processor/pkg/metrics"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
	"github.com/joincivil/civil-debate-processor/pkg/processor"
	"github.com/joincivil/civil-debate-processor/pkg/prompt"
	"github.com/joincivil/civil-debate-processor/pkg/relevance"
	"github.com/joincivil/civil-debate-processor/pkg/thread"
	"github.com/joincivil/civil-debate-processor/pkg/utils"
	"github.com/joincivil/civil-debate-processor/pkg/validator"
)

// InitializedPersisters contains initialized persisters needed to run processor
type InitializedPersisters struct {
	Store    model.StateStore
	Accounts model.AccountPersister
}

// InitPersisters inits the persisters from the config
func InitPersisters(ctx context.Context, config *utils.ProcessorConfig) (*InitializedPersisters, error) {
	store, err := helpers.StateStore(ctx, config)
	if err != nil {
		log.Errorf("Error getting the state store: %v", err)
		return nil, err
	}
	return &InitializedPersisters{
		Store:    store,
		Accounts: persistence.NewAccountRegistry(store),
	}, nil
}

// InitializedServices contains the collaborators shared by every account
type InitializedServices struct {
	Completer       model.TextCompleter
	Platform        model.SocialPlatform
	Publisher       model.ModerationEventPublisher
	Metrics         *metrics.Metrics
	DefaultArticles []*model.Article
}

// InitServices inits the completion and platform clients from the config.
// publisher and m may be nil.
func InitServices(config *utils.ProcessorConfig, publisher model.ModerationEventPublisher,
	m *metrics.Metrics) (*InitializedServices, error) {
	completer, err := helpers.TextCompleter(config, m)
	if err != nil {
		log.Errorf("Error getting the completion client: %v", err)
		return nil, err
	}
	articles, err := helpers.DefaultArticles(config)
	if err != nil {
		log.Errorf("Error loading the configured articles: %v", err)
		return nil, err
	}
	return &InitializedServices{
		Completer:       completer,
		Platform:        helpers.SocialPlatform(config),
		Publisher:       publisher,
		Metrics:         m,
		DefaultArticles: articles,
	}, nil
}

// AccountsToProcess returns the accounts a run covers. Accounts named in the
// config come first, then the account registry. With neither, the single
// un-namespaced default account is returned.
func AccountsToProcess(ctx context.Context, config *utils.ProcessorConfig,
	persisters *InitializedPersisters) ([]*model.Account, error) {
	registered, err := persisters.Accounts.Accounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error loading account registry")
	}
	if len(config.AccountIDs) == 0 {
		if len(registered) > 0 {
			return registered, nil
		}
		return []*model.Account{{ID: ""}}, nil
	}

	byID := make(map[string]*model.Account, len(registered))
	for _, account := range registered {
		byID[account.ID] = account
	}
	accounts := make([]*model.Account, 0, len(config.AccountIDs))
	for _, id := range config.AccountIDs {
		account, ok := byID[id]
		if !ok {
			account = &model.Account{ID: id}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// NewAccountProcessor builds the processor for the account's namespace in
// the state store
func NewAccountProcessor(config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices, account *model.Account) (*processor.CommentProcessor, error) {
	store, err := persistence.NewAccountStore(persisters.Store, account.ID)
	if err != nil {
		return nil, err
	}
	templates := prompt.NewLoader(persistence.NewPromptRepository(store))

	botUsername := config.BotUsername
	if botUsername == "" {
		botUsername = account.Username
	}

	return processor.NewCommentProcessor(&processor.NewCommentProcessorParams{
		AccountID:       account.ID,
		BotUsername:     botUsername,
		Queue:           persistence.NewCommentQueue(store),
		Ledger:          ledger.NewModerationLedger(store),
		NoMatchLog:      ledger.NewNoMatchLog(store),
		PostedIDs:       persistence.NewPostedIDSet(store),
		Mode:            persistence.NewModeFlag(store, config.AutoPostEnabled),
		Articles:        persistence.NewArticleRepository(store),
		DefaultArticles: services.DefaultArticles,
		Gate: relevance.NewGate(&relevance.NewGateParams{
			Completer: services.Completer,
			Templates: templates,
			Model:     config.ModelName,
		}),
		ThreadBuilder: thread.NewBuilder(services.Platform),
		Composer: composer.NewComposer(&composer.NewComposerParams{
			Completer:   services.Completer,
			Templates:   templates,
			Model:       config.ModelName,
			MaxTokens:   config.MaxTokens,
			Temperature: config.Temperature,
		}),
		Validator: validator.NewResponseValidator(),
		Platform:  services.Platform,
		Publisher: services.Publisher,
		Metrics:   services.Metrics,
	}), nil
}

// accountLocks serializes runs for the same account within the process
type accountLocks struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func (a *accountLocks) lock(accountID string) func() {
	a.mutex.Lock()
	if a.locks == nil {
		a.locks = map[string]*sync.Mutex{}
	}
	lock, ok := a.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[accountID] = lock
	}
	a.mutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

var runLocks = &accountLocks{}

// RunAccount runs one batch for the account. Runs for the same account do
// not overlap.
func RunAccount(ctx context.Context, config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices, account *model.Account) (*processor.RunSummary, error) {
	unlock := runLocks.lock(account.ID)
	defer unlock()

	proc, err := NewAccountProcessor(config, persisters, services, account)
	if err != nil {
		return nil, err
	}
	return proc.Process(ctx)
}

// RunProcessor runs one batch for every account, AccountConcurrency at a
// time. A failed account does not stop the others; the first error is
// returned.
func RunProcessor(ctx context.Context, config *utils.ProcessorConfig, persisters *InitializedPersisters,
	services *InitializedServices) error {
	runID := uuid.New().String()
	start := time.Now()

	accounts, err := AccountsToProcess(ctx, config, persisters)
	if err != nil {
		log.Errorf("Error getting accounts for run %v: err: %v", runID, err)
		return err
	}

	group := &errgroup.Group{}
	group.SetLimit(config.AccountConcurrency)
	for _, account := range accounts {
		account := account
		group.Go(func() error {
			summary, err := RunAccount(ctx, config, persisters, services, account)
			if err != nil {
				log.Errorf("Error processing account %q in run %v: err: %v", account.ID, runID, err)
				return errors.Wrapf(err, "account %q", account.ID)
			}
			log.Infof("Run %v account %q: comments: %v, entries: %v, no matches: %v, posted: %v, post failures: %v",
				runID, account.ID, summary.Comments, summary.Entries, summary.NoMatches,
				summary.Posted, summary.PostFailures)
			return nil
		})
	}
	err = group.Wait()

	log.Infof("Done running processor %v for %v accounts in %v: %v", runID, len(accounts),
		time.Since(start), runtime.NumGoroutine())
	return err
}
