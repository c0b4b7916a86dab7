package main

// This script checks the moderation ledger against the posted-id set for each
// account. Accounts come from ACCOUNT_IDS, then the account registry, then
// the account namespaces found in the store. Entries marked posted whose
// comment is missing from the set would allow a second reply to the same
// comment. Ids in the set with no posted entry are reported only. With
// WET_RUN set, the missing ids are added to the set.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joincivil/civil-debate-processor/pkg/helpers"
	"github.com/joincivil/civil-debate-processor/pkg/ledger"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
	"github.com/joincivil/civil-debate-processor/pkg/utils"
)

const (
	envVarPrefix = "ledgercheck"
)

// Config configures this script
type Config struct {
	WetRun                      bool     `split_words:"true" desc:"If set to true, will add missing ids to the posted-id set"`
	AccountIDs                  []string `envconfig:"account_ids" desc:"Account ids to check, defaults to the account registry"`
	PersisterTypeName           string   `split_words:"true" required:"true" desc:"Sets the persister type to use"`
	PersisterLocalDir           string   `split_words:"true" desc:"If persister type is local, sets the state directory"`
	PersisterGcsBucket          string   `split_words:"true" desc:"If persister type is gcs, sets the bucket"`
	PersisterGcsPrefix          string   `split_words:"true" desc:"If persister type is gcs, sets the object prefix"`
	PersisterDatastoreProjectID string   `split_words:"true" desc:"If persister type is datastore, sets the project ID"`
	PersisterDatastoreNamespace string   `split_words:"true" desc:"If persister type is datastore, sets the namespace"`
	PersisterDatastoreKind      string   `split_words:"true" default:"StateDocument" desc:"If persister type is datastore, sets the entity kind"`
	PersisterCredentialsFile    string   `split_words:"true" desc:"Credentials file for gcs or datastore"`
	PersisterPostgresAddress    string   `split_words:"true" desc:"If persister type is Postgresql, sets the address"`
	PersisterPostgresPort       int      `split_words:"true" desc:"If persister type is Postgresql, sets the port"`
	PersisterPostgresDbname     string   `split_words:"true" desc:"If persister type is Postgresql, sets the database name"`
	PersisterPostgresUser       string   `split_words:"true" desc:"If persister type is Postgresql, sets the database user"`
	PersisterPostgresPw         string   `split_words:"true" desc:"If persister type is Postgresql, sets the database password"`
}

// PopulateFromEnv processes the environment vars, populates Config
func (c *Config) PopulateFromEnv() error {
	return envconfig.Process(envVarPrefix, c)
}

// OutputUsage prints the usage string to os.Stdout
func (c *Config) OutputUsage() {
	tabs := tabwriter.NewWriter(os.Stdout, 1, 0, 4, ' ', 0)
	_ = envconfig.Usagef(envVarPrefix, c, tabs, envconfig.DefaultTableFormat) // nolint: gosec
	_ = tabs.Flush()                                                           // nolint: gosec
}

func (c *Config) processorConfig() (*utils.ProcessorConfig, error) {
	persisterType, err := utils.PersisterTypeFromName(c.PersisterTypeName)
	if err != nil {
		return nil, err
	}
	return &utils.ProcessorConfig{
		PersisterType:               persisterType,
		PersisterLocalDir:           c.PersisterLocalDir,
		PersisterGcsBucket:          c.PersisterGcsBucket,
		PersisterGcsPrefix:          c.PersisterGcsPrefix,
		PersisterDatastoreProjectID: c.PersisterDatastoreProjectID,
		PersisterDatastoreNamespace: c.PersisterDatastoreNamespace,
		PersisterDatastoreKind:      c.PersisterDatastoreKind,
		PersisterCredentialsFile:    c.PersisterCredentialsFile,
		PersisterPostgresAddress:    c.PersisterPostgresAddress,
		PersisterPostgresPort:       c.PersisterPostgresPort,
		PersisterPostgresDbname:     c.PersisterPostgresDbname,
		PersisterPostgresUser:       c.PersisterPostgresUser,
		PersisterPostgresPw:         c.PersisterPostgresPw,
	}, nil
}

// checkResult is what was found for one account
type checkResult struct {
	Entries        int
	Posted         int
	MissingIDs     []string
	UnmatchedIDs   []string
	PendingRetries int
	Repaired       bool
}

func checkAccount(ctx context.Context, store model.StateStore, wetRun bool) (*checkResult, error) {
	entries, err := ledger.NewModerationLedger(store).Entries(ctx)
	if err != nil {
		return nil, err
	}
	postedIDs := persistence.NewPostedIDSet(store)

	result := &checkResult{Entries: len(entries), MissingIDs: []string{}, UnmatchedIDs: []string{}}
	postedEntries := map[string]bool{}
	for _, entry := range entries {
		if entry.Postable() && entry.PostError != nil {
			result.PendingRetries++
		}
		if !entry.Posted {
			continue
		}
		result.Posted++
		postedEntries[entry.CommentID] = true
		posted, err := postedIDs.IsPosted(ctx, entry.CommentID)
		if err != nil {
			return nil, err
		}
		if !posted {
			result.MissingIDs = append(result.MissingIDs, entry.CommentID)
		}
	}

	ids, err := postedIDs.PostedIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !postedEntries[id] {
			result.UnmatchedIDs = append(result.UnmatchedIDs, id)
		}
	}

	if wetRun && len(result.MissingIDs) > 0 {
		for _, id := range result.MissingIDs {
			err = postedIDs.AddPostedID(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		result.Repaired = true
	}
	return result, nil
}

func accountIDs(ctx context.Context, config *Config, store model.StateStore) ([]string, error) {
	if len(config.AccountIDs) > 0 {
		return config.AccountIDs, nil
	}
	accounts, err := persistence.NewAccountRegistry(store).Accounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return storedAccountIDs(ctx, store)
	}
	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids, nil
}

// storedAccountIDs finds accounts by their stored documents when the
// registry is empty. Stores that cannot list keys check the default account.
func storedAccountIDs(ctx context.Context, store model.StateStore) ([]string, error) {
	lister, ok := store.(persistence.KeyLister)
	if !ok {
		return []string{""}, nil
	}
	ids, err := persistence.StoredAccountIDs(ctx, lister)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{""}, nil
	}
	return ids, nil
}

func run(config *Config) {
	ctx := context.Background()
	procConfig, err := config.processorConfig()
	if err != nil {
		fmt.Printf("error with config: err: %v\n", err)
		os.Exit(2)
	}
	store, err := helpers.StateStore(ctx, procConfig)
	if err != nil {
		fmt.Printf("error with persister: err: %v\n", err)
		os.Exit(2)
	}
	defer helpers.CloseStateStore(store)

	ids, err := accountIDs(ctx, config, store)
	if err != nil {
		fmt.Printf("error retrieving accounts: err: %v\n", err)
		os.Exit(2)
	}

	for _, id := range ids {
		accountStore, err := persistence.NewAccountStore(store, id)
		if err != nil {
			fmt.Printf("error with account %q: err: %v\n", id, err)
			continue
		}
		result, err := checkAccount(ctx, accountStore, config.WetRun)
		if err != nil {
			fmt.Printf("error checking account %q: err: %v\n", id, err)
			continue
		}
		fmt.Printf("Account %q: entries: %v, posted: %v, pending retries: %v\n",
			id, result.Entries, result.Posted, result.PendingRetries)
		for _, missing := range result.MissingIDs {
			fmt.Printf("Missing posted id: %v\n", missing)
		}
		for _, unmatched := range result.UnmatchedIDs {
			fmt.Printf("Posted id with no posted entry: %v\n", unmatched)
		}
		if result.Repaired {
			fmt.Printf("Added %v ids to the posted-id set\n", len(result.MissingIDs))
		}
	}
	fmt.Printf("Done.\n")
}

func main() {
	config := &Config{}
	flag.Usage = func() {
		config.OutputUsage()
		os.Exit(0)
	}
	flag.Parse()

	envFile := os.Getenv("LEDGERCHECK_ENV")
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(2)
		}
	}

	err := config.PopulateFromEnv()
	if err != nil {
		config.OutputUsage()
		os.Exit(2)
	}

	run(config)
}
