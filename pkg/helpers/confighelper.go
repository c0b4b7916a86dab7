// Package helpers contains various common helper functions.
// Normally they are shared functions used by the cmds.
package helpers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	log "github.com/golang/glog"

	"github.com/joincivil/civil-debate-processor/pkg/article"
	"github.com/joincivil/civil-debate-processor/pkg/instagram"
	"github.com/joincivil/civil-debate-processor/pkg/llm"
	"github.com/joincivil/civil-debate-processor/pkg/metrics"
	"github.com/joincivil/civil-debate-processor/pkg/model"
	"github.com/joincivil/civil-debate-processor/pkg/persistence"
	"github.com/joincivil/civil-debate-processor/pkg/utils"
)

// Persister is a helper function to return an interface{} that is an
// initialized persister type
func Persister(ctx context.Context, config *utils.ProcessorConfig) (interface{}, error) {
	switch config.PersisterType {
	case utils.PersisterTypeLocal:
		return persistence.NewLocalDiskStore(config.PersisterLocalDir)
	case utils.PersisterTypeGCS:
		return persistence.NewGCSStore(ctx, config.PersisterGcsBucket, config.PersisterGcsPrefix,
			config.PersisterCredentialsFile)
	case utils.PersisterTypeDatastore:
		return persistence.NewDatastoreStore(ctx, config.PersisterDatastoreProjectID,
			config.PersisterDatastoreNamespace, config.PersisterDatastoreKind,
			config.PersisterCredentialsFile)
	case utils.PersisterTypePostgresql:
		return postgresPersister(config)
	}
	// Default to the NullStore
	return &persistence.NullStore{}, nil
}

// StateStore is a helper function to return the state store based on the
// given configuration
func StateStore(ctx context.Context, config *utils.ProcessorConfig) (model.StateStore, error) {
	p, err := Persister(ctx, config)
	if err != nil {
		return nil, err
	}
	return p.(model.StateStore), nil
}

// CloseStateStore closes the store if it holds a client or connection
func CloseStateStore(store model.StateStore) {
	closer, ok := store.(io.Closer)
	if !ok {
		return
	}
	err := closer.Close()
	if err != nil {
		log.Errorf("Error closing state store: err: %v", err)
	}
}

// TextCompleter is a helper function to return the completion client based
// on the given configuration. The client is instrumented if m is not nil.
func TextCompleter(config *utils.ProcessorConfig, m *metrics.Metrics) (model.TextCompleter, error) {
	client, err := llm.NewClient(&llm.NewClientParams{
		APIKey:            config.LLMAPIKey,
		BaseURL:           config.LLMBaseURL,
		Timeout:           config.LLMTimeout(),
		RequestsPerMinute: config.LLMRequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return metrics.InstrumentCompleter(client, m), nil
}

// SocialPlatform is a helper function to return the platform client based on
// the given configuration
func SocialPlatform(config *utils.ProcessorConfig) model.SocialPlatform {
	return instagram.NewClient(config.InstagramAccessToken, config.GraphAPIURL,
		config.PlatformTimeout())
}

// DefaultArticles returns the articles configured in the environment, used
// for accounts that have none stored. ArticlesConfig paths are relative to
// the working directory, manifest file paths to the manifest's directory.
func DefaultArticles(config *utils.ProcessorConfig) ([]*model.Article, error) {
	if config.ArticlesConfig != "" {
		entries, err := article.ParseManifestJSON([]byte(config.ArticlesConfig))
		if err != nil {
			return nil, err
		}
		return article.LoadArticles(entries, ""), nil
	}
	if config.ArticlesManifestFile != "" {
		entries, err := article.ReadManifestFile(config.ArticlesManifestFile)
		if err != nil {
			return nil, err
		}
		return article.LoadArticles(entries, filepath.Dir(config.ArticlesManifestFile)), nil
	}
	return []*model.Article{}, nil
}

func postgresPersister(config *utils.ProcessorConfig) (*persistence.PostgresPersister, error) {
	persister, err := persistence.NewPostgresPersister(
		config.PersisterPostgresAddress,
		config.PersisterPostgresPort,
		config.PersisterPostgresUser,
		config.PersisterPostgresPw,
		config.PersisterPostgresDbname,
	)
	if err != nil {
		log.Errorf("Error connecting to Postgresql, stopping...; err: %v", err)
		return nil, err
	}
	err = persister.CreateTables()
	if err != nil {
		return nil, fmt.Errorf("Unable to create tables: %v", err)
	}
	return persister, nil
}
