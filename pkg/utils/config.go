// Package utils contains various common utils separate by utility types
package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron"

	"github.com/joincivil/civil-debate-processor/pkg/article"
)

// PersisterType is the type of persister to use.
type PersisterType int

const (
	// PersisterTypeInvalid is an invalid persister value
	PersisterTypeInvalid PersisterType = iota

	// PersisterTypeNone is a persister that does nothing but return default values
	PersisterTypeNone

	// PersisterTypeLocal is a persister that keeps documents on local disk
	PersisterTypeLocal

	// PersisterTypeGCS is a persister that keeps documents in a GCS bucket
	PersisterTypeGCS

	// PersisterTypeDatastore is a persister that keeps documents in Cloud Datastore
	PersisterTypeDatastore

	// PersisterTypePostgresql is a persister that uses PostgreSQL as the backend
	PersisterTypePostgresql
)

var (
	// PersisterNameToType maps valid persister names to the types above
	PersisterNameToType = map[string]PersisterType{
		"none":       PersisterTypeNone,
		"local":      PersisterTypeLocal,
		"gcs":        PersisterTypeGCS,
		"datastore":  PersisterTypeDatastore,
		"postgresql": PersisterTypePostgresql,
	}

	// CronParser parses the 5 field cron specs used in CronConfig
	CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
)

const (
	envVarPrefix = "processor"

	usageListFormat = `The processor is configured via environment vars only. The following environment variables can be used:
{{range .}}
{{usage_key .}}
  description: {{usage_description .}}
  type:        {{usage_type .}}
  default:     {{usage_default .}}
  required:    {{usage_required .}}
{{end}}
`
)

// NOTE(PN): After envconfig populates ProcessorConfig with the environment vars,
// there is nothing preventing the ProcessorConfig fields from being mutated.

// ProcessorConfig is the master config for the processor derived from environment
// variables.
type ProcessorConfig struct {
	CronConfig string `split_words:"true" desc:"Cron config string * * * * *. If empty and no trigger subscription is set, runs once"`

	LLMAPIKey            string  `envconfig:"llm_api_key" required:"true" desc:"API key for the completion endpoint"`
	LLMBaseURL           string  `envconfig:"llm_base_url" default:"https://openrouter.ai/api/v1" desc:"OpenAI compatible completion endpoint"`
	ModelName            string  `split_words:"true" default:"google/gemini-flash-2.0" desc:"Model used for drafting and relevance checks"`
	MaxTokens            int     `split_words:"true" default:"2000" desc:"Max tokens for a drafted reply"`
	Temperature          float32 `split_words:"true" default:"0.7" desc:"Temperature for a drafted reply"`
	LLMTimeoutSecs       int     `envconfig:"llm_timeout_secs" default:"30" desc:"Timeout for a completion call"`
	LLMRequestsPerMinute int     `envconfig:"llm_requests_per_minute" default:"0" desc:"Max completion calls per minute, 0 for no limit"`

	InstagramAccessToken string `split_words:"true" required:"true" desc:"Graph API access token"`
	GraphAPIURL          string `envconfig:"graph_api_url" default:"https://graph.facebook.com/v18.0" desc:"Graph API base URL"`
	PlatformTimeoutSecs  int    `split_words:"true" default:"30" desc:"Timeout for a Graph API call"`
	BotUsername          string `split_words:"true" desc:"Username of the bot account, its own comments are skipped"`
	AutoPostEnabled      bool   `split_words:"true" default:"false" desc:"Auto post mode used when no mode has been saved"`

	ArticlesConfig       string `split_words:"true" desc:"JSON list of articles [{path, link, is_numbered}] used when none are stored"`
	ArticlesManifestFile string `split_words:"true" desc:"YAML or JSON article manifest file used when none are stored"`

	AccountIDs         []string `envconfig:"account_ids" desc:"Account ids to process, defaults to the account registry"`
	AccountConcurrency int      `split_words:"true" default:"1" desc:"Number of accounts processed at once"`

	PubSubProjectID           string `split_words:"true" desc:"Sets GPubSub project ID. If not set, pubsub is not used"`
	PubSubModerationTopicName string `split_words:"true" desc:"Sets GPubSub topic name for moderation events"`
	PubSubTriggerSubName      string `split_words:"true" desc:"Sets GPubSub subscription name for run triggers"`
	PubSubCredentialsFile     string `split_words:"true" desc:"Credentials file for GPubSub, defaults to the environment"`

	MetricsAddr string `split_words:"true" desc:"Address to serve Prometheus metrics on, e.g. :9090"`

	PersisterType               PersisterType `ignored:"true"`
	PersisterTypeName           string        `split_words:"true" required:"true" desc:"Sets the persister type to use"`
	PersisterLocalDir           string        `split_words:"true" desc:"If persister type is local, sets the state directory"`
	PersisterGcsBucket          string        `split_words:"true" desc:"If persister type is gcs, sets the bucket"`
	PersisterGcsPrefix          string        `split_words:"true" desc:"If persister type is gcs, sets the object prefix"`
	PersisterDatastoreProjectID string        `split_words:"true" desc:"If persister type is datastore, sets the project ID"`
	PersisterDatastoreNamespace string        `split_words:"true" desc:"If persister type is datastore, sets the namespace"`
	PersisterDatastoreKind      string        `split_words:"true" default:"StateDocument" desc:"If persister type is datastore, sets the entity kind"`
	PersisterCredentialsFile    string        `split_words:"true" desc:"Credentials file for gcs or datastore, defaults to the environment"`
	PersisterPostgresAddress    string        `split_words:"true" desc:"If persister type is Postgresql, sets the address"`
	PersisterPostgresPort       int           `split_words:"true" desc:"If persister type is Postgresql, sets the port"`
	PersisterPostgresDbname     string        `split_words:"true" desc:"If persister type is Postgresql, sets the database name"`
	PersisterPostgresUser       string        `split_words:"true" desc:"If persister type is Postgresql, sets the database user"`
	PersisterPostgresPw         string        `split_words:"true" desc:"If persister type is Postgresql, sets the database password"`
}

// OutputUsage prints the usage string to os.Stdout
func (c *ProcessorConfig) OutputUsage() {
	tabs := tabwriter.NewWriter(os.Stdout, 1, 0, 4, ' ', 0)
	_ = envconfig.Usagef(envVarPrefix, c, tabs, usageListFormat) // nolint: gosec
	_ = tabs.Flush()                                             // nolint: gosec
}

// PopulateFromEnv processes the environment vars, populates ProcessorConfig
// with the respective values, and validates the values.
func (c *ProcessorConfig) PopulateFromEnv() error {
	err := envconfig.Process(envVarPrefix, c)
	if err != nil {
		return err
	}

	err = c.validateCronConfig()
	if err != nil {
		return err
	}

	err = c.validateAPIURLs()
	if err != nil {
		return err
	}

	err = c.validateLimits()
	if err != nil {
		return err
	}

	err = c.validateArticles()
	if err != nil {
		return err
	}

	err = c.validatePubSub()
	if err != nil {
		return err
	}

	err = c.populatePersisterType()
	if err != nil {
		return err
	}

	return c.validatePersister()
}

// LLMTimeout returns the completion call timeout
func (c *ProcessorConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSecs) * time.Second
}

// PlatformTimeout returns the Graph API call timeout
func (c *ProcessorConfig) PlatformTimeout() time.Duration {
	return time.Duration(c.PlatformTimeoutSecs) * time.Second
}

// PubSubEnabled returns true if a pubsub project is configured
func (c *ProcessorConfig) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

func (c *ProcessorConfig) validateCronConfig() error {
	if c.CronConfig == "" {
		return nil
	}
	_, err := CronParser.Parse(c.CronConfig)
	if err != nil {
		return fmt.Errorf("Invalid cron config: '%v'", c.CronConfig)
	}
	return nil
}

func (c *ProcessorConfig) validateAPIURLs() error {
	if !isValidURL(c.LLMBaseURL) {
		return fmt.Errorf("Invalid LLM base URL: '%v'", c.LLMBaseURL)
	}
	if !isValidURL(c.GraphAPIURL) {
		return fmt.Errorf("Invalid Graph API URL: '%v'", c.GraphAPIURL)
	}
	return nil
}

func (c *ProcessorConfig) validateLimits() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("Invalid max tokens: %v", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("Invalid temperature: %v", c.Temperature)
	}
	if c.LLMTimeoutSecs <= 0 || c.PlatformTimeoutSecs <= 0 {
		return errors.New("Timeouts must be positive")
	}
	if c.LLMRequestsPerMinute < 0 {
		return fmt.Errorf("Invalid requests per minute: %v", c.LLMRequestsPerMinute)
	}
	if c.AccountConcurrency <= 0 {
		return fmt.Errorf("Invalid account concurrency: %v", c.AccountConcurrency)
	}
	return nil
}

func (c *ProcessorConfig) validateArticles() error {
	if c.ArticlesConfig == "" {
		return nil
	}
	_, err := article.ParseManifestJSON([]byte(c.ArticlesConfig))
	if err != nil {
		return fmt.Errorf("Invalid articles config: %v", err)
	}
	return nil
}

func (c *ProcessorConfig) validatePubSub() error {
	if c.PubSubProjectID != "" {
		return nil
	}
	if c.PubSubModerationTopicName != "" || c.PubSubTriggerSubName != "" {
		return errors.New("PubSub project ID required for pubsub topics and subscriptions")
	}
	return nil
}

func (c *ProcessorConfig) validatePersister() error {
	switch c.PersisterType {
	case PersisterTypeLocal:
		if c.PersisterLocalDir == "" {
			return errors.New("Local persister dir required")
		}
	case PersisterTypeGCS:
		if c.PersisterGcsBucket == "" {
			return errors.New("GCS bucket required")
		}
	case PersisterTypeDatastore:
		if c.PersisterDatastoreProjectID == "" {
			return errors.New("Datastore project ID required")
		}
	case PersisterTypePostgresql:
		return c.validatePostgresqlPersister()
	}
	return nil
}

func (c *ProcessorConfig) validatePostgresqlPersister() error {
	if c.PersisterPostgresAddress == "" {
		return errors.New("Postgresql address required")
	}
	if c.PersisterPostgresPort == 0 {
		return errors.New("Postgresql port required")
	}
	if c.PersisterPostgresDbname == "" {
		return errors.New("Postgresql db name required")
	}
	return nil
}

func (c *ProcessorConfig) populatePersisterType() error {
	var err error
	c.PersisterType, err = PersisterTypeFromName(c.PersisterTypeName)
	return err
}

// PersisterTypeFromName returns the correct persisterType from the string name
func PersisterTypeFromName(typeStr string) (PersisterType, error) {
	pType, ok := PersisterNameToType[typeStr]
	if !ok {
		validNames := make([]string, 0, len(PersisterNameToType))
		for name := range PersisterNameToType {
			validNames = append(validNames, name)
		}
		sort.Strings(validNames)
		return PersisterTypeInvalid,
			fmt.Errorf("Invalid persister value: %v; valid types %v", typeStr, validNames)
	}
	return pType, nil
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
