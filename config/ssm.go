package config

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// Fetcher retrieves configuration overrides from a backing store.
// Implementations may fetch from SSM Parameter Store, local files, etc.
// A nil result with no error means no overrides exist.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SSMFetcher reads a YAML configuration document from AWS SSM
// Parameter Store.
type SSMFetcher struct {
	client    *ssm.Client
	parameter string
}

// NewSSMFetcher creates a fetcher for the named parameter.
func NewSSMFetcher(ctx context.Context, region, parameter string) (*SSMFetcher, error) {
	if parameter == "" {
		return nil, errors.New("config: SSM parameter name is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SSMFetcher{
		client:    ssm.NewFromConfig(awsCfg),
		parameter: parameter,
	}, nil
}

// Fetch retrieves the parameter value.
func (f *SSMFetcher) Fetch(ctx context.Context) ([]byte, error) {
	withDecryption := true
	out, err := f.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &f.parameter,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return nil, fmt.Errorf("SSM GetParameter failed: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, nil
	}

	log.Debug().Str("parameter", f.parameter).Msg("Fetched remote config overrides")
	return []byte(*out.Parameter.Value), nil
}

// LoadRemote merges overrides from the fetcher into cfg and
// re-validates. A fetcher returning no data leaves cfg unchanged.
func LoadRemote(ctx context.Context, fetcher Fetcher, cfg *Config) error {
	data, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remote config: %w", err)
	}
	if data == nil {
		log.Debug().Msg("No remote config overrides found")
		return nil
	}
	if err := cfg.Merge(data); err != nil {
		return err
	}
	return cfg.Validate()
}
