package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/pkg/metadata"
	metadatabadger "github.com/mcav91/partfs/pkg/metadata/badger"
	"github.com/mcav91/partfs/pkg/notify"
	"github.com/mcav91/partfs/pkg/storage"
	storagefs "github.com/mcav91/partfs/pkg/storage/fs"
	storagememory "github.com/mcav91/partfs/pkg/storage/memory"
	storages3 "github.com/mcav91/partfs/pkg/storage/s3"
)

// s3StoreConfig represents S3 configuration loaded from YAML files.
type s3StoreConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateStore creates a storage backend based on configuration.
//
// This factory uses the Type field to determine which backend to create,
// then decodes the type-specific configuration from the corresponding map
// and passes it to the backend's constructor.
func CreateStore(ctx context.Context, cfg StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStore(ctx, cfg)
	case "memory":
		return createMemoryStore(ctx)
	case "s3":
		return createS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

// createFilesystemStore creates a filesystem-backed store.
func createFilesystemStore(ctx context.Context, cfg StorageConfig) (storage.Store, error) {
	var fsCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(cfg.Filesystem, &fsCfg); err != nil {
		return nil, fmt.Errorf("invalid filesystem config: %w", err)
	}

	if fsCfg.Path == "" {
		return nil, fmt.Errorf("filesystem path is required")
	}

	store, err := storagefs.NewFSStore(ctx, fsCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filesystem store: %w", err)
	}

	logger.Info("Filesystem store initialized: path=%s", fsCfg.Path)

	return store, nil
}

// createMemoryStore creates an in-memory store.
func createMemoryStore(ctx context.Context) (storage.Store, error) {
	store, err := storagememory.NewMemoryStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}

	return store, nil
}

// createS3Store creates an S3-backed store.
func createS3Store(ctx context.Context, cfg StorageConfig) (storage.Store, error) {
	var storeCfg s3StoreConfig
	if err := mapstructure.Decode(cfg.S3, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid S3 config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := storages3.NewS3Store(ctx, storages3.S3StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the decoded store configuration.
func newS3Client(ctx context.Context, storeCfg s3StoreConfig) (*awsS3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retries for resilience against temporary S3 failures
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	}), nil
}

// CreateMetadataUpdater creates the metadata sink based on configuration.
func CreateMetadataUpdater(ctx context.Context, cfg MetadataConfig) (metadata.Updater, error) {
	switch cfg.Type {
	case "none":
		return metadata.NopUpdater{}, nil
	case "badger":
		var badgerCfg struct {
			Path string `mapstructure:"path"`
		}
		if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
			return nil, fmt.Errorf("invalid badger config: %w", err)
		}

		store, err := metadatabadger.NewBadgerStore(ctx, badgerCfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger database: %w", err)
		}

		logger.Info("Badger metadata store initialized: path=%s", badgerCfg.Path)

		return store, nil
	default:
		return nil, fmt.Errorf("unknown metadata type: %q", cfg.Type)
	}
}

// CreateNotifier creates the post-commit event sink based on configuration.
func CreateNotifier(cfg NotifyConfig) (notify.Notifier, error) {
	switch cfg.Type {
	case "none":
		return notify.NopNotifier{}, nil
	case "log":
		return notify.LogNotifier{}, nil
	default:
		return nil, fmt.Errorf("unknown notify type: %q", cfg.Type)
	}
}
