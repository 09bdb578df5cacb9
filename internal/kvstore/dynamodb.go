package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/rzpsarthak13/tabular/internal/core"
	"github.com/rzpsarthak13/tabular/internal/logging"
	"github.com/rzpsarthak13/tabular/internal/registry"
)

// DynamoDBKVStore implements the core.KVStore interface using AWS DynamoDB.
// The table needs a string partition key named "key"; TTL lives in the "ttl" attribute.
type DynamoDBKVStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
	now       func() time.Time
	closed    atomic.Bool
}

// DynamoDBItem represents a blob item stored in DynamoDB.
type DynamoDBItem struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	TTL       *int64 `dynamodbav:"ttl,omitempty"`
	CreatedAt int64  `dynamodbav:"created_at"`
}

// dynamoRecord is the read-side view; counters written by Incr carry only "counter".
type dynamoRecord struct {
	Key     string `dynamodbav:"key"`
	Value   []byte `dynamodbav:"value,omitempty"`
	TTL     *int64 `dynamodbav:"ttl,omitempty"`
	Counter *int64 `dynamodbav:"counter,omitempty"`
}

// key and ttl are DynamoDB reserved words and must go through attribute names.
var dynamoNames = map[string]string{"#k": "key", "#t": "ttl", "#c": "counter"}

// DynamoDBOptions configures the DynamoDB client.
type DynamoDBOptions struct {
	Region          string
	TableName       string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int
	Logger          *zap.Logger
}

// NewDynamoDBKVStore loads the AWS configuration and builds a client.
func NewDynamoDBKVStore(ctx context.Context, o DynamoDBOptions) (*DynamoDBKVStore, error) {
	if o.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if o.TableName == "" {
		return nil, fmt.Errorf("table_name is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	if o.MaxRetries > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(o.MaxRetries))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(opts *dynamodb.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
		}
	})

	logger := logging.OrNop(o.Logger)
	logger.Info("dynamodb client ready", zap.String("region", o.Region), zap.String("table", o.TableName))
	return NewDynamoDBKVStoreFromClient(client, o.TableName, logger), nil
}

// NewDynamoDBKVStoreFromClient wraps an existing DynamoDB client.
func NewDynamoDBKVStoreFromClient(client *dynamodb.Client, tableName string, logger *zap.Logger) *DynamoDBKVStore {
	return &DynamoDBKVStore{
		client:    client,
		tableName: tableName,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

func (d *DynamoDBKVStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: key}}
}

func (d *DynamoDBKVStore) expired(ttl *int64) bool {
	return ttl != nil && *ttl > 0 && d.now().Unix() > *ttl
}

// Get retrieves a value by key. Counters written by Incr read back as decimal text.
func (d *DynamoDBKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if d.closed.Load() {
		return nil, errClosed
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		d.logger.Warn("get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}

	var rec dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", key, err)
	}
	// DynamoDB deletes expired items lazily, so the TTL is checked here too.
	if d.expired(rec.TTL) {
		return nil, fmt.Errorf("%w: %s (expired)", core.ErrKeyNotFound, key)
	}
	if rec.Value == nil && rec.Counter != nil {
		return []byte(strconv.FormatInt(*rec.Counter, 10)), nil
	}
	return rec.Value, nil
}

// Set stores a key-value pair with an optional TTL.
func (d *DynamoDBKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if d.closed.Load() {
		return errClosed
	}

	now := d.now()
	item := DynamoDBItem{Key: key, Value: value, CreatedAt: now.Unix()}
	if ttl > 0 {
		exp := now.Add(ttl).Unix()
		item.TTL = &exp
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	}); err != nil {
		d.logger.Warn("put failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	d.logger.Debug("set", zap.String("key", key), zap.Int("bytes", len(value)), zap.Duration("ttl", ttl))
	return nil
}

// Delete removes a key from the store.
func (d *DynamoDBKVStore) Delete(ctx context.Context, key string) error {
	if d.closed.Load() {
		return errClosed
	}
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.itemKey(key),
	}); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists checks if a live (unexpired) item exists under key.
func (d *DynamoDBKVStore) Exists(ctx context.Context, key string) (bool, error) {
	if d.closed.Load() {
		return false, errClosed
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(d.tableName),
		Key:                      d.itemKey(key),
		ProjectionExpression:     aws.String("#k, #t"),
		ExpressionAttributeNames: map[string]string{"#k": dynamoNames["#k"], "#t": dynamoNames["#t"]},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existence of key %s: %w", key, err)
	}
	if out.Item == nil {
		return false, nil
	}
	var rec dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return false, fmt.Errorf("failed to decode item %s: %w", key, err)
	}
	return !d.expired(rec.TTL), nil
}

// Incr atomically adds one to the numeric "counter" attribute of key.
func (d *DynamoDBKVStore) Incr(ctx context.Context, key string) (int64, error) {
	if d.closed.Load() {
		return 0, errClosed
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       d.itemKey(key),
		UpdateExpression:          aws.String("ADD #c :one"),
		ExpressionAttributeNames:  map[string]string{"#c": dynamoNames["#c"]},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}

	var rec dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return 0, fmt.Errorf("failed to decode counter %s: %w", key, err)
	}
	if rec.Counter == nil {
		return 0, errors.New("dynamodb: update returned no counter")
	}
	return *rec.Counter, nil
}

// Close marks the store closed. The AWS SDK client holds no connections to release.
func (d *DynamoDBKVStore) Close() error {
	d.closed.Store(true)
	return nil
}

// GetClient returns the underlying DynamoDB client for advanced operations.
func (d *DynamoDBKVStore) GetClient() *dynamodb.Client {
	return d.client
}

// DynamoDBKVStoreFactory creates DynamoDB KV stores.
type DynamoDBKVStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *DynamoDBKVStoreFactory) Type() string {
	return "dynamodb"
}

// Validate validates the DynamoDB-specific configuration.
func (f *DynamoDBKVStoreFactory) Validate(config KVStoreConfig) error {
	if config.Type != "dynamodb" {
		return fmt.Errorf("invalid type for DynamoDB factory: %s", config.Type)
	}
	if config.Region == "" {
		return fmt.Errorf("region is required for DynamoDB")
	}
	if config.TableName == "" {
		return fmt.Errorf("table_name is required for DynamoDB")
	}
	if (config.AccessKeyID == "") != (config.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

// Create creates a new DynamoDB KV store instance based on the provided configuration.
func (f *DynamoDBKVStoreFactory) Create(ctx context.Context, config KVStoreConfig) (core.KVStore, error) {
	store, err := NewDynamoDBKVStore(ctx, DynamoDBOptions{
		Region:          config.Region,
		TableName:       config.TableName,
		Endpoint:        config.Endpoint,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
		MaxRetries:      config.MaxRetries,
		Logger:          config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB KV store: %w", err)
	}
	return store, nil
}

// DynamoDBConfigValidator validates the DynamoDB section of the internal config.
type DynamoDBConfigValidator struct{}

// Type returns the type identifier for this validator.
func (v *DynamoDBConfigValidator) Type() string {
	return "dynamodb"
}

// Validate validates the DynamoDB-specific configuration in the internal config.
func (v *DynamoDBConfigValidator) Validate(config *registry.InternalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	kvConfig := config.KVStore
	if kvConfig.Type != "dynamodb" {
		return fmt.Errorf("invalid type for DynamoDB validator: %s", kvConfig.Type)
	}

	dynamoConfig := kvConfig.DynamoDBConfig
	if dynamoConfig.Region == "" {
		return fmt.Errorf("region is required for DynamoDB")
	}
	if dynamoConfig.TableName == "" {
		return fmt.Errorf("table_name is required for DynamoDB")
	}
	if (dynamoConfig.AccessKeyID == "") != (dynamoConfig.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	if kvConfig.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got: %d", kvConfig.MaxRetries)
	}
	return nil
}

func init() {
	RegisterFactory(&DynamoDBKVStoreFactory{})
	registry.RegisterValidator(&DynamoDBConfigValidator{})
}
