/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables read by FromEnv.
const (
	EnvTableName         = "CS_DDB_TABLE"
	EnvIndexName         = "CS_DDB_INDEX"
	EnvRegion            = "AWS_REGION"
	EnvEndpoint          = "CS_DDB_ENDPOINT"
	EnvAccessKey         = "AWS_ACCESS_KEY"
	EnvSecretKey         = "AWS_SECRET_KEY"
	EnvMaxPrefixLen      = "CS_MAX_PREFIX_LEN"
	EnvTransactChunkSize = "CS_TRANSACT_CHUNK_SIZE"
	EnvBatchGetSize      = "CS_BATCH_GET_SIZE"
	EnvRootKey           = "CS_ROOT_KEY"
	EnvBoltPath          = "CS_BOLT_PATH"
)

// Config holds the settings of an encrypted table deployment.
type Config struct {
	// TableName is the DynamoDB table holding primary and term rows.
	TableName string `validate:"required_without=BoltPath"`

	// IndexName is the secondary index keyed on the term attribute.
	// Default: "TermIndex"
	IndexName string `validate:"required"`

	Region    string
	Endpoint  string `validate:"omitempty,url"`
	AccessKey string `validate:"required_with=SecretKey"`
	SecretKey string `validate:"required_with=AccessKey"`

	// MaxPrefixLen caps prefix term fan-out for fields without their own cap.
	// Default: 25, Max: 255
	MaxPrefixLen int `validate:"min=1,max=255"`

	// TransactChunkSize is the number of rows per transactional write.
	// Default: 100 (the DynamoDB limit)
	TransactChunkSize int `validate:"min=1,max=100"`

	// BatchGetSize is the number of keys per hydration read.
	// Default: 100 (the DynamoDB limit)
	BatchGetSize int `validate:"min=1,max=100"`

	// RootKeyHex is the hex root key of the local cipher provider.
	RootKeyHex string `validate:"omitempty,hexadecimal,len=64"`

	// BoltPath selects the embedded bbolt store instead of DynamoDB.
	BoltPath string
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		IndexName:         "TermIndex",
		MaxPrefixLen:      25,
		TransactChunkSize: 100,
		BatchGetSize:      100,
	}
}

// FromEnv loads .env files (if present) and builds a Config from the
// environment on top of DefaultConfig.
func FromEnv(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, errors.Wrap(err, "loading env files")
	}

	c := DefaultConfig()
	setString(&c.TableName, EnvTableName)
	setString(&c.IndexName, EnvIndexName)
	setString(&c.Region, EnvRegion)
	setString(&c.Endpoint, EnvEndpoint)
	setString(&c.AccessKey, EnvAccessKey)
	setString(&c.SecretKey, EnvSecretKey)
	setString(&c.RootKeyHex, EnvRootKey)
	setString(&c.BoltPath, EnvBoltPath)
	for name, dst := range map[string]*int{
		EnvMaxPrefixLen:      &c.MaxPrefixLen,
		EnvTransactChunkSize: &c.TransactChunkSize,
		EnvBatchGetSize:      &c.BatchGetSize,
	} {
		if err := setInt(dst, name); err != nil {
			return Config{}, err
		}
	}

	c.normalize()
	return c, c.Validate()
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	return nil
}

// normalize clamps out-of-range values and fills empty ones with defaults.
func (c *Config) normalize() {
	if c.IndexName == "" {
		c.IndexName = "TermIndex"
	}
	if c.MaxPrefixLen < 1 {
		c.MaxPrefixLen = 25
	}
	if c.MaxPrefixLen > 255 {
		c.MaxPrefixLen = 255
	}
	if c.TransactChunkSize < 1 || c.TransactChunkSize > 100 {
		c.TransactChunkSize = 100
	}
	if c.BatchGetSize < 1 || c.BatchGetSize > 100 {
		c.BatchGetSize = 100
	}
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", name)
	}
	*dst = n
	return nil
}
