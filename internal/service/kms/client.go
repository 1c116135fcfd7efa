package kms

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"docvault/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	probeTimeout   = 30 * time.Second
)

// DataKey — свежий ключ данных: открытая форма используется один раз
// и зануляется, обернутая хранится в метаданных документа.
type DataKey struct {
	Plaintext []byte
	Wrapped   []byte
	KeyID     string
}

// Client предоставляет обертку/развертку ключей данных через KMS.
// Сетевая граница: каждый вызов идет с явным таймаутом, а сбой
// транспорта отдается как ретраябельная ErrKeyServiceUnavailable.
type Client struct {
	client *kms.Client
	keyID  string
}

// NewClient создает новый экземпляр клиента KMS
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := kms.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
	}

	client := kms.New(opts)

	kmsClient := &Client{
		client: client,
		keyID:  conf.KeyID,
	}

	// Проверяем доступность ключа
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	_, err := client.DescribeKey(ctx, &kms.DescribeKeyInput{
		KeyId: aws.String(conf.KeyID),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access key %s: %w", conf.KeyID, err)
	}

	return kmsClient, nil
}

// GenerateDataKey запрашивает у KMS свежий 256-битный ключ данных
// вместе с его обернутой формой.
func (c *Client) GenerateDataKey(ctx context.Context) (*DataKey, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	out, err := c.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(c.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate data key: %v", domain.ErrKeyServiceUnavailable, err)
	}

	return &DataKey{
		Plaintext: out.Plaintext,
		Wrapped:   out.CiphertextBlob,
		KeyID:     aws.ToString(out.KeyId),
	}, nil
}

// UnwrapDataKey разворачивает обернутый ключ данных.
func (c *Client) UnwrapDataKey(ctx context.Context, wrapped []byte, keyID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(keyID),
		CiphertextBlob: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap data key: %v", domain.ErrKeyServiceUnavailable, err)
	}

	return out.Plaintext, nil
}
