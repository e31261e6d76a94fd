package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/instalens/config"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_CLASSIFICATION_PREFIX = "instalens:classification:"
	VALKEY_DATASET_PREFIX        = "instalens:dataset:"
)

type ValkeyClient struct {
	Client valkey.Client
	cfg    config.ValkeyConfig

	classificationTTL time.Duration
	mu                sync.Mutex
}

func NewValkeyClient(ctx context.Context, cfg config.ValkeyConfig, classificationTTL time.Duration) (*ValkeyClient, error) {
	client, err := connectValkey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address))

	return &ValkeyClient{
		Client:            client,
		cfg:               cfg,
		classificationTTL: classificationTTL,
	}, nil
}

func connectValkey(ctx context.Context, cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient(ctx context.Context) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(ctx, vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed",
			slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

func (vc *ValkeyClient) GetClassification(ctx context.Context, text string) (models.Classification, bool, error) {
	var c models.Classification
	ok, err := vc.getJSON(ctx, ClassificationKey(text), &c)
	return c, ok, err
}

func (vc *ValkeyClient) SetClassification(ctx context.Context, text string, c models.Classification) error {
	return vc.setJSON(ctx, ClassificationKey(text), c, vc.classificationTTL)
}

// GetDataset returns the last fully annotated dataset stored for key.
func (vc *ValkeyClient) GetDataset(ctx context.Context, key string) ([]models.Record, bool, error) {
	var records []models.Record
	ok, err := vc.getJSON(ctx, DatasetKey(key), &records)
	return records, ok, err
}

func (vc *ValkeyClient) PutDataset(ctx context.Context, key string, records []models.Record) error {
	return vc.setJSON(ctx, DatasetKey(key), records, vc.cfg.DatasetTTL)
}

func (vc *ValkeyClient) getJSON(ctx context.Context, key string, out any) (bool, error) {
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Get().Key(key).Build()
	}, 3)

	raw, err := res.ToString()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		if isConnectionError(err) {
			vc.recreateClient(ctx)
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("[ValkeyClient] corrupt value at %s: %w", key, err)
	}
	return true, nil
}

func (vc *ValkeyClient) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	seconds := int64(ttl.Seconds())
	if seconds <= 0 {
		seconds = 86400
	}

	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Set().Key(key).Value(string(data)).ExSeconds(seconds).Build()
	}, 3)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient(ctx)
		}
		return err
	}
	return nil
}

// DoWithRetry builds a fresh command for every attempt; completed commands
// are recycled by the client once executed.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Client) valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		c := vc.client()
		result = c.Do(ctx, build(c))
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

// ClassificationKey hashes the text so arbitrary comment bodies make safe,
// bounded keys.
func ClassificationKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_CLASSIFICATION_PREFIX + hex.EncodeToString(sum[:])
}

func DatasetKey(key string) string {
	return VALKEY_DATASET_PREFIX + strings.ToLower(strings.TrimSpace(key))
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
