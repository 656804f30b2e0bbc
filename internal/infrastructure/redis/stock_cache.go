package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Insumos-api/internal/application/inventory"
	"github.com/jhoicas/Insumos-api/pkg/config"
	"github.com/jhoicas/Insumos-api/pkg/logger"
)

const stockKeyPrefix = "insumos:stock:"

var _ inventory.StockCache = (*StockCache)(nil)

// NewClient abre el cliente y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// StockCache guarda el stock derivado por insumo. Es solo de lectura para GET /stock:
// cualquier error se registra y se trata como miss.
type StockCache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewStockCache crea la caché con el TTL indicado.
func NewStockCache(client *goredis.Client, ttl time.Duration, log *logger.Logger) *StockCache {
	return &StockCache{client: client, ttl: ttl, log: log}
}

func stockKey(itemID string) string {
	return stockKeyPrefix + itemID
}

func (c *StockCache) Get(ctx context.Context, itemID string) (int64, bool) {
	raw, err := c.client.Get(ctx, stockKey(itemID)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Ctx(ctx).Warn().Err(err).Str("item_id", itemID).Msg("redis: error leyendo stock")
		}
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.log.Ctx(ctx).Warn().Err(err).Str("item_id", itemID).Msg("redis: valor de stock inválido")
		return 0, false
	}
	return n, true
}

func (c *StockCache) Set(ctx context.Context, itemID string, quantity int64) {
	if err := c.client.Set(ctx, stockKey(itemID), quantity, c.ttl).Err(); err != nil {
		c.log.Ctx(ctx).Warn().Err(err).Str("item_id", itemID).Msg("redis: error guardando stock")
	}
}

func (c *StockCache) Invalidate(ctx context.Context, itemID string) {
	if err := c.client.Del(ctx, stockKey(itemID)).Err(); err != nil {
		c.log.Ctx(ctx).Warn().Err(err).Str("item_id", itemID).Msg("redis: error invalidando stock")
	}
}
