// Package analytics keeps live per-day sales counters in Redis, fed by the
// OrderCompleted stream. The order table stays authoritative; these counters
// back the dashboard without scanning every order.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/restobill/internal/kafka"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	fieldTotalCents = "total_cents"
	fieldOrders     = "orders"
)

type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	Location    *time.Location
	ServiceName string
}

// HandleOrderCompleted dipasang sebagai handler consumer.
func (s *Service) HandleOrderCompleted(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and commit so the partition keeps moving
		s.Log.Error("undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderCompleted {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCompletedPayload](env.Payload)
	if err != nil {
		s.Log.Error("undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	fresh, err := s.Redis.SetNX(ctx, dkey, p.OrderID, redisx.TTLDedup).Result()
	if err != nil {
		return err
	}
	if !fresh {
		s.Log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	// 3) counters per hari
	if err := s.record(ctx, p); err != nil {
		// let the redelivery count it
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	s.Log.Info("sale recorded",
		zap.String("order_id", p.OrderID),
		zap.String("total", p.Total.StringFixed(2)),
		zap.String("trace_id", env.TraceID))
	return nil
}

func (s *Service) record(ctx context.Context, p orders.OrderCompletedPayload) error {
	day := p.Timestamp.In(s.location()).Format(time.DateOnly)
	key := fmt.Sprintf(redisx.KeySalesDay, day)
	cents := p.Total.Shift(2).Round(0).IntPart()

	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldTotalCents, cents)
		pipe.HIncrBy(ctx, key, fieldOrders, 1)
		pipe.Expire(ctx, key, redisx.TTLSalesDay)
		return nil
	})
	return err
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Counters reads the live daily sales written by Service.
type Counters struct {
	Redis    *redis.Client
	Location *time.Location
}

// DailySales returns the last `days` calendar days ending at now, oldest
// first. Days without sales are included with zero values.
func (c Counters) DailySales(ctx context.Context, days int, now time.Time) ([]orders.DaySales, error) {
	if days <= 0 {
		days = 7
	}
	if days > redisx.SalesDaysKept {
		days = redisx.SalesDaysKept
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	dates := make([]string, days)
	cmds := make([]*redis.MapStringStringCmd, days)
	pipe := c.Redis.Pipeline()
	for i := 0; i < days; i++ {
		dates[i] = now.AddDate(0, 0, i-days+1).Format(time.DateOnly)
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(redisx.KeySalesDay, dates[i]))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([]orders.DaySales, days)
	for i, cmd := range cmds {
		h := cmd.Val()
		ds := orders.DaySales{Date: dates[i], Sales: decimal.Zero}
		if v, ok := h[fieldTotalCents]; ok {
			cents, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("sales %s: %w", dates[i], err)
			}
			ds.Sales = cents.Shift(-2)
		}
		if v, ok := h[fieldOrders]; ok {
			ds.Orders = cast.ToInt(v)
		}
		out[i] = ds
	}
	return out, nil
}
