package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pg          *pgxpool.Pool
	pingTimeout time.Duration
	log         *slog.Logger
}

func New(pool *pgxpool.Pool, pingTimeout time.Duration) *Postgres {
	return &Postgres{
		pg:          pool,
		pingTimeout: pingTimeout,
		log:         slog.With("component", "db"),
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	ticker := time.NewTicker(p.pingTimeout)
	defer ticker.Stop()

	var err error
	// Ping 3 times with a specified time interval. An unbounded ping hangs
	// indefinitely, so every attempt gets a context slightly shorter than
	// the interval.
	for i := 1; i <= 3; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout-10*time.Millisecond)
		if err = p.pg.Ping(pingCtx); err == nil {
			cancel()
			return nil
		}
		cancel()

		p.log.Info("ping attempt was not successful", "attempt", i)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return err
}
