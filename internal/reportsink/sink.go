// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reportsink stores finished reports for later retrieval by users.
// Each report is kept as a JSON blob with a metadata hash beside it, and
// every user has a sorted set of report ids ordered by timestamp.
package reportsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/pkg/types"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("report not found")

// Record is one stored report. Blob holds the report as JSON.
type Record struct {
	ID        string             `json:"id"`
	User      string             `json:"user"`
	Type      types.ArtifactKind `json:"type"`
	Subject   string             `json:"subject"`
	Timestamp time.Time          `json:"timestamp"`
	Blob      json.RawMessage    `json:"blob,omitempty"`
}

// Sink writes reports to Redis. It is safe for concurrent use.
type Sink struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// New connects a sink using cfg.
func New(cfg types.RedisConfig, logger *zap.Logger) *Sink {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix, logger)
}

// NewWithClient wraps an existing client. Keys are namespaced by prefix.
func NewWithClient(rdb *redis.Client, prefix string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "market-edge"
	}
	return &Sink{rdb: rdb, prefix: prefix, logger: logger.Named("reportsink")}
}

// Close releases the Redis connection.
func (s *Sink) Close() error { return s.rdb.Close() }

// Ping verifies Redis connectivity.
func (s *Sink) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Sink) blobKey(id string) string { return s.prefix + ":report:" + id }
func (s *Sink) metaKey(id string) string { return s.prefix + ":report:" + id + ":meta" }
func (s *Sink) userKey(user string) string {
	return s.prefix + ":user:" + user + ":reports"
}

// Save stores rec and returns its new id. A zero Timestamp is set to now.
// The blob, metadata and user index are written in one transaction.
func (s *Sink) Save(ctx context.Context, rec Record) (string, error) {
	if strings.TrimSpace(rec.User) == "" {
		return "", &types.ValidationError{Field: "user", Reason: "is required"}
	}
	if rec.Type == "" {
		return "", &types.ValidationError{Field: "type", Reason: "is required"}
	}
	if len(rec.Blob) == 0 || !json.Valid(rec.Blob) {
		return "", &types.ValidationError{Field: "blob", Reason: "must be a JSON document"}
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	id := uuid.NewString()

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.blobKey(id), []byte(rec.Blob), 0)
		p.HSet(ctx, s.metaKey(id), map[string]any{
			"user":      rec.User,
			"type":      string(rec.Type),
			"subject":   rec.Subject,
			"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
		})
		p.ZAdd(ctx, s.userKey(rec.User), redis.Z{
			Score:  float64(rec.Timestamp.UnixMilli()),
			Member: id,
		})
		return nil
	})
	if err != nil {
		return "", &types.PersistenceError{Kind: rec.Type, Subject: rec.Subject, Err: fmt.Errorf("writing to Redis: %w", err)}
	}

	s.logger.Info("report saved",
		zap.String("id", id),
		zap.String("user", rec.User),
		zap.String("type", string(rec.Type)))
	return id, nil
}

// SaveReport marshals report to JSON and saves it for user.
func (s *Sink) SaveReport(ctx context.Context, user string, kind types.ArtifactKind, subject string, report any) (string, error) {
	blob, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling %s report: %w", kind, err)
	}
	return s.Save(ctx, Record{User: user, Type: kind, Subject: subject, Blob: blob})
}

// Get returns the record stored under id, blob included.
func (s *Sink) Get(ctx context.Context, id string) (Record, error) {
	rec, err := s.meta(ctx, id)
	if err != nil {
		return Record{}, err
	}
	blob, err := s.rdb.Get(ctx, s.blobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading report %s: %w", id, err)
	}
	rec.Blob = blob
	return rec, nil
}

// List returns up to limit of user's records, newest first, without blobs.
// A limit of zero or less returns every record.
func (s *Sink) List(ctx context.Context, user string, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, s.userKey(user), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("listing reports for %s: %w", user, err)
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.meta(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Sink) meta(ctx context.Context, id string) (Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.metaKey(id)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("reading report %s metadata: %w", id, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	ts, err := time.Parse(time.RFC3339Nano, fields["timestamp"])
	if err != nil {
		return Record{}, fmt.Errorf("report %s has bad timestamp %q: %w", id, fields["timestamp"], err)
	}
	return Record{
		ID:        id,
		User:      fields["user"],
		Type:      types.ArtifactKind(fields["type"]),
		Subject:   fields["subject"],
		Timestamp: ts,
	}, nil
}

// Count returns how many reports user has stored.
func (s *Sink) Count(ctx context.Context, user string) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.userKey(user)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting reports for %s: %w", user, err)
	}
	return int(n), nil
}

// String describes the sink for logs.
func (s *Sink) String() string {
	return "redis(" + s.rdb.Options().Addr + "/" + strconv.Itoa(s.rdb.Options().DB) + ")"
}
