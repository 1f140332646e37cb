// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reportsink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/pkg/types"
)

func newSink(t *testing.T) (*Sink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test", zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSaveStoresBlobAndMetadata(t *testing.T) {
	s, mr := newSink(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Save(ctx, Record{
		User:      "alice",
		Type:      types.KindCustomerDiscovery,
		Subject:   "Edutech",
		Timestamp: at,
		Blob:      json.RawMessage(`{"primary_domain":"Edutech","total_market_size":7000000000}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	blob, err := mr.Get("test:report:" + id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"primary_domain":"Edutech","total_market_size":7000000000}`, blob)
	assert.Equal(t, "alice", mr.HGet("test:report:"+id+":meta", "user"))
	assert.Equal(t, "customer_discovery", mr.HGet("test:report:"+id+":meta", "type"))

	members, err := mr.ZMembers("test:user:alice:reports")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, members)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	want := Record{
		ID:        id,
		User:      "alice",
		Type:      types.KindCustomerDiscovery,
		Subject:   "Edutech",
		Timestamp: at,
		Blob:      json.RawMessage(`{"primary_domain":"Edutech","total_market_size":7000000000}`),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveValidates(t *testing.T) {
	s, mr := newSink(t)
	ctx := context.Background()

	for name, rec := range map[string]Record{
		"no user":  {Type: types.KindMarketTrend, Blob: json.RawMessage(`{}`)},
		"no type":  {User: "bob", Blob: json.RawMessage(`{}`)},
		"no blob":  {User: "bob", Type: types.KindMarketTrend},
		"bad json": {User: "bob", Type: types.KindMarketTrend, Blob: json.RawMessage(`{oops`)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Save(ctx, rec)
			assert.True(t, types.IsValidation(err))
		})
	}
	assert.Empty(t, mr.Keys())
}

func TestSaveReport(t *testing.T) {
	s, _ := newSink(t)
	ctx := context.Background()
	report := types.CompetitiveReport{ProductName: "Tutorly"}

	id, err := s.SaveReport(ctx, "carol", types.KindCompetitiveAnalysis, "Tutorly", report)
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	var decoded types.CompetitiveReport
	require.NoError(t, json.Unmarshal(got.Blob, &decoded))
	assert.Equal(t, "Tutorly", decoded.ProductName)
	assert.False(t, got.Timestamp.IsZero())
}

func TestListNewestFirst(t *testing.T) {
	s, _ := newSink(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i, subject := range []string{"first", "second", "third"} {
		id, err := s.Save(ctx, Record{
			User:      "dave",
			Type:      types.KindMarketAnalysis,
			Subject:   subject,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Blob:      json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.List(ctx, "dave", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Nil(t, all[0].Blob)

	top, err := s.List(ctx, "dave", 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "third", top[0].Subject)

	n, err := s.Count(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	none, err := s.List(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetUnknown(t *testing.T) {
	s, _ := newSink(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRedisDown(t *testing.T) {
	s, mr := newSink(t)
	mr.Close()

	_, err := s.Save(context.Background(), Record{User: "erin", Type: types.KindMarketTrend, Subject: "EV", Blob: json.RawMessage(`{}`)})
	var pe *types.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.KindMarketTrend, pe.Kind)
	assert.False(t, errors.Is(err, ErrNotFound))
}
