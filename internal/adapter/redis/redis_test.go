package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/site-mirror/internal/entity"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRegistry_RegisterLookupAll(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	r := NewRegistry(client, "run1", time.Hour)

	a := &entity.ResolvedReference{ResolvedURL: "http://example.com/", LocalPath: "out/example.com/index.html"}
	b := &entity.ResolvedReference{ResolvedURL: "http://example.com/b", LocalPath: "out/example.com/b"}

	ok, err := r.Register(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Register(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Register(ctx, &entity.ResolvedReference{ResolvedURL: "http://example.com/"})
	require.NoError(t, err)
	assert.False(t, ok)

	b.ContentType = "text/html"
	b.LocalPath += ".html"
	require.NoError(t, r.Update(ctx, b))

	got, err := r.Lookup(ctx, "http://example.com/b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "out/example.com/b.html", got.LocalPath)
	assert.True(t, got.IsHTML())

	missing, err := r.Lookup(ctx, "http://example.com/zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := r.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "http://example.com/", all[0].ResolvedURL)
	assert.Equal(t, "http://example.com/b", all[1].ResolvedURL)
}

func TestRegistry_RunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	ref := &entity.ResolvedReference{ResolvedURL: "http://example.com/"}

	ok, err := NewRegistry(client, "run1", 0).Register(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewRegistry(client, "run2", 0).Register(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_KeysExpire(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	r := NewRegistry(client, "run1", time.Minute)

	_, err := r.Register(ctx, &entity.ResolvedReference{ResolvedURL: "http://example.com/"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := r.Register(ctx, &entity.ResolvedReference{ResolvedURL: "http://example.com/"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_AppendEntries(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	l := NewLedger(client, "run1", time.Hour)

	target := &entity.ResolvedReference{Raw: "/a.png", ResolvedURL: "http://example.com/a.png"}
	require.NoError(t, l.Append(ctx, entity.LedgerEntry{MatchedText: `<img src="/a.png">`, Target: target}))
	require.NoError(t, l.Append(ctx, entity.LedgerEntry{MatchedText: `<img src="/a.png">`, Target: target}))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := l.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, `<img src="/a.png">`, entries[0].MatchedText)
	assert.Equal(t, "/a.png", entries[1].Target.Raw)
}

func TestRunStateFactory_SeparatesRuns(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	newState := RunStateFactory(client, 0)

	reg1, ledger1 := newState("run-a")
	reg2, _ := newState("run-b")

	ref := &entity.ResolvedReference{ResolvedURL: "http://example.com/"}
	ok, err := reg1.Register(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = reg2.Register(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ledger1.Append(ctx, entity.LedgerEntry{MatchedText: `<a href="/">x</a>`, Target: ref}))
	n, err := ledger1.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
