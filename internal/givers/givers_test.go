package givers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
)

func giverAddresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		data := make([]byte, 32)
		data[30] = byte(i >> 8)
		data[31] = byte(i)
		out[i] = address.NewAddress(0, 0, data).String()
	}
	return out
}

func poolsJSON(small, large []string) string {
	quote := func(addrs []string) string {
		q := make([]string, len(addrs))
		for i, a := range addrs {
			q[i] = fmt.Sprintf("%q", a)
		}
		return "[" + strings.Join(q, ",") + "]"
	}
	return fmt.Sprintf(`{"100": %s, "1000": %s}`, quote(small), quote(large))
}

func TestAllocate_DistinctTargets(t *testing.T) {
	pool := giverAddresses(100)
	alloc := NewAllocator(pool, rand.New(rand.NewPCG(1, 2)))

	for n := 1; n <= len(pool); n++ {
		picked, err := alloc.Allocate(n)
		require.NoError(t, err)
		require.Len(t, picked, n)

		seen := make(map[string]struct{}, n)
		for _, g := range picked {
			_, dup := seen[g]
			require.False(t, dup, "giver %s allocated twice for n=%d", g, n)
			assert.Contains(t, pool, g)
			seen[g] = struct{}{}
		}
	}
}

func TestAllocate_FourOfHundredEveryCycle(t *testing.T) {
	alloc := NewAllocator(giverAddresses(100), nil)
	for cycle := 0; cycle < 50; cycle++ {
		picked, err := alloc.Allocate(4)
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, g := range picked {
			assert.False(t, seen[g])
			seen[g] = true
		}
		assert.Len(t, seen, 4)
	}
}

func TestAllocate_TooMany(t *testing.T) {
	alloc := NewAllocator(giverAddresses(3), nil)

	_, err := alloc.Allocate(4)
	assert.ErrorIs(t, err, ErrNotEnoughGivers)

	_, err = alloc.Allocate(0)
	assert.ErrorIs(t, err, ErrNotEnoughGivers)
}

func TestAllocate_DoesNotMutatePool(t *testing.T) {
	pool := giverAddresses(10)
	snapshot := append([]string(nil), pool...)
	alloc := NewAllocator(pool, nil)

	_, err := alloc.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, snapshot, pool)
	assert.Equal(t, 10, alloc.Size())
}

func TestParsePools(t *testing.T) {
	small := giverAddresses(5)
	large := giverAddresses(8)
	withDup := append(append([]string(nil), small...), small[0])

	pools, err := ParsePools([]byte(poolsJSON(withDup, large)))
	require.NoError(t, err)
	assert.Equal(t, small, pools[100])
	assert.Len(t, pools[1000], 8)
}

func TestParsePools_Invalid(t *testing.T) {
	_, err := ParsePools([]byte(`{"100": ["nope"]}`))
	assert.Error(t, err)

	_, err = ParsePools([]byte(`{"hundred": []}`))
	assert.Error(t, err)

	_, err = ParsePools([]byte(`[`))
	assert.Error(t, err)
}

func TestPoolsSelect(t *testing.T) {
	pools := Pools{100: giverAddresses(100)}

	pool, err := pools.Select(100)
	require.NoError(t, err)
	assert.Len(t, pool, 100)

	_, err = pools.Select(1000)
	assert.ErrorIs(t, err, ErrUnknownPool)

	_, err = pools.Select(42)
	assert.ErrorIs(t, err, ErrUnknownPool)
}

func TestLoadPools_LocalThenRemote(t *testing.T) {
	doc := poolsJSON(giverAddresses(3), giverAddresses(4))

	path := filepath.Join(t.TempDir(), "givers.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	pools, err := LoadPools(context.Background(), path, "")
	require.NoError(t, err)
	assert.Len(t, pools[100], 3)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/givers.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	defer ts.Close()

	missing := filepath.Join(t.TempDir(), "absent.json")
	pools, err = LoadPools(context.Background(), missing, ts.URL+"/givers.json")
	require.NoError(t, err)
	assert.Len(t, pools[1000], 4)

	_, err = LoadPools(context.Background(), missing, ts.URL+"/other.json")
	assert.Error(t, err)

	_, err = LoadPools(context.Background(), missing, "")
	assert.Error(t, err)
}
