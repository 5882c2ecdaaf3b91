package cache_test

import (
	"testing"

	"github.com/serroba/sports-gateway/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	t.Run("parameter order does not matter", func(t *testing.T) {
		a := cache.Key{Sport: "football", Endpoint: "fixtures", Params: cache.Params{"league": "39", "season": "2025"}}
		b := cache.Key{Sport: "football", Endpoint: "fixtures", Params: cache.Params{"season": "2025", "league": "39"}}

		assert.Equal(t, a.String(), b.String())
	})

	t.Run("empty values are the same as absent ones", func(t *testing.T) {
		a := cache.Key{Sport: "football", Endpoint: "teams", Params: cache.Params{"league": "39", "search": ""}}
		b := cache.Key{Sport: "football", Endpoint: "teams", Params: cache.Params{"league": "39"}}

		assert.Equal(t, a.Canonical(), b.Canonical())
	})

	t.Run("sport endpoint and values all distinguish keys", func(t *testing.T) {
		base := cache.Key{Sport: "football", Endpoint: "teams", Params: cache.Params{"league": "39"}}
		variants := []cache.Key{
			{Sport: "hockey", Endpoint: "teams", Params: cache.Params{"league": "39"}},
			{Sport: "football", Endpoint: "leagues", Params: cache.Params{"league": "39"}},
			{Sport: "football", Endpoint: "teams", Params: cache.Params{"league": "40"}},
			{Sport: "football", Endpoint: "teams", Params: cache.Params{"season": "39"}},
		}

		for _, v := range variants {
			assert.NotEqual(t, base.String(), v.String(), v.Canonical())
		}
	})

	t.Run("canonical form escapes values", func(t *testing.T) {
		k := cache.Key{Sport: "football", Endpoint: "teams", Params: cache.Params{"search": "a&b=c", "country": "england"}}

		assert.Equal(t, "football|teams|country=england&search=a%26b%3Dc", k.Canonical())
	})

	t.Run("storage key is a sha256 hex digest", func(t *testing.T) {
		k := cache.Key{Sport: "football", Endpoint: "leagues"}

		assert.Len(t, k.String(), 64)
		assert.Equal(t, "football|leagues|", k.Canonical())
	})

	t.Run("query drops empty values", func(t *testing.T) {
		q := cache.Params{"league": "39", "team": ""}.Query()

		assert.Equal(t, "league=39", q.Encode())
	})
}
