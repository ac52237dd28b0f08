package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/infra/cache"
)

var _ = Describe("ResultCache", func() {
	It("namespaces keys by document", func() {
		Expect(cache.Key(42)).To(Equal("analysis:result:42"))
	})

	It("fails fast when redis is unreachable", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, err := cache.NewResultCache(ctx, "127.0.0.1:1", "", 0, time.Minute)
		Expect(err).To(MatchError(ContainSubstring("failed to connect to redis")))
	})
})
