package consensus

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

// GoSelect runs Select over groups with the requested number of worker
// goroutines and streams finalized records. Each site draws from its own
// rand source seeded by the base seed and the site key, so output content
// is reproducible for a given seed regardless of thread count or shard
// assignment. Record order is not stable with threads > 1.
func GoSelect(groups []LocusSupport, seed int64, threads int, audit *Audit) <-chan Record {
	if threads < 1 {
		threads = 1
	}
	in := make(chan LocusSupport, 100)
	out := make(chan Record, 100)
	audits := make([]Audit, threads)

	wg := new(sync.WaitGroup)
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(shardAudit *Audit) {
			for ls := range in {
				rec, ok := Select(ls, rand.New(rand.NewSource(locusSeed(seed, ls.Locus.Key().String()))))
				if !ok {
					shardAudit.NoSupport++
					continue
				}
				out <- rec
			}
			wg.Done()
		}(&audits[i])
	}

	go func() {
		for i := range groups {
			in <- groups[i]
		}
		close(in)
		wg.Wait()
		for i := range audits {
			audit.Absorb(audits[i])
		}
		close(out)
	}()

	return out
}

// locusSeed mixes the base seed with the site key so every site has an
// independent, stable random stream.
func locusSeed(seed int64, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return seed ^ int64(h.Sum64())
}
