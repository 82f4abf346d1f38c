package codec

import (
	"sync"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// job is one unit of encode work submitted to the Pool.
type job struct {
	codec  Codec
	points model.Points
	opts   Options
	result chan<- encodeResult
}

type encodeResult struct {
	bytes []byte
	err   error
}

// Pool runs encode work on a bounded number of goroutines. Encode is
// reentrant: many goroutines may call it concurrently for distinct
// (stream_id, layer) keys. Ordering within one (stream_id, layer) is the
// caller's responsibility — as long as a caller issues its next Encode
// call for a given key only after the previous one for that key has
// returned (true of every call site in this repo, each stream having a
// single scheduler goroutine), results for that key arrive in submission
// order even though the pool itself processes jobs out of order.
type Pool struct {
	work chan job
	wg   sync.WaitGroup
}

// NewPool starts a worker pool with the given concurrency.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	p := &Pool{work: make(chan job, workers*4)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return p
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for j := range p.work {
		b, err := j.codec.Encode(j.points, j.opts)
		j.result <- encodeResult{bytes: b, err: err}
	}
}

// Encode submits points for encoding and blocks until the result is ready.
func (p *Pool) Encode(c Codec, points model.Points, opts Options) ([]byte, error) {
	result := make(chan encodeResult, 1)
	p.work <- job{codec: c, points: points, opts: opts, result: result}
	r := <-result
	return r.bytes, r.err
}

// Close stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	close(p.work)
	p.wg.Wait()
}
