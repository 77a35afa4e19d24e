package sensor

import (
	"context"
	"errors"
	"sync"

	"github.com/sweeney/honeybox/internal/logic"
)

// FakeResult is one scripted outcome of FakeSampler.Sample.
type FakeResult struct {
	Reading logic.Reading
	Err     error
}

// FakeSampler is a test double that returns scripted results.
type FakeSampler struct {
	mu      sync.Mutex
	results []FakeResult
	index   int
	calls   int
}

// NewFakeSampler creates a FakeSampler. Each call to Sample consumes the
// next result; the last one repeats once the script is exhausted.
func NewFakeSampler(results ...FakeResult) *FakeSampler {
	return &FakeSampler{results: results}
}

// Sample returns the next scripted result. Errors are wrapped in *Error so
// they match ErrRead like real failures do.
func (f *FakeSampler) Sample(ctx context.Context) (logic.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.results) == 0 {
		return logic.Reading{}, &Error{Op: "measure", Err: errors.New("no results configured")}
	}

	res := f.results[f.index]
	if f.index < len(f.results)-1 {
		f.index++
	}
	if res.Err != nil {
		return logic.Reading{}, &Error{Op: "measure", Err: res.Err}
	}
	return res.Reading, nil
}

// Calls returns how many times Sample was called.
func (f *FakeSampler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
