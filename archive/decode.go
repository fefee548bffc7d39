package archive

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/classflow/go-classflow/classfile"
	"github.com/classflow/go-classflow/common/gopool"
)

// Result is the outcome of decoding one entry. Exactly one of Class and Err
// is set.
type Result struct {
	Name  string
	Class *classfile.ClassFile
	Err   error
}

// DecodeAll decodes every entry on the shared worker pool and returns
// results in input order. Per-entry decode failures are recorded in the
// corresponding Result; the only returned error is context cancellation or
// pool submission failure.
func DecodeAll(ctx context.Context, log *slog.Logger, entries []Entry) ([]Result, error) {
	results := make([]Result, len(entries))

	// Bound in-flight decodes so huge archives do not monopolize the
	// shared pool.
	slots := make(chan struct{}, gopool.Workers(len(entries)))

	var wg sync.WaitGroup
	for i := range entries {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		slots <- struct{}{}
		i := i
		wg.Add(1)
		if err := gopool.Submit(func() {
			defer wg.Done()
			defer func() { <-slots }()
			e := entries[i]
			cf, err := classfile.Parse(e.Data)
			if err != nil {
				log.Warn("failed to decode class", "entry", e.Name, "err", err)
				results[i] = Result{Name: e.Name, Err: err}
				return
			}
			results[i] = Result{Name: e.Name, Class: cf}
		}); err != nil {
			<-slots
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()
	return results, nil
}
