package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/accessgate/internal/models"
)

// feed fans out entry changes to observers keyed by entry id. A nil entry
// means the entry was deleted.
type feed struct {
	mu   sync.Mutex
	subs map[string]map[int]chan *models.AuthEntry
	next int
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[int]chan *models.AuthEntry)}
}

func (f *feed) subscribe(id string) (<-chan *models.AuthEntry, func()) {
	ch := make(chan *models.AuthEntry, 1)

	f.mu.Lock()
	key := f.next
	f.next++
	if f.subs[id] == nil {
		f.subs[id] = make(map[int]chan *models.AuthEntry)
	}
	f.subs[id][key] = ch
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs[id], key)
		if len(f.subs[id]) == 0 {
			delete(f.subs, id)
		}
		f.mu.Unlock()
	}
}

// publish delivers the latest state of an entry. Slow observers only ever
// see the most recent value.
func (f *feed) publish(id string, entry *models.AuthEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[id] {
		var v *models.AuthEntry
		if entry != nil {
			e := *entry
			v = &e
		}
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// observe emits the current value of the entry and then every change until
// ctx is done.
func (f *feed) observe(ctx context.Context, id string, load func(context.Context, string) (*models.AuthEntry, error)) (<-chan *models.AuthEntry, error) {
	updates, cancel := f.subscribe(id)
	current, err := load(ctx, id)
	if err != nil && !errors.Is(err, models.ErrEntryNotFound) {
		cancel()
		return nil, err
	}

	out := make(chan *models.AuthEntry, 1)
	out <- current
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-updates:
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
