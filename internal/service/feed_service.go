package service

import (
	"context"
	"log"
	"sync"

	"one-percent/internal/model"
	"one-percent/internal/repository"
)

// Snapshot is one consistent view of the four reactive queries consumers
// observe: the task lists and the completion history.
type Snapshot struct {
	Priority        []model.Task
	Normal          []model.Task
	CompletedNormal []model.Task
	History         []model.CompletionRecord
}

// FeedService pushes a fresh Snapshot to every subscriber after each store
// mutation. Delivery is latest-wins over buffered channels, so a slow
// subscriber never blocks a mutation and always ends up with current state.
type FeedService struct {
	store *repository.Store
	mu    sync.Mutex
	subs  map[int]chan Snapshot
	next  int
}

func NewFeedService(store *repository.Store) *FeedService {
	return &FeedService{
		store: store,
		subs:  make(map[int]chan Snapshot),
	}
}

// Subscribe registers a snapshot stream that lives until ctx is cancelled.
// The channel is closed on unsubscribe.
func (s *FeedService) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish re-evaluates all queries and fans the result out. Query failures
// are logged and skip the publish; the next mutation retries naturally.
func (s *FeedService) Publish(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		log.Printf("[warn] feed snapshot: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot and push the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Current re-evaluates the queries and returns a one-shot snapshot without
// waking subscribers.
func (s *FeedService) Current(ctx context.Context) (Snapshot, error) {
	return s.snapshot(ctx)
}

func (s *FeedService) snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Priority, err = s.store.Tasks.ListPriority(ctx); err != nil {
		return snap, err
	}
	if snap.Normal, err = s.store.Tasks.ListNormal(ctx); err != nil {
		return snap, err
	}
	if snap.CompletedNormal, err = s.store.Tasks.ListCompletedNormal(ctx); err != nil {
		return snap, err
	}
	if snap.History, err = s.store.Completions.ListAll(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}
