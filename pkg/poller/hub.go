package poller

import (
	"log"
	"sync"

	"github.com/mironalin/carsense/pkg/obd"
)

// Subscriber receives decoded readings for its PIDs, or all readings
// when created without a filter.
type Subscriber struct {
	h           *hub
	pids        map[string]struct{}
	filterCount int
	readingChan chan obd.Reading
	closeOnce   sync.Once
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.h.unregister(s)
	})
}

func (s *Subscriber) Chan() <-chan obd.Reading {
	return s.readingChan
}

// hub fans decoded readings out to subscribers.
type hub struct {
	mu         sync.RWMutex
	submap     map[string]map[*Subscriber]struct{}
	globalSubs []*Subscriber
}

func newHub() *hub {
	return &hub{
		submap: make(map[string]map[*Subscriber]struct{}),
	}
}

func (h *hub) subscribe(pids ...string) *Subscriber {
	sub := &Subscriber{
		h:           h,
		pids:        make(map[string]struct{}, len(pids)),
		filterCount: len(pids),
		readingChan: make(chan obd.Reading, 20),
	}
	for _, pid := range pids {
		sub.pids[pid] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.filterCount == 0 {
		h.globalSubs = append(h.globalSubs, sub)
		return sub
	}
	for pid := range sub.pids {
		if _, ok := h.submap[pid]; !ok {
			h.submap[pid] = make(map[*Subscriber]struct{})
		}
		h.submap[pid][sub] = struct{}{}
	}
	return sub
}

func (h *hub) unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.filterCount == 0 {
		for i, s := range h.globalSubs {
			if s == sub {
				h.globalSubs = append(h.globalSubs[:i], h.globalSubs[i+1:]...)
				break
			}
		}
		close(sub.readingChan)
		return
	}
	for pid := range sub.pids {
		if subs, ok := h.submap[pid]; ok {
			if _, exists := subs[sub]; exists {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.submap, pid)
				}
			}
		}
	}
	close(sub.readingChan)
}

// NOTE: We send while holding RLock on h.mu. unregister acquires the
// write lock and closes sub.readingChan. Holding RLock guarantees the
// channel won't be closed mid-send, avoiding send-on-closed-channel
// panics.
func (h *hub) publish(reading obd.Reading) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.globalSubs {
		select {
		case sub.readingChan <- reading:
		default:
			log.Printf("failed to deliver reading for PID %s", reading.PID)
		}
	}
	if subs, ok := h.submap[reading.PID]; ok {
		for sub := range subs {
			select {
			case sub.readingChan <- reading:
			default:
				log.Printf("failed to deliver reading for PID %s", reading.PID)
			}
		}
	}
}
