package booking

import (
    "strconv"
    "sync"
)

// keyedLocks hands out process-local mutexes by key, used to serialize
// the conflict-check-and-insert critical section per seat (and per
// user).  Entries are reference counted and removed when idle so the
// map does not grow with the number of seats ever booked.
type keyedLocks struct {
    mu      sync.Mutex
    entries map[string]*lockEntry
}

type lockEntry struct {
    mu   sync.Mutex
    refs int
}

func newKeyedLocks() *keyedLocks {
    return &keyedLocks{entries: make(map[string]*lockEntry)}
}

func (k *keyedLocks) lock(key string) {
    k.mu.Lock()
    e, ok := k.entries[key]
    if !ok {
        e = &lockEntry{}
        k.entries[key] = e
    }
    e.refs++
    k.mu.Unlock()
    e.mu.Lock()
}

func (k *keyedLocks) unlock(key string) {
    k.mu.Lock()
    e := k.entries[key]
    e.refs--
    if e.refs == 0 {
        delete(k.entries, key)
    }
    k.mu.Unlock()
    e.mu.Unlock()
}

func seatKey(id uint64) string { return "seat:" + strconv.FormatUint(id, 10) }
func userKey(id uint64) string { return "user:" + strconv.FormatUint(id, 10) }

// lockSeatUser acquires the seat lock then the user lock.  Every caller
// uses the same order, so the pair cannot deadlock.
func (k *keyedLocks) lockSeatUser(seatID, userID uint64) func() {
    sk, uk := seatKey(seatID), userKey(userID)
    k.lock(sk)
    k.lock(uk)
    return func() {
        k.unlock(uk)
        k.unlock(sk)
    }
}
