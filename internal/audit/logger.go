package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Entry records one operation against a session. It never carries secret
// bytes: salts, PRKs and key material stay out of the audit trail.
type Entry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Operation   string            `json:"operation"`
	SessionID   string            `json:"session_id,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	Status      string            `json:"status"`
	PeerAddress string            `json:"peer_address,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Record is the caller-supplied part of an Entry.
type Record struct {
	Operation   string
	SessionID   string
	Subject     string
	Status      string
	PeerAddress string
	Metadata    map[string]string
}

// Filter selects entries in Query. Zero fields match everything.
type Filter struct {
	SessionID string
	Operation string
	Start     time.Time
	End       time.Time
	Limit     int
}

// Subscriber receives audit entries via a channel.
type Subscriber struct {
	C  chan Entry
	id string
}

// Logger is an async audit logger that decouples the critical path from log writes.
type Logger struct {
	entries chan Entry
	out     io.Writer

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	store       []Entry
	retain      int

	dropped atomic.Uint64
	done    chan struct{}

	closeMu sync.RWMutex
	closed  bool
}

// NewLogger creates a logger with the given buffer size and output writer.
// At most retain entries are kept for Query; zero keeps everything.
func NewLogger(bufferSize, retain int, out io.Writer) *Logger {
	l := &Logger{
		entries:     make(chan Entry, bufferSize),
		out:         out,
		retain:      retain,
		subscribers: make(map[string]*Subscriber),
		done:        make(chan struct{}),
	}
	go l.processLoop()
	return l
}

// Log sends a record to the async processing pipeline. It never blocks:
// when the buffer is full or the logger is closed the record is dropped
// and counted.
func (l *Logger) Log(r Record) {
	entry := Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Operation:   r.Operation,
		SessionID:   r.SessionID,
		Subject:     r.Subject,
		Status:      r.Status,
		PeerAddress: r.PeerAddress,
		Metadata:    r.Metadata,
	}

	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		slog.Warn("audit log closed, dropping entry", "operation", r.Operation)
		return
	}

	select {
	case l.entries <- entry:
	default:
		l.dropped.Add(1)
		slog.Warn("audit log buffer full, dropping entry", "operation", r.Operation)
	}
}

// Dropped reports how many records were discarded because the buffer was full.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Subscribe creates a new subscriber that receives entries via a buffered channel.
func (l *Logger) Subscribe() *Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &Subscriber{
		C:  make(chan Entry, 64),
		id: uuid.NewString(),
	}
	l.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber.
func (l *Logger) Unsubscribe(sub *Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.subscribers, sub.id)
	close(sub.C)
}

// Query returns stored entries matching f, newest first.
func (l *Logger) Query(f Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Entry
	for i := len(l.store) - 1; i >= 0; i-- {
		e := l.store[i]
		if !f.match(e) {
			continue
		}
		results = append(results, e)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results
}

func (f Filter) match(e Entry) bool {
	switch {
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.Operation != "" && e.Operation != f.Operation:
		return false
	case !f.Start.IsZero() && e.Timestamp.Before(f.Start):
		return false
	case !f.End.IsZero() && e.Timestamp.After(f.End):
		return false
	}
	return true
}

// Close stops the processing loop and waits for it to finish. Records
// logged after Close are dropped. Close may be called more than once.
func (l *Logger) Close() {
	l.closeMu.Lock()
	if !l.closed {
		l.closed = true
		close(l.entries)
	}
	l.closeMu.Unlock()
	<-l.done
}

func (l *Logger) processLoop() {
	defer close(l.done)

	for entry := range l.entries {
		l.mu.Lock()
		l.store = append(l.store, entry)
		if l.retain > 0 && len(l.store) > l.retain {
			l.store = slices.Delete(l.store, 0, len(l.store)-l.retain)
		}
		l.mu.Unlock()

		if l.out != nil {
			data, err := json.Marshal(entry)
			if err != nil {
				slog.Error("audit marshal", "error", err)
				continue
			}
			fmt.Fprintf(l.out, "%s\n", data)
		}

		// Fan-out to subscribers (non-blocking)
		l.mu.RLock()
		for _, sub := range l.subscribers {
			select {
			case sub.C <- entry:
			default:
				// subscriber too slow, drop
			}
		}
		l.mu.RUnlock()
	}
}
