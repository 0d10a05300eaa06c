// Package scanqueue serializes library scans behind a single background
// goroutine. Scans are heavy on disk and CPU, so only one ever runs at a
// time no matter how many are requested.
package scanqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
)

const (
	StatusQueued  = "queued"
	StatusIgnored = "ignored"
)

// Scanner runs one library scan to completion.
type Scanner interface {
	Scan(ctx context.Context, libraryID int, force bool) error
}

// LibraryStore is the slice of the library service the queue needs to flip
// the is_scanning flag around each scan.
type LibraryStore interface {
	SetScanning(ctx context.Context, libraryID int, scanning bool) error
}

// Request is one queued scan. EnqueuedAt is stamped by Enqueue.
type Request struct {
	LibraryID  int       `json:"library_id"`
	Force      bool      `json:"force"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Result reports what Enqueue did with a request.
type Result struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
}

// QueueStatus is a point-in-time snapshot for the status endpoint. Active and
// Pending carry the full requests; the scalar fields summarize them.
type QueueStatus struct {
	IsScanning       bool      `json:"is_scanning"`
	CurrentLibraryID *int      `json:"current_library_id,omitempty"`
	QueueSize        int       `json:"queue_size"`
	Active           *Request  `json:"active"`
	Pending          []Request `json:"pending"`
}

type Queue struct {
	scanner   Scanner
	libraries LibraryStore
	log       logger.Logger

	mu      sync.Mutex
	pending []Request
	current *Request

	wake     chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

func New(scanner Scanner, libraries LibraryStore) *Queue {
	return &Queue{
		scanner:   scanner,
		libraries: libraries,
		log:       logger.New(),

		wake:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (q *Queue) Start() {
	go q.run()
}

// Shutdown stops the queue after any in-flight scan finishes. Requests still
// pending are dropped.
func (q *Queue) Shutdown() {
	close(q.shutdown)
	<-q.done
}

// Enqueue adds a scan request. A request for the library currently being
// scanned is ignored; everything else is appended, including duplicates of
// requests already waiting, since a scan can be stale by the time a repeat
// request arrives.
func (q *Queue) Enqueue(req Request) Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil && q.current.LibraryID == req.LibraryID {
		return Result{
			Status:  StatusIgnored,
			Message: "Scan already in progress for this library.",
		}
	}

	req.EnqueuedAt = time.Now()
	q.pending = append(q.pending, req)

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return Result{
		Status:   StatusQueued,
		Message:  "Scan queued.",
		Position: len(q.pending),
	}
}

func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	status := QueueStatus{
		QueueSize: len(q.pending),
		Pending:   append([]Request{}, q.pending...),
	}
	if q.current != nil {
		active := *q.current
		status.Active = &active
		status.IsScanning = true
		status.CurrentLibraryID = &active.LibraryID
	}
	return status
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		select {
		case <-q.shutdown:
			return
		default:
		}

		req, ok := q.next()
		if ok {
			q.process(req)
			continue
		}

		// The timeout makes the loop observe shutdown even when no wakeups
		// arrive.
		select {
		case <-q.shutdown:
			return
		case <-q.wake:
		case <-time.After(time.Second):
		}
	}
}

func (q *Queue) next() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Request{}, false
	}

	req := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &req
	return req, true
}

func (q *Queue) process(req Request) {
	id, err := uuid.NewRandom()
	if err != nil {
		q.log.Err(err).Error("new uuid error")
	}
	log := q.log.ID(id.String()).Root(logger.Data{"library_id": req.LibraryID, "force": req.Force})
	ctx := log.WithContext(context.Background())

	// The flag always clears and the slot always frees, even when the scan
	// panics, so one bad library can't wedge the queue.
	defer func() {
		if r := recover(); r != nil {
			log.Error("scan panicked", logger.Data{"panic": fmt.Sprintf("%v", r)})
		}

		err := q.libraries.SetScanning(ctx, req.LibraryID, false)
		if err != nil {
			log.Err(err).Error("clear scanning flag error")
		}

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}()

	err = q.libraries.SetScanning(ctx, req.LibraryID, true)
	if err != nil {
		log.Err(err).Error("set scanning flag error")
		return
	}

	log.Info("scan started")

	err = q.scanner.Scan(ctx, req.LibraryID, req.Force)
	if err != nil {
		log.Err(err).Error("scan error")
		return
	}

	log.Info("scan completed")
}
