package resumer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chirino/memory-service-sub009/internal/tempfiles"
)

const (
	tempFilePrefix          = "response-resume-"
	tempFileSuffix          = ".tokens"
	defaultLocatorTTL       = 10 * time.Second
	defaultLocatorRefresh   = 5 * time.Second
	defaultReplayBufferSize = 64
)

// Store is the response recorder backend implementation backed by local temp files.
type Store struct {
	tempDir        string
	retention      time.Duration
	locatorStore   LocatorStore
	locatorTTL     time.Duration
	locatorRefresh time.Duration

	mu         sync.RWMutex
	recordings map[string]*recording
}

// recordingState tracks the lifecycle of a recording independent of whether
// the writer has finished: a recording only becomes eligible for teardown
// once both the writer and every attached reader have released it.
type recordingState int

const (
	// stateOpen: the writer is still producing tokens.
	stateOpen recordingState = iota
	// stateClosing: the writer finished, but one or more readers are still replaying.
	stateClosing
	// stateClosed: writer and all readers are done; safe to delete the temp file.
	stateClosed
)

type recording struct {
	conversationID string
	path           string
	file           *os.File
	cancelCh       chan struct{}

	mu          sync.Mutex
	size        int64
	complete    bool
	completedAt time.Time
	readerCount int
	writerCount int
	state       recordingState

	refreshStop sync.Once
	stopRefresh chan struct{}
}

// Recorder writes response tokens to the active recording.
type Recorder struct {
	store  *Store
	convID string
	rec    *recording
	once   sync.Once
}

func NewTempFileStore(tempDir string, retention time.Duration, locatorStore LocatorStore) *Store {
	if strings.TrimSpace(tempDir) == "" {
		tempDir = os.TempDir()
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	if locatorStore == nil {
		locatorStore = noopLocatorStore{}
	}

	s := &Store{
		tempDir:        tempDir,
		retention:      retention,
		locatorStore:   locatorStore,
		locatorTTL:     defaultLocatorTTL,
		locatorRefresh: defaultLocatorRefresh,
		recordings:     map[string]*recording{},
	}
	s.cleanupStaleTempFiles()
	return s
}

func (s *Store) HasResponseInProgress(_ context.Context, conversationID string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(now)

	rec, ok := s.recordings[conversationID]
	if !ok {
		return false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return !rec.complete, nil
}

func (s *Store) Check(ctx context.Context, conversationIDs []string) ([]string, error) {
	active := make([]string, 0, len(conversationIDs))
	for _, id := range conversationIDs {
		inProgress, err := s.HasResponseInProgress(ctx, id)
		if err != nil {
			return nil, err
		}
		if inProgress {
			active = append(active, id)
		}
	}
	return active, nil
}

func (s *Store) RecorderWithAddress(ctx context.Context, conversationID string, advertisedAddress string) (*Recorder, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupExpiredLocked(now)

	if existing, ok := s.recordings[conversationID]; ok {
		existing.mu.Lock()
		active := existing.writerCount > 0
		existing.mu.Unlock()
		if active {
			return nil, &ConflictError{ConversationID: conversationID}
		}
	}

	file, err := tempfiles.Create(s.tempDir, tempFilePrefix+"*"+tempFileSuffix)
	if err != nil {
		return nil, err
	}

	rec := &recording{
		conversationID: conversationID,
		path:           file.Name(),
		file:           file,
		cancelCh:       make(chan struct{}),
		stopRefresh:    make(chan struct{}),
		writerCount:    1,
		state:          stateOpen,
	}
	s.recordings[conversationID] = rec

	locator := locatorFromAddress(advertisedAddress, filepath.Base(file.Name()))
	if s.locatorStore.Available() {
		if err := s.locatorStore.Upsert(ctx, conversationID, locator, s.locatorTTL); err != nil {
			return nil, err
		}
		s.startLocatorRefresh(conversationID, rec, locator)
	}

	return &Recorder{store: s, convID: conversationID, rec: rec}, nil
}

func (s *Store) ReplayWithAddress(ctx context.Context, conversationID string, advertisedAddress string) (<-chan string, string, error) {
	if s.locatorStore.Available() && strings.TrimSpace(advertisedAddress) != "" {
		locator, err := s.locatorStore.Get(ctx, conversationID)
		if err != nil {
			return nil, "", err
		}
		if locator != nil && !locator.MatchesAddress(advertisedAddress) {
			return nil, locator.Address(), nil
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.cleanupExpiredLocked(now)
	rec, ok := s.recordings[conversationID]
	s.mu.Unlock()
	if !ok {
		return nil, "", &NotFoundError{ConversationID: conversationID}
	}

	rec.mu.Lock()
	rec.readerCount++
	rec.mu.Unlock()

	ch := make(chan string, defaultReplayBufferSize)
	go s.replayFromFile(ctx, rec, ch)
	return ch, "", nil
}

// RequestCancelWithAddress signals cancellation to an active recording and
// waits up to 30 seconds for it to reach stateClosed. The wait is best-effort:
// accepted is true as soon as the cancellation is registered, even if the
// producer takes longer than the window to actually stop.
func (s *Store) RequestCancelWithAddress(ctx context.Context, conversationID string, advertisedAddress string) (accepted bool, redirect string, err error) {
	if s.locatorStore.Available() && strings.TrimSpace(advertisedAddress) != "" {
		locator, err := s.locatorStore.Get(ctx, conversationID)
		if err != nil {
			return false, "", err
		}
		if locator != nil && !locator.MatchesAddress(advertisedAddress) {
			return false, locator.Address(), nil
		}
	}

	s.mu.RLock()
	rec := s.recordings[conversationID]
	s.mu.RUnlock()
	if rec == nil {
		return false, "", &NotFoundError{ConversationID: conversationID}
	}

	select {
	case <-rec.cancelCh:
	default:
		close(rec.cancelCh)
	}

	waitForClosed(ctx, rec, 30*time.Second)
	return true, "", nil
}

// waitForClosed blocks until rec reaches stateClosed (writer and all readers
// done) or timeout elapses, whichever comes first.
func waitForClosed(ctx context.Context, rec *recording, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		rec.mu.Lock()
		closed := rec.state == stateClosed
		rec.mu.Unlock()
		if closed {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (s *Store) CancelStream(_ context.Context, conversationID string) (<-chan struct{}, error) {
	s.mu.RLock()
	rec := s.recordings[conversationID]
	s.mu.RUnlock()
	if rec == nil {
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}
	return rec.cancelCh, nil
}

func (r *Recorder) Record(token string) error {
	if token == "" {
		return nil
	}

	r.rec.mu.Lock()
	defer r.rec.mu.Unlock()

	if r.rec.complete || r.rec.file == nil {
		return nil
	}

	n, err := io.WriteString(r.rec.file, token)
	if err != nil {
		return err
	}
	r.rec.size += int64(n)
	return nil
}

func (r *Recorder) Complete() error {
	var result error
	r.once.Do(func() {
		result = r.store.complete(r.convID, r.rec)
	})
	return result
}

func (s *Store) complete(conversationID string, rec *recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(context.Background(), conversationID, rec)
}

func (s *Store) completeLocked(ctx context.Context, conversationID string, rec *recording) error {
	rec.mu.Lock()
	if rec.complete {
		rec.mu.Unlock()
		return nil
	}
	rec.complete = true
	rec.completedAt = time.Now()
	rec.writerCount = 0
	if rec.readerCount == 0 {
		rec.state = stateClosed
	} else {
		rec.state = stateClosing
	}
	file := rec.file
	rec.file = nil
	rec.mu.Unlock()

	rec.refreshStop.Do(func() {
		close(rec.stopRefresh)
	})

	if s.locatorStore.Available() {
		if err := s.locatorStore.Remove(ctx, conversationID); err != nil {
			return err
		}
	}

	if file != nil {
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) startLocatorRefresh(conversationID string, rec *recording, locator Locator) {
	if s.locatorRefresh <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.locatorRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-rec.stopRefresh:
				return
			case <-ticker.C:
				rec.mu.Lock()
				done := rec.complete
				rec.mu.Unlock()
				if done {
					return
				}
				_ = s.locatorStore.Upsert(context.Background(), conversationID, locator, s.locatorTTL)
			}
		}
	}()
}

func (s *Store) replayFromFile(ctx context.Context, rec *recording, out chan<- string) {
	defer close(out)
	defer releaseReader(rec)

	reader, err := os.Open(rec.path)
	if err != nil {
		return
	}
	defer reader.Close()

	offset := int64(0)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec.mu.Lock()
		size := rec.size
		done := rec.complete
		rec.mu.Unlock()

		if size > offset {
			chunk, readErr := readRange(reader, offset, size-offset)
			if readErr != nil {
				return
			}
			offset = size
			if len(chunk) > 0 {
				select {
				case <-ctx.Done():
					return
				case out <- string(chunk):
				}
			}
			continue
		}

		if done {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// releaseReader decrements a recording's reader count and, if the writer has
// already finished and no readers remain, moves it to stateClosed so
// cleanupExpiredLocked is free to delete the underlying temp file.
func releaseReader(rec *recording) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.readerCount > 0 {
		rec.readerCount--
	}
	if rec.complete && rec.readerCount == 0 {
		rec.state = stateClosed
	}
}

func (s *Store) cleanupExpiredLocked(now time.Time) {
	if s.retention <= 0 {
		return
	}
	for conversationID, rec := range s.recordings {
		rec.mu.Lock()
		closed := rec.state == stateClosed
		completedAt := rec.completedAt
		path := rec.path
		rec.mu.Unlock()

		// A recording still being replayed (stateClosing) is left in place
		// past retention until its last reader releases it.
		if !closed {
			continue
		}
		if now.Sub(completedAt) < s.retention {
			continue
		}
		delete(s.recordings, conversationID)
		if path != "" {
			_ = os.Remove(path)
		}
	}
}

func (s *Store) cleanupStaleTempFiles() {
	if s.retention <= 0 {
		return
	}
	if err := os.MkdirAll(s.tempDir, 0o700); err != nil {
		return
	}
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-s.retention)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, tempFilePrefix) || !strings.HasSuffix(name, tempFileSuffix) {
			continue
		}
		path := filepath.Join(s.tempDir, name)
		info, statErr := entry.Info()
		if statErr != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
}

func readRange(file *os.File, offset int64, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	if length > 1<<20 {
		length = 1 << 20
	}
	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read response recording: %w", err)
	}
	if n <= 0 {
		return nil, nil
	}
	return buf[:n], nil
}
