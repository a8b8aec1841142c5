package resumer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStore_RecordAndReplay(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ctx := context.Background()

	rec, err := store.RecorderWithAddress(ctx, "conv-1", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress: %v", err)
	}
	if err := rec.Record("hello "); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Record("world"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	inProgress, err := store.HasResponseInProgress(ctx, "conv-1")
	if err != nil {
		t.Fatalf("HasResponseInProgress: %v", err)
	}
	if !inProgress {
		t.Fatalf("expected response in progress before Complete")
	}

	if err := rec.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	inProgress, err = store.HasResponseInProgress(ctx, "conv-1")
	if err != nil {
		t.Fatalf("HasResponseInProgress after complete: %v", err)
	}
	if inProgress {
		t.Fatalf("expected no response in progress after Complete")
	}

	replayCh, redirect, err := store.ReplayWithAddress(ctx, "conv-1", "localhost:9000")
	if err != nil {
		t.Fatalf("ReplayWithAddress: %v", err)
	}
	if redirect != "" {
		t.Fatalf("expected no redirect for local conversation, got %q", redirect)
	}

	var replayed string
	for chunk := range replayCh {
		replayed += chunk
	}
	if replayed != "hello world" {
		t.Fatalf("replayed = %q, want %q", replayed, "hello world")
	}
}

func TestStore_RecorderWithAddress_RejectsConcurrentWriter(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ctx := context.Background()

	first, err := store.RecorderWithAddress(ctx, "conv-1", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress (first): %v", err)
	}
	if err := first.Record("in progress"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// A second writer claiming the same conversation while the first is still
	// recording must be rejected, not allowed to race or evict the first.
	_, err = store.RecorderWithAddress(ctx, "conv-1", "localhost:9000")
	if err == nil {
		t.Fatalf("expected concurrent RecorderWithAddress to be rejected")
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %T: %v", err, err)
	}

	if err := first.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Once the first recording completes, the conversation can be recorded again.
	second, err := store.RecorderWithAddress(ctx, "conv-1", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress (after completion): %v", err)
	}
	if err := second.Record("fresh"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := second.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	replayCh, _, err := store.ReplayWithAddress(ctx, "conv-1", "localhost:9000")
	if err != nil {
		t.Fatalf("ReplayWithAddress: %v", err)
	}
	var replayed string
	for chunk := range replayCh {
		replayed += chunk
	}
	if replayed != "fresh" {
		t.Fatalf("replayed = %q, want only the second recorder's content", replayed)
	}
}

func TestStore_ReplayUnknownConversationReturnsNotFound(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ctx := context.Background()

	ch, redirect, err := store.ReplayWithAddress(ctx, "never-recorded", "localhost:9000")
	if ch != nil {
		t.Fatalf("expected nil channel for unknown conversation")
	}
	if redirect != "" {
		t.Fatalf("expected no redirect, got %q", redirect)
	}
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %T: %v", err, err)
	}
}

func TestStore_CancelStream_CooperativeCancellation(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ctx := context.Background()

	rec, err := store.RecorderWithAddress(ctx, "conv-cancel", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress: %v", err)
	}

	cancelCh, err := store.CancelStream(ctx, "conv-cancel")
	if err != nil {
		t.Fatalf("CancelStream: %v", err)
	}
	select {
	case <-cancelCh:
		t.Fatalf("expected cancel channel to be open before cancellation is requested")
	default:
	}

	// Simulate the in-flight generation loop observing the cancel signal and
	// completing the recording in response.
	go func() {
		<-cancelCh
		_ = rec.Complete()
	}()

	accepted, redirect, err := store.RequestCancelWithAddress(ctx, "conv-cancel", "localhost:9000")
	if err != nil {
		t.Fatalf("RequestCancelWithAddress: %v", err)
	}
	if redirect != "" {
		t.Fatalf("expected no redirect, got %q", redirect)
	}
	if !accepted {
		t.Fatalf("expected cancellation to be accepted once registered")
	}

	select {
	case <-cancelCh:
	default:
		t.Fatalf("expected cancel channel to be closed")
	}

	// A second cancel request against an already-completed recording must not panic.
	accepted, _, err = store.RequestCancelWithAddress(ctx, "conv-cancel", "localhost:9000")
	if err != nil {
		t.Fatalf("RequestCancelWithAddress (second): %v", err)
	}
	if !accepted {
		t.Fatalf("expected second cancel request to be accepted")
	}
}

func TestWaitForClosed_TimesOutWhenRecordingNeverCompletes(t *testing.T) {
	rec := &recording{state: stateOpen}
	closed := waitForClosed(context.Background(), rec, 50*time.Millisecond)
	if closed {
		t.Fatalf("expected waitForClosed to time out on a recording that never completes")
	}
}

func TestWaitForClosed_ReturnsTrueOnceStateClosed(t *testing.T) {
	rec := &recording{state: stateClosed}
	closed := waitForClosed(context.Background(), rec, 50*time.Millisecond)
	if !closed {
		t.Fatalf("expected waitForClosed to observe an already-closed recording immediately")
	}
}

func TestStore_CancelStream_UnknownConversationReturnsClosedChannel(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ch, err := store.CancelStream(context.Background(), "never-recorded")
	if err != nil {
		t.Fatalf("CancelStream: %v", err)
	}
	select {
	case <-ch:
	default:
		t.Fatalf("expected already-closed channel for unknown conversation")
	}
}

func TestStore_Check_ReturnsOnlyActiveConversations(t *testing.T) {
	store := NewTempFileStore(t.TempDir(), time.Minute, nil)
	ctx := context.Background()

	active, err := store.RecorderWithAddress(ctx, "active", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress: %v", err)
	}
	defer active.Complete()

	finished, err := store.RecorderWithAddress(ctx, "finished", "localhost:9000")
	if err != nil {
		t.Fatalf("RecorderWithAddress: %v", err)
	}
	if err := finished.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	result, err := store.Check(ctx, []string{"active", "finished", "unknown"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(result) != 1 || result[0] != "active" {
		t.Fatalf("Check() = %v, want [active]", result)
	}
}
