package server

import (
	"sync"
	"testing"

	"github.com/motorsights/epcbook/internal/taxonomy"
)

func TestJobStoreGetReturnsCopy(t *testing.T) {
	store := newJobStore()
	created := store.create("book.pdf", "/tmp/book.pdf", taxonomy.PartbookAxleDrive)

	job, ok := store.get(created.ID)
	if !ok {
		t.Fatal("job not found")
	}
	job.Status = JobFailed
	job.Error = "mutated caller copy"

	fresh, _ := store.get(created.ID)
	if fresh.Status != JobPending {
		t.Errorf("status = %s, stored job must not see caller mutations", fresh.Status)
	}
	if fresh.Error != "" {
		t.Errorf("error = %q, stored job must not see caller mutations", fresh.Error)
	}
}

func TestJobStoreUpdateReturnsSnapshot(t *testing.T) {
	store := newJobStore()
	created := store.create("book.pdf", "/tmp/book.pdf", taxonomy.PartbookEngine)

	updated, ok := store.update(created.ID, func(j *Job) { j.Status = JobExtracting })
	if !ok {
		t.Fatal("job not found")
	}
	if updated.Status != JobExtracting {
		t.Errorf("status = %s, want %s", updated.Status, JobExtracting)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("update did not refresh the timestamp")
	}

	if _, ok := store.update("no-such-job", func(j *Job) {}); ok {
		t.Error("update of unknown job reported ok")
	}
}

// Readers encode job snapshots while the extraction goroutine advances the
// status. Run with the race detector to verify the store never hands out a
// struct that is still being written.
func TestJobStoreConcurrentReadUpdate(t *testing.T) {
	store := newJobStore()
	created := store.create("book.pdf", "/tmp/book.pdf", taxonomy.PartbookTransmission)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			store.update(created.ID, func(j *Job) {
				j.Status = JobExtracting
				j.Error = ""
			})
		}
	}()

	for i := 0; i < 500; i++ {
		job, ok := store.get(created.ID)
		if !ok {
			t.Fatal("job disappeared")
		}
		if job.Status != JobPending && job.Status != JobExtracting {
			t.Fatalf("unexpected status %s", job.Status)
		}
	}
	wg.Wait()
}
