package session

import (
	"slices"
	"sync"
	"time"

	"sponsorama/pkg/contracts/domain"
)

// Snapshot is an immutable version of a Dataset.
type Snapshot struct {
	Version   uint64
	UpdatedAt time.Time
	records   []domain.CampaignRecord
}

// Records returns a copy of the snapshot's records in insertion order.
func (s Snapshot) Records() []domain.CampaignRecord {
	return slices.Clone(s.records)
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.records)
}

// Dataset is the working set of campaign records of one session. It only grows by
// whole batches and is only emptied by Clear. Every change publishes a new snapshot.
type Dataset struct {
	mu      sync.RWMutex
	current Snapshot
	now     func() time.Time
}

// NewDataset creates an empty dataset at version 0.
func NewDataset() *Dataset {
	d := &Dataset{now: time.Now}
	d.current = Snapshot{UpdatedAt: d.now(), records: []domain.CampaignRecord{}}
	return d
}

// Append adds a batch after the existing records. An empty batch changes nothing.
func (d *Dataset) Append(batch []domain.CampaignRecord) Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(batch) == 0 {
		return d.current
	}

	// Always a fresh backing array, so earlier snapshots never observe the batch.
	records := make([]domain.CampaignRecord, 0, len(d.current.records)+len(batch))
	records = append(records, d.current.records...)
	records = append(records, batch...)

	d.current = Snapshot{
		Version:   d.current.Version + 1,
		UpdatedAt: d.now(),
		records:   records,
	}
	return d.current
}

// Clear empties the dataset.
func (d *Dataset) Clear() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.current = Snapshot{
		Version:   d.current.Version + 1,
		UpdatedAt: d.now(),
		records:   []domain.CampaignRecord{},
	}
	return d.current
}

// Snapshot returns the current snapshot.
func (d *Dataset) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}
