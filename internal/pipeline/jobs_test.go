package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/element"
	"github.com/dgallion1/docgraph/internal/graph"
)

func TestNewJob(t *testing.T) {
	params := config.MustResolve(config.LegalContract)
	job := NewJob("lease.pdf", "", []byte("data"), params, true)

	id, err := uuid.Parse(job.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, job.ID, job.DocID)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, config.LegalContract, job.DocType)
	assert.Equal(t, []byte("data"), job.FileData())

	other := NewJob("lease.pdf", "contract-7", nil, params, false)
	assert.Equal(t, "contract-7", other.DocID)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestJobStateTransitions(t *testing.T) {
	job := NewJob("a.txt", "", nil, config.MustResolve(config.Generic), false)

	for _, s := range []JobStatus{StatusExtracting, StatusStructuring, StatusPublishing, StatusCompleted} {
		before := job.Snapshot().UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(s, string(s))

		snap := job.Snapshot()
		assert.Equal(t, s, snap.Status)
		assert.Equal(t, string(s), snap.Phase)
		assert.True(t, snap.UpdatedAt.After(before), s)
	}
}

func TestJobErrorsAreCopied(t *testing.T) {
	job := NewJob("a.txt", "", nil, config.MustResolve(config.Generic), false)
	job.AddError("first")

	snap := job.Snapshot()
	snap.Progress.Errors[0] = "changed"
	job.AddError("second")

	assert.Equal(t, []string{"first", "second"}, job.Snapshot().Progress.Errors)
}

func TestJobResult(t *testing.T) {
	job := NewJob("a.txt", "", []byte("x"), config.MustResolve(config.Generic), false)
	assert.Nil(t, job.Result())

	els := []element.ParsedElement{
		{Type: element.TypeSection, Level: 1, Text: "Heading"},
		{Type: element.TypeParagraph, Level: 2, Text: "Body"},
	}
	doc, err := graph.Assemble(els, config.MustResolve(config.Generic), graph.Options{})
	require.NoError(t, err)

	job.SetFragments(2)
	job.SetResult(doc, true)
	job.SetPublished(3)
	job.releaseFileData()

	snap := job.Snapshot()
	assert.Same(t, doc, job.Result())
	assert.Equal(t, 2, snap.Progress.Fragments)
	assert.Equal(t, 3, snap.Progress.Nodes)
	assert.Equal(t, 3, snap.Progress.Published)
	assert.True(t, snap.Progress.CacheHit)
	assert.Nil(t, job.FileData())
}

func TestJobStoreCleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	params := config.MustResolve(config.Generic)

	fresh := NewJob("a.txt", "", nil, params, false)
	stale := NewJob("b.txt", "", nil, params, false)
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	store.Put(fresh)
	store.Put(stale)
	require.Equal(t, 2, store.Len())

	store.Cleanup()

	assert.Equal(t, 1, store.Len())
	assert.Same(t, fresh, store.Get(fresh.ID))
	assert.Nil(t, store.Get(stale.ID))
}
