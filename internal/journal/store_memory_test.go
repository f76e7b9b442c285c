package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "aidantsconnect/pkg/domain-errors"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	err := store.Append(context.Background(), Entry{Action: ActionMandatCreated})
	require.NoError(t, err)

	all := store.All()
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestSecondResolutionForSameKeyConflicts(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentAgreementReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	}))

	err := store.Append(ctx, Entry{
		Action: ActionConsentDenialReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	})
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeConflict))

	// The first resolution is untouched.
	res, err := store.FindConsentResolution(ctx, "+33800840800", "T1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ActionConsentAgreementReceived, res.Action)
}

func TestResolutionsForDistinctKeysDoNotConflict(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentAgreementReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	}))
	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentAgreementReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T2",
	}))
	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentDenialReceived,
		Phone:  "+33611223344", ConsentRequestTag: "T1",
	}))
}

// Concurrent duplicate appends for one key must admit exactly one winner.
func TestConcurrentResolutionAppends(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		action := ActionConsentAgreementReceived
		if i%2 == 1 {
			action = ActionConsentDenialReceived
		}
		wg.Add(1)
		go func(a Action) {
			defer wg.Done()
			err := store.Append(ctx, Entry{Action: a, Phone: "+33800840800", ConsentRequestTag: "T1"})
			if err == nil {
				successCount.Add(1)
			}
		}(action)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load(), "exactly one append should win")
	assert.Equal(t, 1, store.Len())
}

func TestFindConsentRequestIgnoresResolutions(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentAgreementReceived,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	}))

	req, err := store.FindConsentRequest(ctx, "+33800840800", "T1")
	require.NoError(t, err)
	assert.Nil(t, req)

	require.NoError(t, store.Append(ctx, Entry{
		Action: ActionConsentRequestSent,
		Phone:  "+33800840800", ConsentRequestTag: "T1",
	}))
	req, err = store.FindConsentRequest(ctx, "+33800840800", "T1")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, ActionConsentRequestSent, req.Action)
}

func TestListByUsager(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	usagerID := uuid.New()
	otherID := uuid.New()

	require.NoError(t, store.Append(ctx, Entry{Action: ActionMandatCreated, UsagerID: Ref(usagerID), Demarche: "argent"}))
	require.NoError(t, store.Append(ctx, Entry{Action: ActionMandatCreated, UsagerID: Ref(otherID), Demarche: "famille"}))
	require.NoError(t, store.Append(ctx, Entry{Action: ActionAutorisationCancelled, UsagerID: Ref(usagerID)}))

	entries, err := store.ListByUsager(ctx, usagerID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionMandatCreated, entries[0].Action)
	assert.Equal(t, "argent", entries[0].Demarche)
	assert.Equal(t, ActionAutorisationCancelled, entries[1].Action)
}
