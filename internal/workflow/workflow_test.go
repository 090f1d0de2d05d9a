package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/vaultlane/vault-creator/internal/chain"
	"github.com/vaultlane/vault-creator/internal/types"
)

// flippingRepo reports SUBMITTED for the first status poll of each item and
// SUCCESSFUL afterwards, so the workflow has to go through at least one
// not-ready retry.
type flippingRepo struct {
	*fakeRepo
	polls map[uuid.UUID]int
}

func (f *flippingRepo) GetItem(ctx context.Context, itemID uuid.UUID) (
	*types.VaultItem, error) {

	item, err := f.fakeRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	f.polls[itemID]++
	if f.polls[itemID] == 1 {
		item.TxStatus = types.TxSubmitted
	} else {
		item.TxStatus = types.TxSuccessful
		f.fakeRepo.items[itemID].TxStatus = types.TxSuccessful
	}

	return item, nil
}

func seedBatch(repo *fakeRepo, status types.TransactionStatus, size int) (
	uuid.UUID, []uuid.UUID) {

	batchID := uuid.New()
	repo.batchStatus[batchID] = types.BatchProcessing

	itemIDs := make([]uuid.UUID, 0, size)
	for i := 0; i < size; i++ {
		itemID := seedItem(repo, status)
		repo.items[itemID].BatchID = batchID
		itemIDs = append(itemIDs, itemID)
	}

	return batchID, itemIDs
}

func TestCreateVaultsWorkflow_AllItemsSucceed(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	repo := newFakeRepo()
	batchID, itemIDs := seedBatch(repo, types.TxSuccessful, 2)

	a := newActivities(t, repo, &fakeDispatcher{})
	env.RegisterActivity(a)

	// The deploy step completes out of band in production; here it resolves
	// immediately so the workflow can walk the whole batch.
	env.OnActivity(a.CreateVault, mock.Anything, mock.Anything).
		Return(&CreationResult{Outcome: OutcomeVaultCreated}, nil).Times(2)

	env.ExecuteWorkflow(CreateVaults, BatchInput{BatchID: batchID, ItemIDs: itemIDs})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, types.BatchSuccess, repo.batchStatus[batchID])
	env.AssertExpectations(t)
}

func TestCreateVaultsWorkflow_WaitsForConfirmation(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	repo := newFakeRepo()
	batchID, itemIDs := seedBatch(repo, types.TxSubmitted, 1)
	flipping := &flippingRepo{fakeRepo: repo, polls: make(map[uuid.UUID]int)}

	encoder, err := chain.NewCallEncoder()
	require.NoError(t, err)

	a := NewActivities(&Config{FactoryAddress: factoryAddress}, flipping,
		&fakeDispatcher{}, encoder)
	env.RegisterActivity(a)

	env.OnActivity(a.CreateVault, mock.Anything, mock.Anything).
		Return(&CreationResult{Outcome: OutcomeVaultCreated}, nil)

	env.ExecuteWorkflow(CreateVaults, BatchInput{BatchID: batchID, ItemIDs: itemIDs})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.GreaterOrEqual(t, flipping.polls[itemIDs[0]], 2)
	require.Equal(t, types.BatchSuccess, repo.batchStatus[batchID])
}

func TestCreateVaultsWorkflow_RejectionFailsBatch(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	repo := newFakeRepo()
	batchID, itemIDs := seedBatch(repo, types.TxRejected, 2)

	a := newActivities(t, repo, &fakeDispatcher{})
	env.RegisterActivity(a)

	// The first item's deployment lands but the chain rejects it; the
	// status poll must stop the whole batch before item two is touched.
	env.OnActivity(a.CreateVault, mock.Anything, mock.Anything).
		Return(&CreationResult{Outcome: OutcomeVaultCreated}, nil).Once()

	env.ExecuteWorkflow(CreateVaults, BatchInput{BatchID: batchID, ItemIDs: itemIDs})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Equal(t, types.BatchRejected, repo.batchStatus[batchID])
	env.AssertExpectations(t)
}
