package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	srverrors "github.com/vaultlane/vault-creator/internal/errors"
	"github.com/vaultlane/vault-creator/internal/types"
	"github.com/vaultlane/vault-creator/internal/workflow"
)

type fakeRepo struct {
	batches  []*types.BatchRequest
	accounts []types.ClaimAccount
	keys     []types.SigningKey
	statuses []types.BatchStatus
}

func (f *fakeRepo) CreateBatch(ctx context.Context, batch *types.BatchRequest,
	accounts []types.ClaimAccount, keys []types.SigningKey) error {

	f.batches = append(f.batches, batch)
	f.accounts = append(f.accounts, accounts...)
	f.keys = append(f.keys, keys...)
	return nil
}

func (f *fakeRepo) GetBatch(ctx context.Context, batchID uuid.UUID) (
	*types.BatchRequest, error) {

	for _, batch := range f.batches {
		if batch.ID == batchID {
			return batch, nil
		}
	}

	return nil, errors.New("not found")
}

func (f *fakeRepo) UpdateBatchStatus(ctx context.Context, batchID uuid.UUID,
	from, to types.BatchStatus) error {

	f.statuses = append(f.statuses, to)
	return nil
}

type fakeRun struct{}

func (fakeRun) GetID() string    { return "create-vaults-test" }
func (fakeRun) GetRunID() string { return "run-1" }
func (fakeRun) Get(ctx context.Context, valuePtr interface{}) error {
	return nil
}
func (fakeRun) GetWithOptions(ctx context.Context, valuePtr interface{},
	options client.WorkflowRunGetOptions) error {
	return nil
}

type fakeStarter struct {
	options client.StartWorkflowOptions
	input   workflow.BatchInput
	started int
}

func (f *fakeStarter) ExecuteWorkflow(ctx context.Context,
	options client.StartWorkflowOptions, wf interface{},
	args ...interface{}) (client.WorkflowRun, error) {

	f.options = options
	f.input = args[0].(workflow.BatchInput)
	f.started++
	return fakeRun{}, nil
}

func validSpecs() []types.VaultItemSpec {
	return []types.VaultItemSpec{
		{
			ProjectName: "Album One",
			OwnerWallet: "0x1111111111111111111111111111111111111111",
			Roles: []types.RoleSpec{
				{Name: "Artist", Email: "artist@example.com", SharePercent: 60},
				{Name: "Producer", Email: "producer@example.com", SharePercent: 40},
			},
		},
		{
			ProjectName: "Album Two",
			OwnerWallet: "0x2222222222222222222222222222222222222222",
			Roles: []types.RoleSpec{
				{Name: "Artist", Email: "other@example.com", SharePercent: 100},
			},
		},
	}
}

func newOrchestrator() (*fakeRepo, *fakeStarter, *Orchestrator) {
	repo := &fakeRepo{}
	starter := &fakeStarter{}

	return repo, starter, New(&Config{TaskQueue: workflow.TaskQueue}, repo, starter)
}

func TestCreateBatch_Success(t *testing.T) {
	repo, starter, o := newOrchestrator()

	batch, err := o.CreateBatch(context.Background(), "owner-1", true, validSpecs())
	require.NoError(t, err)

	require.Equal(t, types.BatchProcessing, batch.Status)
	require.Len(t, batch.Items, 2)
	require.Equal(t, 0, batch.Items[0].ItemIndex)
	require.Equal(t, types.TxCreated, batch.Items[0].TxStatus)

	// One claim account and one signing key per role.
	require.Len(t, repo.accounts, 3)
	require.Len(t, repo.keys, 3)

	require.Equal(t, 1, starter.started)
	require.Equal(t, batch.ID, starter.input.BatchID)
	require.Len(t, starter.input.ItemIDs, 2)
	require.Equal(t, workflow.TaskQueue, starter.options.TaskQueue)
}

func TestCreateBatch_DuplicateRecipient(t *testing.T) {
	repo, starter, o := newOrchestrator()

	specs := validSpecs()
	specs[1].Roles[0].Email = "Artist@Example.com" // same primary, different case

	_, err := o.CreateBatch(context.Background(), "owner-1", true, specs)

	var serviceErr srverrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, srverrors.CodeDuplicateRecipient, serviceErr.Code)

	// Validation failures persist nothing and start nothing.
	require.Empty(t, repo.batches)
	require.Zero(t, starter.started)
}

func TestCreateBatch_TermsNotAccepted(t *testing.T) {
	repo, starter, o := newOrchestrator()

	_, err := o.CreateBatch(context.Background(), "owner-1", false, validSpecs())

	var serviceErr srverrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, srverrors.CodeTermsNotAccepted, serviceErr.Code)
	require.Empty(t, repo.batches)
	require.Zero(t, starter.started)
}

func TestCreateBatch_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs []types.VaultItemSpec
	}{
		{"empty batch", nil},
		{"no roles", []types.VaultItemSpec{{ProjectName: "X"}}},
		{"missing email", []types.VaultItemSpec{{
			ProjectName: "X",
			Roles:       []types.RoleSpec{{Name: "A", SharePercent: 10}},
		}}},
		{"shares over 100", []types.VaultItemSpec{{
			ProjectName: "X",
			Roles: []types.RoleSpec{
				{Name: "A", Email: "a@example.com", SharePercent: 70},
				{Name: "B", Email: "b@example.com", SharePercent: 40},
			},
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, _, o := newOrchestrator()

			_, err := o.CreateBatch(context.Background(), "owner-1", true, tc.specs)

			var serviceErr srverrors.ServiceError
			require.ErrorAs(t, err, &serviceErr)
			require.Equal(t, srverrors.CodeInvalidItemSpec, serviceErr.Code)
			require.Empty(t, repo.batches)
		})
	}
}

func TestGetStatus(t *testing.T) {
	repo, _, o := newOrchestrator()

	batch, err := o.CreateBatch(context.Background(), "owner-1", true, validSpecs())
	require.NoError(t, err)

	repo.batches[0].Status = types.BatchSuccess

	status, err := o.GetStatus(context.Background(), batch.ID)
	require.NoError(t, err)
	require.Equal(t, types.BatchSuccess, status)
}
