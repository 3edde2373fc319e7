package pipeline_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/galenhq/partner_ingest/internal/pipeline"
)

type coordinatorFixture struct {
	coordinator *pipeline.Coordinator
	saver       *MockRecordSaver
	store       *MockFileStore
	leaser      *MockLeaser
	lease       *MockLease
	ledger      *MockIngestionUpdater
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	saver := NewMockRecordSaver(t)
	store := NewMockFileStore(t)
	leaser := NewMockLeaser(t)
	lease := NewMockLease(t)
	ledger := NewMockIngestionUpdater(t)

	coordinator := pipeline.NewCoordinator(
		discardLogger(),
		store,
		leaser,
		newProcessor(saver, store, 10),
		ledger,
		time.Minute,
	)

	return &coordinatorFixture{
		coordinator: coordinator,
		saver:       saver,
		store:       store,
		leaser:      leaser,
		lease:       lease,
		ledger:      ledger,
	}
}

func (f *coordinatorFixture) recordedStatuses() *[]domain.Status {
	statuses := &[]domain.Status{}
	f.ledger.EXPECT().UpdateOrCreateIngestion(mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ingestion := args.Get(1).(*domain.Ingestion)
			*statuses = append(*statuses, ingestion.Status)
		}).
		Return(nil)
	return statuses
}

func TestCoordinator_AlreadyProcessed(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(true, nil).Once()

	result, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeAlreadyProcessed, result.Outcome)
	f.leaser.AssertNotCalled(t, "Obtain", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_LeaseHeldElsewhere(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(nil, pipeline.ErrLeaseHeld).Once()

	result, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSkipped, result.Outcome)
	f.store.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestCoordinator_SuccessfulRun(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	statuses := f.recordedStatuses()

	csvText := csvHeader + "EXT-001,PAT-123,Lab,2024-03-15,note,LIS\n"

	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(f.lease, nil).Once()
	f.store.EXPECT().Open(mock.Anything, "partner.csv").Return(io.NopCloser(strings.NewReader(csvText)), nil).Once()
	f.saver.EXPECT().SaveBatch(mock.Anything, mock.Anything, "partner.csv").Return(int64(1), nil).Once()
	f.store.EXPECT().MarkProcessed(mock.Anything, "partner.csv", mock.Anything).Return(nil).Once()
	f.store.EXPECT().MoveToProcessed(mock.Anything, "partner.csv").Return(nil).Once()
	f.lease.EXPECT().Release(mock.Anything).Return(nil).Once()

	result, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeProcessed, result.Outcome)
	assert.Equal(t, 1, result.RowsAccepted)
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusDone}, *statuses)
}

func TestCoordinator_PersistenceFailureQuarantines(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	statuses := f.recordedStatuses()

	csvText := csvHeader + "EXT-001,PAT-123,,,,\n"
	saveErr := errors.New("connection refused")

	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(f.lease, nil).Once()
	f.store.EXPECT().Open(mock.Anything, "partner.csv").Return(io.NopCloser(strings.NewReader(csvText)), nil).Once()
	f.saver.EXPECT().SaveBatch(mock.Anything, mock.Anything, "partner.csv").Return(int64(0), saveErr).Once()
	f.lease.EXPECT().Release(mock.Anything).Return(nil).Once()
	f.store.EXPECT().MoveToQuarantine(mock.Anything, "partner.csv", mock.Anything).Return(nil).Once()

	result, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.ErrorIs(t, err, saveErr)
	assert.Nil(t, result)

	f.store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "MoveToProcessed", mock.Anything, mock.Anything)
	f.lease.AssertNumberOfCalls(t, "Release", 1)
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusError}, *statuses)
}

func TestCoordinator_QuarantineFailureDoesNotMaskCause(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	f.recordedStatuses()

	openErr := errors.New("blob not found")

	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(f.lease, nil).Once()
	f.store.EXPECT().Open(mock.Anything, "partner.csv").Return(nil, openErr).Once()
	f.lease.EXPECT().Release(mock.Anything).Return(nil).Once()
	f.store.EXPECT().MoveToQuarantine(mock.Anything, "partner.csv", mock.Anything).
		Return(errors.New("copy failed")).
		Once()

	_, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.ErrorIs(t, err, openErr)
}

func TestCoordinator_AllRowsRejectedMarksLedgerError(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)

	var ingestions []*domain.Ingestion
	f.ledger.EXPECT().UpdateOrCreateIngestion(mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ingestions = append(ingestions, args.Get(1).(*domain.Ingestion))
		}).
		Return(nil)

	csvText := csvHeader + ",PAT-123,,,,\n"

	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(f.lease, nil).Once()
	f.store.EXPECT().Open(mock.Anything, "partner.csv").Return(io.NopCloser(strings.NewReader(csvText)), nil).Once()
	f.store.EXPECT().WriteErrorsFile(mock.Anything, "partner.csv", mock.Anything).Return(nil).Once()
	f.store.EXPECT().MarkProcessed(mock.Anything, "partner.csv", mock.Anything).Return(nil).Once()
	f.store.EXPECT().MoveToProcessed(mock.Anything, "partner.csv").Return(nil).Once()
	f.lease.EXPECT().Release(mock.Anything).Return(nil).Once()

	result, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeProcessed, result.Outcome)
	assert.False(t, result.Succeeded())

	require.Len(t, ingestions, 2)
	final := ingestions[1]
	assert.Equal(t, domain.StatusError, final.Status)
	assert.Equal(t, "all rows rejected", final.ErrorMessage)
	assert.Equal(t, 1, final.RowsRejected)
	assert.Equal(t, 0, final.RowsAccepted)
}

func TestCoordinator_LeaseReleasedWhenMarkingFails(t *testing.T) {
	t.Parallel()

	f := newCoordinatorFixture(t)
	f.recordedStatuses()

	csvText := csvHeader + "EXT-001,PAT-123,,,,\n"
	markErr := errors.New("marker write rejected")

	f.store.EXPECT().IsProcessed(mock.Anything, "partner.csv").Return(false, nil).Once()
	f.leaser.EXPECT().Obtain(mock.Anything, "partner.csv", time.Minute).Return(f.lease, nil).Once()
	f.store.EXPECT().Open(mock.Anything, "partner.csv").Return(io.NopCloser(strings.NewReader(csvText)), nil).Once()
	f.saver.EXPECT().SaveBatch(mock.Anything, mock.Anything, "partner.csv").Return(int64(1), nil).Once()
	f.store.EXPECT().MarkProcessed(mock.Anything, "partner.csv", mock.Anything).Return(markErr).Once()
	f.lease.EXPECT().Release(mock.Anything).Return(nil).Once()
	f.store.EXPECT().MoveToQuarantine(mock.Anything, "partner.csv", mock.Anything).Return(nil).Once()

	_, err := f.coordinator.ProcessFile(t.Context(), "partner.csv")
	require.ErrorIs(t, err, markErr)
	f.lease.AssertNumberOfCalls(t, "Release", 1)
}
