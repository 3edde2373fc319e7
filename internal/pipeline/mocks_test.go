package pipeline_test

// Hand-maintained testify mocks for the pipeline capability interfaces.

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/galenhq/partner_ingest/internal/pipeline"
	"github.com/stretchr/testify/mock"
)

func newMock(t *testing.T, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

type MockRecordSaver struct{ mock.Mock }

func NewMockRecordSaver(t *testing.T) *MockRecordSaver {
	m := &MockRecordSaver{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockRecordSaver) SaveBatch(ctx context.Context, records []*domain.CanonicalRecord, sourceFile string) (int64, error) {
	ret := m.Called(ctx, records, sourceFile)
	return ret.Get(0).(int64), ret.Error(1)
}

type MockRecordSaverExpecter struct{ m *MockRecordSaver }

func (m *MockRecordSaver) EXPECT() *MockRecordSaverExpecter { return &MockRecordSaverExpecter{m} }

func (e *MockRecordSaverExpecter) SaveBatch(ctx, records, sourceFile any) *mock.Call {
	return e.m.On("SaveBatch", ctx, records, sourceFile)
}

type MockFileStore struct{ mock.Mock }

func NewMockFileStore(t *testing.T) *MockFileStore {
	m := &MockFileStore{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockFileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	ret := m.Called(ctx, name)
	rc, _ := ret.Get(0).(io.ReadCloser)
	return rc, ret.Error(1)
}

func (m *MockFileStore) IsProcessed(ctx context.Context, name string) (bool, error) {
	ret := m.Called(ctx, name)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockFileStore) MarkProcessed(ctx context.Context, name, processingID string) error {
	return m.Called(ctx, name, processingID).Error(0)
}

func (m *MockFileStore) MoveToProcessed(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockFileStore) MoveToQuarantine(ctx context.Context, name, errorSummary string) error {
	return m.Called(ctx, name, errorSummary).Error(0)
}

func (m *MockFileStore) WriteErrorsFile(ctx context.Context, name string, doc []byte) error {
	return m.Called(ctx, name, doc).Error(0)
}

type MockFileStoreExpecter struct{ m *MockFileStore }

func (m *MockFileStore) EXPECT() *MockFileStoreExpecter { return &MockFileStoreExpecter{m} }

func (e *MockFileStoreExpecter) Open(ctx, name any) *mock.Call {
	return e.m.On("Open", ctx, name)
}

func (e *MockFileStoreExpecter) IsProcessed(ctx, name any) *mock.Call {
	return e.m.On("IsProcessed", ctx, name)
}

func (e *MockFileStoreExpecter) MarkProcessed(ctx, name, processingID any) *mock.Call {
	return e.m.On("MarkProcessed", ctx, name, processingID)
}

func (e *MockFileStoreExpecter) MoveToProcessed(ctx, name any) *mock.Call {
	return e.m.On("MoveToProcessed", ctx, name)
}

func (e *MockFileStoreExpecter) MoveToQuarantine(ctx, name, errorSummary any) *mock.Call {
	return e.m.On("MoveToQuarantine", ctx, name, errorSummary)
}

func (e *MockFileStoreExpecter) WriteErrorsFile(ctx, name, doc any) *mock.Call {
	return e.m.On("WriteErrorsFile", ctx, name, doc)
}

type MockLease struct{ mock.Mock }

func NewMockLease(t *testing.T) *MockLease {
	m := &MockLease{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockLease) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockLeaseExpecter struct{ m *MockLease }

func (m *MockLease) EXPECT() *MockLeaseExpecter { return &MockLeaseExpecter{m} }

func (e *MockLeaseExpecter) Release(ctx any) *mock.Call { return e.m.On("Release", ctx) }

type MockLeaser struct{ mock.Mock }

func NewMockLeaser(t *testing.T) *MockLeaser {
	m := &MockLeaser{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockLeaser) Obtain(ctx context.Context, name string, ttl time.Duration) (pipeline.Lease, error) {
	ret := m.Called(ctx, name, ttl)
	lease, _ := ret.Get(0).(pipeline.Lease)
	return lease, ret.Error(1)
}

type MockLeaserExpecter struct{ m *MockLeaser }

func (m *MockLeaser) EXPECT() *MockLeaserExpecter { return &MockLeaserExpecter{m} }

func (e *MockLeaserExpecter) Obtain(ctx, name, ttl any) *mock.Call {
	return e.m.On("Obtain", ctx, name, ttl)
}

type MockFileLister struct{ mock.Mock }

func NewMockFileLister(t *testing.T) *MockFileLister {
	m := &MockFileLister{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockFileLister) ListInbound(ctx context.Context) ([]string, error) {
	ret := m.Called(ctx)
	names, _ := ret.Get(0).([]string)
	return names, ret.Error(1)
}

type MockFileListerExpecter struct{ m *MockFileLister }

func (m *MockFileLister) EXPECT() *MockFileListerExpecter { return &MockFileListerExpecter{m} }

func (e *MockFileListerExpecter) ListInbound(ctx any) *mock.Call {
	return e.m.On("ListInbound", ctx)
}

type MockIngestionsProvider struct{ mock.Mock }

func NewMockIngestionsProvider(t *testing.T) *MockIngestionsProvider {
	m := &MockIngestionsProvider{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockIngestionsProvider) Ingestions(ctx context.Context) ([]*domain.Ingestion, error) {
	ret := m.Called(ctx)
	ingestions, _ := ret.Get(0).([]*domain.Ingestion)
	return ingestions, ret.Error(1)
}

type MockIngestionsProviderExpecter struct{ m *MockIngestionsProvider }

func (m *MockIngestionsProvider) EXPECT() *MockIngestionsProviderExpecter {
	return &MockIngestionsProviderExpecter{m}
}

func (e *MockIngestionsProviderExpecter) Ingestions(ctx any) *mock.Call {
	return e.m.On("Ingestions", ctx)
}

type MockIngestionUpdater struct{ mock.Mock }

func NewMockIngestionUpdater(t *testing.T) *MockIngestionUpdater {
	m := &MockIngestionUpdater{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockIngestionUpdater) UpdateOrCreateIngestion(ctx context.Context, ingestion *domain.Ingestion) error {
	return m.Called(ctx, ingestion).Error(0)
}

type MockIngestionUpdaterExpecter struct{ m *MockIngestionUpdater }

func (m *MockIngestionUpdater) EXPECT() *MockIngestionUpdaterExpecter {
	return &MockIngestionUpdaterExpecter{m}
}

func (e *MockIngestionUpdaterExpecter) UpdateOrCreateIngestion(ctx, ingestion any) *mock.Call {
	return e.m.On("UpdateOrCreateIngestion", ctx, ingestion)
}

type MockIngestionCounter struct{ mock.Mock }

func NewMockIngestionCounter(t *testing.T) *MockIngestionCounter {
	m := &MockIngestionCounter{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockIngestionCounter) AddAcceptedRows(ctx context.Context, name string, delta int64) error {
	return m.Called(ctx, name, delta).Error(0)
}

type MockIngestionCounterExpecter struct{ m *MockIngestionCounter }

func (m *MockIngestionCounter) EXPECT() *MockIngestionCounterExpecter {
	return &MockIngestionCounterExpecter{m}
}

func (e *MockIngestionCounterExpecter) AddAcceptedRows(ctx, name, delta any) *mock.Call {
	return e.m.On("AddAcceptedRows", ctx, name, delta)
}

type MockTransactor struct{ mock.Mock }

func NewMockTransactor(t *testing.T) *MockTransactor {
	m := &MockTransactor{}
	newMock(t, &m.Mock)
	return m
}

func (m *MockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Called(ctx, fn).Error(0)
}

type MockTransactorExpecter struct{ m *MockTransactor }

func (m *MockTransactor) EXPECT() *MockTransactorExpecter { return &MockTransactorExpecter{m} }

func (e *MockTransactorExpecter) WithTransaction(ctx, fn any) *mock.Call {
	return e.m.On("WithTransaction", ctx, fn)
}
