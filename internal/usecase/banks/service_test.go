package banks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/simaogato/transferflow/internal/domain"
)

// MockBankCatalog is a mock implementation of domain.BankCatalog for testing
type MockBankCatalog struct {
	mock.Mock
}

func (m *MockBankCatalog) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bank), args.Error(1)
}

var backendBanks = []domain.Bank{
	{Code: "058", Name: "Guaranty Trust Bank"},
	{Code: "044", Name: "Access Bank"},
	{Code: " 033 ", Name: "United Bank for Africa"},
	{Code: "", Name: "Nameless Code"},
	{Code: "999", Name: "  "},
	{Code: "044", Name: "Access Bank Duplicate"},
}

func TestDirectoryService_List(t *testing.T) {
	catalog := new(MockBankCatalog)
	catalog.On("ListBanks", mock.Anything).Return(backendBanks, nil).Once()
	service := NewDirectoryService(catalog, zaptest.NewLogger(t))

	banks, err := service.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Bank{
		{Code: "044", Name: "Access Bank"},
		{Code: "058", Name: "Guaranty Trust Bank"},
		{Code: "033", Name: "United Bank for Africa"},
	}, banks)

	// Second call is served from memory
	again, err := service.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, banks, again)
	catalog.AssertNumberOfCalls(t, "ListBanks", 1)
}

func TestDirectoryService_ConcurrentCallersShareOneFetch(t *testing.T) {
	catalog := new(MockBankCatalog)
	release := make(chan struct{})
	catalog.On("ListBanks", mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(backendBanks, nil).Once()
	service := NewDirectoryService(catalog, zaptest.NewLogger(t))

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([][]domain.Bank, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			banks, err := service.List(context.Background())
			assert.NoError(t, err)
			results[i] = banks
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	for _, banks := range results {
		assert.Len(t, banks, 3)
	}
	catalog.AssertNumberOfCalls(t, "ListBanks", 1)
}

func TestDirectoryService_FailureIsNotCached(t *testing.T) {
	catalog := new(MockBankCatalog)
	apiErr := &domain.APIError{Kind: domain.APIErrorUnavailable}
	catalog.On("ListBanks", mock.Anything).Return(nil, apiErr).Once()
	catalog.On("ListBanks", mock.Anything).Return(backendBanks, nil).Once()
	service := NewDirectoryService(catalog, zaptest.NewLogger(t))

	_, err := service.List(context.Background())
	assert.True(t, errors.Is(err, apiErr))
	assert.True(t, domain.IsUnavailable(err))

	banks, err := service.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, banks, 3)
	catalog.AssertNumberOfCalls(t, "ListBanks", 2)
}

func TestDirectoryService_Lookup(t *testing.T) {
	catalog := new(MockBankCatalog)
	catalog.On("ListBanks", mock.Anything).Return(backendBanks, nil).Once()
	service := NewDirectoryService(catalog, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		code     string
		wantName string
		wantErr  error
	}{
		{name: "Known code", code: "058", wantName: "Guaranty Trust Bank"},
		{name: "Trimmed code", code: " 033", wantName: "United Bank for Africa"},
		{name: "First duplicate wins", code: "044", wantName: "Access Bank"},
		{name: "Unknown code", code: "000", wantErr: ErrUnknownBank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := service.Lookup(context.Background(), tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, bank.Name)
		})
	}
	catalog.AssertNumberOfCalls(t, "ListBanks", 1)
}

func TestDirectoryService_SearchAndInvalidate(t *testing.T) {
	catalog := new(MockBankCatalog)
	catalog.On("ListBanks", mock.Anything).Return(backendBanks, nil).Twice()
	service := NewDirectoryService(catalog, zaptest.NewLogger(t))

	matches, err := service.Search(context.Background(), "bank")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = service.Search(context.Background(), "ACCESS")
	require.NoError(t, err)
	assert.Equal(t, []domain.Bank{{Code: "044", Name: "Access Bank"}}, matches)

	service.Invalidate()
	_, err = service.List(context.Background())
	require.NoError(t, err)
	catalog.AssertNumberOfCalls(t, "ListBanks", 2)
}
