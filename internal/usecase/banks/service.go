package banks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/simaogato/transferflow/internal/domain"
)

// ErrUnknownBank is returned by Lookup for a routing code not in the directory
var ErrUnknownBank = errors.New("unknown bank")

const fetchKey = "banks"

// DirectoryService holds the list of institutions reachable by inter-institution transfers
type DirectoryService struct {
	Catalog domain.BankCatalog
	Logger  *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	banks  []domain.Bank
	byCode map[string]domain.Bank
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(catalog domain.BankCatalog, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		Catalog: catalog,
		Logger:  logger,
	}
}

// List returns the banks sorted by name
// Logic:
//   - Served from memory once a fetch has succeeded
//   - Concurrent callers before that share a single backend request
//   - Failed fetches are not cached; the next call retries
//   - Entries without a code or name are dropped, duplicate codes keep the first entry
func (s *DirectoryService) List(ctx context.Context) ([]domain.Bank, error) {
	if cached := s.cached(); cached != nil {
		return append([]domain.Bank(nil), cached...), nil
	}

	v, err, shared := s.group.Do(fetchKey, func() (interface{}, error) {
		// A fetch may have completed between the check above and Do
		if cached := s.cached(); cached != nil {
			return cached, nil
		}
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.Logger.Debug("bank list fetch shared with concurrent caller")
	}
	return append([]domain.Bank(nil), v.([]domain.Bank)...), nil
}

func (s *DirectoryService) cached() []domain.Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banks
}

func (s *DirectoryService) fetch(ctx context.Context) ([]domain.Bank, error) {
	raw, err := s.Catalog.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}

	byCode := make(map[string]domain.Bank, len(raw))
	banks := make([]domain.Bank, 0, len(raw))
	for _, bank := range raw {
		bank.Code = strings.TrimSpace(bank.Code)
		bank.Name = strings.TrimSpace(bank.Name)
		if err := bank.Validate(); err != nil {
			s.Logger.Warn("skipping invalid bank entry", zap.String("code", bank.Code), zap.Error(err))
			continue
		}
		if _, dup := byCode[bank.Code]; dup {
			continue
		}
		byCode[bank.Code] = bank
		banks = append(banks, bank)
	}

	sort.SliceStable(banks, func(i, j int) bool {
		return strings.ToLower(banks[i].Name) < strings.ToLower(banks[j].Name)
	})

	s.mu.Lock()
	s.banks = banks
	s.byCode = byCode
	s.mu.Unlock()

	s.Logger.Info("bank directory loaded", zap.Int("count", len(banks)))
	return banks, nil
}

// Lookup resolves a routing code to its bank, loading the directory if needed
func (s *DirectoryService) Lookup(ctx context.Context, code string) (domain.Bank, error) {
	if _, err := s.List(ctx); err != nil {
		return domain.Bank{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	bank, ok := s.byCode[strings.TrimSpace(code)]
	if !ok {
		return domain.Bank{}, fmt.Errorf("%w: %s", ErrUnknownBank, code)
	}
	return bank, nil
}

// Search returns banks whose name contains query, case-insensitively
func (s *DirectoryService) Search(ctx context.Context, query string) ([]domain.Bank, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}

	var matches []domain.Bank
	for _, bank := range all {
		if strings.Contains(strings.ToLower(bank.Name), query) {
			matches = append(matches, bank)
		}
	}
	return matches, nil
}

// Invalidate drops the cached list so the next call refetches
func (s *DirectoryService) Invalidate() {
	s.mu.Lock()
	s.banks = nil
	s.byCode = nil
	s.mu.Unlock()
}
