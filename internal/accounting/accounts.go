package accounting

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CreateAccount registers a new account. The normal balance defaults from the
// account type unless the input overrides it.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	normal := input.NormalBalance
	if normal == "" {
		normal = input.Type.DefaultNormalBalance()
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		code := strings.TrimSpace(input.Code)
		if _, err := tx.GetAccountByCode(ctx, input.CompanyID, code); err == nil {
			return &ConflictError{Entity: "account", Message: "code " + code + " already exists"}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		now := s.now()
		var err error
		account, err = tx.InsertAccount(ctx, Account{
			CompanyID:     input.CompanyID,
			Code:          code,
			Name:          strings.TrimSpace(input.Name),
			Type:          input.Type,
			SubType:       input.SubType,
			NormalBalance: normal,
			Balance:       decimal.Zero,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("account created", slog.Int64("company_id", account.CompanyID), slog.String("code", account.Code))
	return account, nil
}

// GetAccount returns one account of the company.
func (s *Service) GetAccount(ctx context.Context, companyID, accountID int64) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.GetAccount(ctx, companyID, accountID)
		return err
	})
	return account, err
}

// ListAccounts returns the company's accounts ordered by code.
func (s *Service) ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// ArchiveAccount deactivates an account. Archived accounts keep their history
// but cannot appear on new entries.
func (s *Service) ArchiveAccount(ctx context.Context, companyID, accountID, actorID int64) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.GetAccount(ctx, companyID, accountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return nil
		}
		if err := tx.SetAccountActive(ctx, companyID, accountID, false); err != nil {
			return err
		}
		account.IsActive = false
		account.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, companyID, actorID, "account.archive", "account", accountID, map[string]any{"code": account.Code})
	return account, nil
}

// DeleteAccount removes an account that has never been posted to.
func (s *Service) DeleteAccount(ctx context.Context, companyID, accountID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccount(ctx, companyID, accountID)
		if err != nil {
			return err
		}
		rows, err := tx.CountLedgerRows(ctx, companyID, accountID)
		if err != nil {
			return err
		}
		if rows > 0 {
			return &ConflictError{Entity: "account", Message: "account " + account.Code + " has ledger history; archive it instead"}
		}
		return tx.DeleteAccount(ctx, companyID, accountID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, companyID, actorID, "account.delete", "account", accountID, nil)
	return nil
}

// loadLineAccounts locks the accounts referenced by lines in ascending id order
// and checks that each one belongs to the company.
func loadLineAccounts(ctx context.Context, tx TxRepository, companyID int64, lines []JournalLineInput, requireActive bool) (map[int64]Account, error) {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	locked, err := tx.LockAccounts(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	accounts := make(map[int64]Account, len(locked))
	for _, account := range locked {
		accounts[account.ID] = account
	}
	for i, line := range lines {
		account, ok := accounts[line.AccountID]
		if !ok {
			return nil, &LineError{Index: i, Reason: "account does not exist for this company"}
		}
		if requireActive && !account.IsActive {
			return nil, &LineError{Index: i, Reason: "account " + account.Code + " is archived"}
		}
	}
	return accounts, nil
}
