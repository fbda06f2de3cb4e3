package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	dbutil "github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns the points ledger. Every balance mutation goes through
// appendTx, which locks the wallet row, inserts the ledger entry and updates
// the cached projection in one transaction.
type Service struct {
	db *gorm.DB
}

// NewService constructs a wallet Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Transact runs fn in a transaction, retrying once on a transient conflict
// before surfacing ErrConcurrencyConflict. fn must be safe to re-run from
// scratch; it re-reads all state it depends on.
func Transact(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := conn.WithContext(ctx).Transaction(fn)
	if err == nil || !dbutil.IsRetryableConflict(err) {
		return err
	}
	err = conn.WithContext(ctx).Transaction(fn)
	if err != nil && dbutil.IsRetryableConflict(err) {
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	return err
}

// AppendParams describes one ledger append.
type AppendParams struct {
	WalletID    uint64
	Type        string // models.EntryTypeEarned or models.EntryTypeRedeemed.
	Points      int64  // Must be positive.
	Source      string
	Description string
	DedupKey    *string // Set for rate-limited sources.
	OrderID     *uint64
}

// AppendTx appends a ledger entry and updates the wallet projection inside an
// existing transaction. The wallet row is locked for the duration, so the
// balance check and the update cannot interleave with another writer.
func (s *Service) AppendTx(tx *gorm.DB, p AppendParams) (models.LedgerEntry, error) {
	if p.Points <= 0 {
		return models.LedgerEntry{}, fmt.Errorf("%w: points must be positive", ErrValidation)
	}
	if p.Type != models.EntryTypeEarned && p.Type != models.EntryTypeRedeemed {
		return models.LedgerEntry{}, fmt.Errorf("%w: unknown entry type %q", ErrValidation, p.Type)
	}

	var w models.Wallet
	if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&w, p.WalletID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.LedgerEntry{}, ErrWalletNotFound
		}
		return models.LedgerEntry{}, errFind
	}

	if p.Type == models.EntryTypeRedeemed && w.CurrentPoints < p.Points {
		return models.LedgerEntry{}, ErrInsufficientBalance
	}

	entry := models.LedgerEntry{
		WalletID:    w.ID,
		Type:        p.Type,
		Points:      p.Points,
		Source:      p.Source,
		Description: p.Description,
		DedupKey:    p.DedupKey,
		OrderID:     p.OrderID,
		CreatedAt:   time.Now().UTC(),
	}
	// The dedup insert runs under a savepoint: on postgres a failed INSERT
	// aborts the whole transaction, and the caller must be able to continue
	// (and commit) after an AlreadyClaimed outcome.
	if p.DedupKey != nil {
		if errSave := tx.SavePoint("ledger_append").Error; errSave != nil {
			return models.LedgerEntry{}, errSave
		}
	}
	if errCreate := tx.Create(&entry).Error; errCreate != nil {
		if p.DedupKey != nil && dbutil.IsDuplicateKey(errCreate) {
			if errRollback := tx.RollbackTo("ledger_append").Error; errRollback != nil {
				return models.LedgerEntry{}, errRollback
			}
			return models.LedgerEntry{}, ErrAlreadyClaimed
		}
		return models.LedgerEntry{}, errCreate
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if p.Type == models.EntryTypeEarned {
		updates["current_points"] = w.CurrentPoints + p.Points
		updates["total_earned"] = w.TotalEarned + p.Points
	} else {
		updates["current_points"] = w.CurrentPoints - p.Points
		updates["total_redeemed"] = w.TotalRedeemed + p.Points
	}
	if errUpdate := tx.Model(&models.Wallet{}).Where("id = ?", w.ID).Updates(updates).Error; errUpdate != nil {
		return models.LedgerEntry{}, errUpdate
	}

	return entry, nil
}

// LockWalletForUserTx loads a user's wallet under a row lock inside an
// existing transaction. Money-relevant reads must use this, not a plain read.
func (s *Service) LockWalletForUserTx(tx *gorm.DB, userID uint64) (models.Wallet, error) {
	var w models.Wallet
	if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&w).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, errFind
	}
	return w, nil
}

// Balance returns the wallet for a user without locking.
func (s *Service) Balance(ctx context.Context, userID uint64) (models.Wallet, error) {
	var w models.Wallet
	if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, errFind
	}
	return w, nil
}

// History returns ledger entries for a user, newest first.
func (s *Service) History(ctx context.Context, userID uint64, page, limit int) ([]models.LedgerEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	w, errWallet := s.Balance(ctx, userID)
	if errWallet != nil {
		return nil, 0, errWallet
	}

	var total int64
	if errCount := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("wallet_id = ?", w.ID).
		Count(&total).Error; errCount != nil {
		return nil, 0, errCount
	}

	var entries []models.LedgerEntry
	if errFind := s.db.WithContext(ctx).
		Where("wallet_id = ?", w.ID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error; errFind != nil {
		return nil, 0, errFind
	}
	return entries, total, nil
}

// CreateWalletTx creates the wallet for a new user inside an existing
// transaction, generating a unique referral code.
func (s *Service) CreateWalletTx(tx *gorm.DB, userID uint64, username string, referredBy *uint64) (models.Wallet, error) {
	for attempt := 0; attempt < 5; attempt++ {
		w := models.Wallet{
			UserID:       userID,
			ReferralCode: generateReferralCode(username),
			ReferredBy:   referredBy,
		}
		// Savepoint per attempt: a code collision must not poison the
		// surrounding registration transaction on postgres.
		if errSave := tx.SavePoint("wallet_create").Error; errSave != nil {
			return models.Wallet{}, errSave
		}
		errCreate := tx.Create(&w).Error
		if errCreate == nil {
			return w, nil
		}
		if !dbutil.IsDuplicateKey(errCreate) {
			return models.Wallet{}, errCreate
		}
		if errRollback := tx.RollbackTo("wallet_create").Error; errRollback != nil {
			return models.Wallet{}, errRollback
		}
	}
	return models.Wallet{}, fmt.Errorf("wallet: could not allocate a unique referral code")
}

// referralCodeAlphabet is the base36 alphabet used for code suffixes.
const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateReferralCode builds a JJ-prefixed share code from the username.
func generateReferralCode(username string) string {
	prefix := strings.ToUpper(strings.TrimSpace(username))
	prefix = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, prefix)
	if len(prefix) >= 3 {
		prefix = prefix[:3]
	} else if prefix == "" {
		prefix = "USR"
	}

	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = referralCodeAlphabet[rand.Intn(len(referralCodeAlphabet))]
	}
	return "JJ" + prefix + string(suffix)
}

// ValidateReferralCode resolves a referral code to its owning wallet.
func (s *Service) ValidateReferralCode(ctx context.Context, code string) (models.Wallet, bool, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return models.Wallet{}, false, nil
	}
	var w models.Wallet
	if errFind := s.db.WithContext(ctx).Where("referral_code = ?", normalized).First(&w).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Wallet{}, false, nil
		}
		return models.Wallet{}, false, errFind
	}
	return w, true, nil
}
