package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjgames/storefront/internal/models"
	"github.com/jjgames/storefront/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GrantSignupBonusTx grants the one-time registration bonus inside an existing
// transaction. A replay is a no-op: the signup dedup key admits exactly one
// entry per wallet.
func (s *Service) GrantSignupBonusTx(tx *gorm.DB, walletID uint64) (int64, error) {
	cfg := settings.CurrentPointsConfig()
	if cfg.SignupBonus <= 0 {
		return 0, nil
	}

	dedup := fmt.Sprintf("signup:%d", walletID)
	_, errAppend := s.AppendTx(tx, AppendParams{
		WalletID:    walletID,
		Type:        models.EntryTypeEarned,
		Points:      cfg.SignupBonus,
		Source:      models.SourceSignupBonus,
		Description: fmt.Sprintf("Welcome bonus: %d points for signing up", cfg.SignupBonus),
		DedupKey:    &dedup,
	})
	if errAppend != nil {
		if errors.Is(errAppend, ErrAlreadyClaimed) {
			return 0, nil
		}
		return 0, errAppend
	}
	return cfg.SignupBonus, nil
}

// GrantReferralBonusTx credits the referrer's wallet for a referred signup
// inside an existing transaction. The dedup key is the referred user's ID, so
// a re-submitted signup attempt cannot double-grant. The referral count moves
// with the ledger entry, never independently.
func (s *Service) GrantReferralBonusTx(tx *gorm.DB, referrerWalletID, referredUserID uint64, referredUsername string) error {
	cfg := settings.CurrentPointsConfig()
	if cfg.ReferralBonus <= 0 {
		return nil
	}

	dedup := fmt.Sprintf("referral:%d", referredUserID)
	_, errAppend := s.AppendTx(tx, AppendParams{
		WalletID:    referrerWalletID,
		Type:        models.EntryTypeEarned,
		Points:      cfg.ReferralBonus,
		Source:      models.SourceReferralBonus,
		Description: fmt.Sprintf("Referral bonus: %s joined with your code", referredUsername),
		DedupKey:    &dedup,
	})
	if errAppend != nil {
		if errors.Is(errAppend, ErrAlreadyClaimed) {
			return nil
		}
		return errAppend
	}

	if errCount := tx.Model(&models.Wallet{}).
		Where("id = ?", referrerWalletID).
		UpdateColumn("referral_count", gorm.Expr("referral_count + 1")).Error; errCount != nil {
		return errCount
	}
	return nil
}

// DailyBonusResult reports the outcome of a daily play claim.
type DailyBonusResult struct {
	AlreadyClaimed bool
	PointsEarned   int64
	CurrentPoints  int64
}

// ClaimDailyBonus grants the daily play bonus at most once per wallet per UTC
// calendar day. A second claim the same day returns AlreadyClaimed, not an
// error; concurrent claims are settled by the dedup unique index.
func (s *Service) ClaimDailyBonus(ctx context.Context, userID uint64, now time.Time) (DailyBonusResult, error) {
	cfg := settings.CurrentPointsConfig()
	var result DailyBonusResult

	errTx := Transact(ctx, s.db, func(tx *gorm.DB) error {
		w, errLock := s.LockWalletForUserTx(tx, userID)
		if errLock != nil {
			return errLock
		}

		dedup := fmt.Sprintf("daily:%d:%s", w.ID, now.UTC().Format("2006-01-02"))
		_, errAppend := s.AppendTx(tx, AppendParams{
			WalletID:    w.ID,
			Type:        models.EntryTypeEarned,
			Points:      cfg.DailyPlayBonus,
			Source:      models.SourceDailyPlay,
			Description: "Daily game play bonus - thank you for playing!",
			DedupKey:    &dedup,
		})
		if errAppend != nil {
			if errors.Is(errAppend, ErrAlreadyClaimed) {
				result = DailyBonusResult{AlreadyClaimed: true, CurrentPoints: w.CurrentPoints}
				return nil
			}
			return errAppend
		}

		result = DailyBonusResult{
			PointsEarned:  cfg.DailyPlayBonus,
			CurrentPoints: w.CurrentPoints + cfg.DailyPlayBonus,
		}
		return nil
	})
	if errTx != nil {
		return DailyBonusResult{}, errTx
	}
	return result, nil
}

// Adjust applies an out-of-band admin credit or debit. The sign of points
// selects the entry type; it runs through the same append contract as every
// other mutation, so a debit past the balance fails with InsufficientBalance.
func (s *Service) Adjust(ctx context.Context, userID uint64, points int64, reason string) (models.LedgerEntry, models.Wallet, error) {
	if points == 0 {
		return models.LedgerEntry{}, models.Wallet{}, fmt.Errorf("%w: adjustment must be non-zero", ErrValidation)
	}

	entryType := models.EntryTypeEarned
	magnitude := points
	if points < 0 {
		entryType = models.EntryTypeRedeemed
		magnitude = -points
	}

	description := strings.TrimSpace(reason)
	if description == "" {
		if entryType == models.EntryTypeEarned {
			description = fmt.Sprintf("Admin added %d points", magnitude)
		} else {
			description = fmt.Sprintf("Admin deducted %d points", magnitude)
		}
	}

	var entry models.LedgerEntry
	var updated models.Wallet
	errTx := Transact(ctx, s.db, func(tx *gorm.DB) error {
		w, errLock := s.LockWalletForUserTx(tx, userID)
		if errLock != nil {
			return errLock
		}

		appended, errAppend := s.AppendTx(tx, AppendParams{
			WalletID:    w.ID,
			Type:        entryType,
			Points:      magnitude,
			Source:      models.SourceAdminAdjustment,
			Description: description,
		})
		if errAppend != nil {
			return errAppend
		}
		entry = appended

		return tx.Where("id = ?", w.ID).First(&updated).Error
	})
	if errTx != nil {
		return models.LedgerEntry{}, models.Wallet{}, errTx
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"points":  points,
		"type":    entryType,
	}).Info("admin points adjustment applied")

	return entry, updated, nil
}
