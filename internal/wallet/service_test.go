package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jjgames/storefront/internal/db"
	"github.com/jjgames/storefront/internal/models"
	"gorm.io/gorm"
)

var testDBCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestWallet(t *testing.T, conn *gorm.DB, svc *Service, userID uint64) models.Wallet {
	t.Helper()
	var w models.Wallet
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		created, errCreate := svc.CreateWalletTx(tx, userID, fmt.Sprintf("user%d", userID), nil)
		if errCreate != nil {
			return errCreate
		}
		w = created
		return nil
	})
	if errTx != nil {
		t.Fatalf("create wallet: %v", errTx)
	}
	return w
}

func walletByID(t *testing.T, conn *gorm.DB, id uint64) models.Wallet {
	t.Helper()
	var w models.Wallet
	if errFind := conn.First(&w, id).Error; errFind != nil {
		t.Fatalf("load wallet: %v", errFind)
	}
	return w
}

func TestSignupBonusGrantedExactlyOnce(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 1)

	for attempt := 0; attempt < 3; attempt++ {
		errTx := conn.Transaction(func(tx *gorm.DB) error {
			_, errBonus := svc.GrantSignupBonusTx(tx, w.ID)
			return errBonus
		})
		if errTx != nil {
			t.Fatalf("grant signup bonus attempt %d: %v", attempt, errTx)
		}
	}

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != 20 || got.TotalEarned != 20 {
		t.Fatalf("expected a single 20 point grant, got current=%d earned=%d", got.CurrentPoints, got.TotalEarned)
	}

	var entries int64
	conn.Model(&models.LedgerEntry{}).Where("wallet_id = ? AND source = ?", w.ID, models.SourceSignupBonus).Count(&entries)
	if entries != 1 {
		t.Fatalf("expected one signup ledger entry, got %d", entries)
	}
}

func TestDailyBonusOncePerDay(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 2)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first, errFirst := svc.ClaimDailyBonus(ctx, 2, now)
	if errFirst != nil {
		t.Fatalf("first claim: %v", errFirst)
	}
	if first.AlreadyClaimed || first.PointsEarned != 10 {
		t.Fatalf("first claim should grant 10 points, got %+v", first)
	}

	second, errSecond := svc.ClaimDailyBonus(ctx, 2, now.Add(3*time.Hour))
	if errSecond != nil {
		t.Fatalf("second claim: %v", errSecond)
	}
	if !second.AlreadyClaimed || second.PointsEarned != 0 {
		t.Fatalf("second claim the same day should be a no-op, got %+v", second)
	}
	if second.CurrentPoints != 10 {
		t.Fatalf("balance should stay at 10, got %d", second.CurrentPoints)
	}

	nextDay, errNext := svc.ClaimDailyBonus(ctx, 2, now.AddDate(0, 0, 1))
	if errNext != nil {
		t.Fatalf("next day claim: %v", errNext)
	}
	if nextDay.AlreadyClaimed || nextDay.CurrentPoints != 20 {
		t.Fatalf("next day claim should grant again, got %+v", nextDay)
	}

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != 20 || got.TotalEarned != 20 {
		t.Fatalf("projection mismatch: current=%d earned=%d", got.CurrentPoints, got.TotalEarned)
	}
}

func TestDuplicateAppendKeepsTransactionUsable(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 10)
	dedup := "bonus:10"

	errTx := conn.Transaction(func(tx *gorm.DB) error {
		if _, errFirst := svc.AppendTx(tx, AppendParams{
			WalletID: w.ID,
			Type:     models.EntryTypeEarned,
			Points:   15,
			Source:   models.SourceSignupBonus,
			DedupKey: &dedup,
		}); errFirst != nil {
			return errFirst
		}

		_, errDup := svc.AppendTx(tx, AppendParams{
			WalletID: w.ID,
			Type:     models.EntryTypeEarned,
			Points:   15,
			Source:   models.SourceSignupBonus,
			DedupKey: &dedup,
		})
		if !errors.Is(errDup, ErrAlreadyClaimed) {
			t.Fatalf("expected ErrAlreadyClaimed, got %v", errDup)
		}

		// The transaction must stay healthy after the duplicate and commit
		// further writes; on postgres a failed insert would otherwise have
		// aborted it.
		_, errNext := svc.AppendTx(tx, AppendParams{
			WalletID: w.ID,
			Type:     models.EntryTypeEarned,
			Points:   5,
			Source:   models.SourceAdminAdjustment,
		})
		return errNext
	})
	if errTx != nil {
		t.Fatalf("transaction after duplicate: %v", errTx)
	}

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != 20 || got.TotalEarned != 20 {
		t.Fatalf("expected both surviving appends committed, got current=%d earned=%d", got.CurrentPoints, got.TotalEarned)
	}

	var entries int64
	conn.Model(&models.LedgerEntry{}).Where("wallet_id = ?", w.ID).Count(&entries)
	if entries != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", entries)
	}
}

func TestDailyBonusConcurrentClaims(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 11)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	results := make(chan DailyBonusResult, 2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, errClaim := svc.ClaimDailyBonus(context.Background(), 11, now)
			results <- result
			errs <- errClaim
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for errClaim := range errs {
		if errClaim != nil {
			t.Fatalf("concurrent claim: %v", errClaim)
		}
	}

	granted := 0
	replayed := 0
	for result := range results {
		if result.AlreadyClaimed {
			replayed++
		} else if result.PointsEarned == 10 {
			granted++
		}
	}
	if granted != 1 || replayed != 1 {
		t.Fatalf("expected exactly one grant and one replay, got granted=%d replayed=%d", granted, replayed)
	}

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != 10 || got.TotalEarned != 10 {
		t.Fatalf("racing claims must credit once: current=%d earned=%d", got.CurrentPoints, got.TotalEarned)
	}
}

func TestAdjustDebitPastBalanceFailsCleanly(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 3)

	if _, _, errCredit := svc.Adjust(context.Background(), 3, 50, "goodwill credit"); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}

	_, _, errDebit := svc.Adjust(context.Background(), 3, -80, "bad debit")
	if !errors.Is(errDebit, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", errDebit)
	}

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != 50 || got.TotalRedeemed != 0 {
		t.Fatalf("failed debit must not move the balance: current=%d redeemed=%d", got.CurrentPoints, got.TotalRedeemed)
	}

	var entries int64
	conn.Model(&models.LedgerEntry{}).Where("wallet_id = ?", w.ID).Count(&entries)
	if entries != 1 {
		t.Fatalf("failed debit must not leave a ledger entry, got %d entries", entries)
	}
}

func TestAdjustZeroRejected(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	newTestWallet(t, conn, svc, 4)

	_, _, errAdjust := svc.Adjust(context.Background(), 4, 0, "noop")
	if !errors.Is(errAdjust, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", errAdjust)
	}
}

func TestProjectionMatchesLedger(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 5)
	ctx := context.Background()

	deltas := []int64{100, -30, 45, -10, 5}
	for i, delta := range deltas {
		if _, _, errAdjust := svc.Adjust(ctx, 5, delta, fmt.Sprintf("step %d", i)); errAdjust != nil {
			t.Fatalf("adjust %d: %v", i, errAdjust)
		}
	}

	var earned, redeemed int64
	conn.Model(&models.LedgerEntry{}).
		Where("wallet_id = ? AND type = ?", w.ID, models.EntryTypeEarned).
		Select("COALESCE(SUM(points), 0)").Scan(&earned)
	conn.Model(&models.LedgerEntry{}).
		Where("wallet_id = ? AND type = ?", w.ID, models.EntryTypeRedeemed).
		Select("COALESCE(SUM(points), 0)").Scan(&redeemed)

	got := walletByID(t, conn, w.ID)
	if got.CurrentPoints != earned-redeemed {
		t.Fatalf("projection %d != ledger %d-%d", got.CurrentPoints, earned, redeemed)
	}
	if got.TotalEarned != earned || got.TotalRedeemed != redeemed {
		t.Fatalf("counters mismatch: earned %d/%d redeemed %d/%d", got.TotalEarned, earned, got.TotalRedeemed, redeemed)
	}
	if got.CurrentPoints != 110 {
		t.Fatalf("expected balance 110, got %d", got.CurrentPoints)
	}
}

func TestReferralBonusExactlyOncePerReferredUser(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	referrer := newTestWallet(t, conn, svc, 6)

	for attempt := 0; attempt < 2; attempt++ {
		errTx := conn.Transaction(func(tx *gorm.DB) error {
			return svc.GrantReferralBonusTx(tx, referrer.ID, 7, "friend")
		})
		if errTx != nil {
			t.Fatalf("grant referral attempt %d: %v", attempt, errTx)
		}
	}

	got := walletByID(t, conn, referrer.ID)
	if got.CurrentPoints != 200 {
		t.Fatalf("expected a single 200 point referral grant, got %d", got.CurrentPoints)
	}
	if got.ReferralCount != 1 {
		t.Fatalf("referral count must move with the ledger entry, got %d", got.ReferralCount)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	newTestWallet(t, conn, svc, 8)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if _, _, errAdjust := svc.Adjust(ctx, 8, i, fmt.Sprintf("grant %d", i)); errAdjust != nil {
			t.Fatalf("adjust %d: %v", i, errAdjust)
		}
	}

	entries, total, errHistory := svc.History(ctx, 8, 1, 3)
	if errHistory != nil {
		t.Fatalf("history: %v", errHistory)
	}
	if total != 5 {
		t.Fatalf("expected 5 total entries, got %d", total)
	}
	if len(entries) != 3 {
		t.Fatalf("expected a page of 3, got %d", len(entries))
	}
	if entries[0].Points != 5 {
		t.Fatalf("expected newest entry first, got points=%d", entries[0].Points)
	}
}

func TestValidateReferralCode(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(conn)
	w := newTestWallet(t, conn, svc, 9)

	found, ok, errValidate := svc.ValidateReferralCode(context.Background(), w.ReferralCode)
	if errValidate != nil || !ok {
		t.Fatalf("expected code %q to resolve, ok=%v err=%v", w.ReferralCode, ok, errValidate)
	}
	if found.ID != w.ID {
		t.Fatalf("resolved wrong wallet: %d != %d", found.ID, w.ID)
	}

	if _, ok, _ := svc.ValidateReferralCode(context.Background(), "JJNOPE00000"); ok {
		t.Fatal("unknown code must not resolve")
	}
}
