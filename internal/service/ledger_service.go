package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/apperror"
	"campus-coin-ledger/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL      = 24 * time.Hour
	maxCouponAttempts   = 5
	defaultTransferMemo = "coin transfer"
	redemptionMemo      = "Reward redemption: "

	opTransfer       = "transfer"
	opRedeem         = "redeem"
	opValidateCoupon = "validate_coupon"
	opTopUp          = "top_up"
)

// LedgerServiceDeps groups the collaborators of LedgerServiceImpl.
// Idempotency, IdempCache and Coupons may be nil; Notifier and Events
// default to no-ops.
type LedgerServiceDeps struct {
	Accounts    ports.AccountRepository
	Rewards     ports.RewardRepository
	Ledger      ports.LedgerRepository
	Audit       ports.AuditRepository
	Transactor  ports.DBTransactor
	Idempotency ports.IdempotencyRepository
	IdempCache  ports.IdempotencyCache
	Coupons     ports.CouponMarker
	Codes       ports.CodeGenerator
	Notifier    ports.Notifier
	Events      ports.EventPublisher
}

// LedgerServiceImpl implements ports.LedgerService with row-level locking.
type LedgerServiceImpl struct {
	accounts    ports.AccountRepository
	rewards     ports.RewardRepository
	ledger      ports.LedgerRepository
	audit       ports.AuditRepository
	transactor  ports.DBTransactor
	idempotency ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	coupons     ports.CouponMarker
	codes       ports.CodeGenerator
	notifier    ports.Notifier
	events      ports.EventPublisher
	log         zerolog.Logger
	now         func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(deps LedgerServiceDeps, log zerolog.Logger) *LedgerServiceImpl {
	s := &LedgerServiceImpl{
		accounts:    deps.Accounts,
		rewards:     deps.Rewards,
		ledger:      deps.Ledger,
		audit:       deps.Audit,
		transactor:  deps.Transactor,
		idempotency: deps.Idempotency,
		idempCache:  deps.IdempCache,
		coupons:     deps.Coupons,
		codes:       deps.Codes,
		notifier:    deps.Notifier,
		events:      deps.Events,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if s.codes == nil {
		s.codes = NewRandomCodeGenerator()
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	return s
}

// Transfer moves coins from an instructor to a student.
// Lock order is instructor row then student row.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (entry *domain.LedgerEntry, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opTransfer, start, err) }(time.Now())

	if !domain.IsValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	memo := strings.TrimSpace(req.Memo)
	if memo == "" {
		memo = defaultTransferMemo
	}
	if utf8.RuneCountInString(memo) > domain.MaxMemoLength {
		return nil, apperror.Validation(fmt.Sprintf("memo exceeds %d characters", domain.MaxMemoLength))
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildTransferIdempotencyKey(req.InstructorID, req.IdempotencyKey)
		if prior, err := s.replay(ctx, idempKey); err != nil || prior != nil {
			return prior, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entryID := uuid.New()
	if prior, err := s.claimKey(ctx, dbTx, idempKey, entryID); err != nil || prior != nil {
		return prior, err
	}

	instructor, err := s.accounts.GetByIDForUpdate(ctx, dbTx, req.InstructorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock instructor account: %w", err))
	}
	if instructor == nil || !instructor.IsInstructor() {
		return nil, apperror.ErrAccountNotFound()
	}

	student, err := s.accounts.GetByIDForUpdate(ctx, dbTx, req.StudentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock student account: %w", err))
	}
	if student == nil || !student.IsStudent() {
		return nil, apperror.ErrAccountNotFound()
	}

	// Business rule: no negative balance
	if !instructor.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	instructorBalance := instructor.Balance.Sub(req.Amount)
	studentBalance := student.Balance.Add(req.Amount)

	if err := s.accounts.UpdateBalance(ctx, dbTx, instructor.ID, instructorBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit instructor: %w", err))
	}
	if err := s.accounts.UpdateBalance(ctx, dbTx, student.ID, studentBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit student: %w", err))
	}

	entry = &domain.LedgerEntry{
		ID:                   entryID,
		Kind:                 domain.EntryKindTransfer,
		SourceAccountID:      &instructor.ID,
		DestinationAccountID: &student.ID,
		Amount:               req.Amount,
		Memo:                 memo,
		ValidationCode:       uuid.NewString(),
		CreatedAt:            s.now(),
	}
	if err := s.ledger.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, idempKey, entry)

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("kind", string(entry.Kind)).
		Str("amount", domain.FormatAmount(entry.Amount)).
		Str("instructor_id", instructor.ID.String()).
		Str("student_id", student.ID.String()).
		Msg("transfer committed")

	amount := domain.FormatAmount(entry.Amount)
	s.notifier.Notify(ctx, domain.Notification{
		Kind:            domain.NotificationTransferReceipt,
		RecipientName:   student.OwnerName,
		RecipientEmail:  student.OwnerEmail,
		CounterpartName: instructor.OwnerName,
		Amount:          amount,
		Balance:         domain.FormatAmount(studentBalance),
		Memo:            memo,
		EntryID:         entry.ID.String(),
	})
	s.notifier.Notify(ctx, domain.Notification{
		Kind:            domain.NotificationTransferConfirmation,
		RecipientName:   instructor.OwnerName,
		RecipientEmail:  instructor.OwnerEmail,
		CounterpartName: student.OwnerName,
		Amount:          amount,
		Balance:         domain.FormatAmount(instructorBalance),
		Memo:            memo,
		EntryID:         entry.ID.String(),
	})
	s.publish(ctx, domain.NewLedgerEvent(domain.EventEntryCreated, entry, entry.CreatedAt))

	return entry, nil
}

// Redeem spends a student's coins on a reward and issues a coupon.
func (s *LedgerServiceImpl) Redeem(ctx context.Context, req ports.RedeemRequest) (entry *domain.LedgerEntry, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opRedeem, start, err) }(time.Now())

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildRedeemIdempotencyKey(req.StudentID, req.IdempotencyKey)
		if prior, err := s.replay(ctx, idempKey); err != nil || prior != nil {
			return prior, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entryID := uuid.New()
	if prior, err := s.claimKey(ctx, dbTx, idempKey, entryID); err != nil || prior != nil {
		return prior, err
	}

	// Cost is read inside the tx; the entry keeps it even if the catalog changes later.
	reward, err := s.rewards.GetByIDTx(ctx, dbTx, req.RewardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get reward: %w", err))
	}
	if reward == nil {
		return nil, apperror.ErrRewardNotFound()
	}

	student, err := s.accounts.GetByIDForUpdate(ctx, dbTx, req.StudentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock student account: %w", err))
	}
	if student == nil || !student.IsStudent() {
		return nil, apperror.ErrAccountNotFound()
	}

	if !student.CanCover(reward.Cost) {
		return nil, apperror.ErrInsufficientBalance()
	}

	newBalance := student.Balance.Sub(reward.Cost)
	if err := s.accounts.UpdateBalance(ctx, dbTx, student.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit student: %w", err))
	}

	entry = &domain.LedgerEntry{
		ID:              entryID,
		Kind:            domain.EntryKindRedemption,
		SourceAccountID: &student.ID,
		RewardID:        &reward.ID,
		Amount:          reward.Cost,
		Memo:            domain.TruncateMemo(redemptionMemo + reward.Title),
		CreatedAt:       s.now(),
	}
	if err := s.insertCoupon(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, idempKey, entry)

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("kind", string(entry.Kind)).
		Str("amount", domain.FormatAmount(entry.Amount)).
		Str("student_id", student.ID.String()).
		Str("reward_id", reward.ID.String()).
		Msg("redemption committed")

	amount := domain.FormatAmount(entry.Amount)
	s.notifier.Notify(ctx, domain.Notification{
		Kind:           domain.NotificationCouponIssued,
		RecipientName:  student.OwnerName,
		RecipientEmail: student.OwnerEmail,
		Amount:         amount,
		Balance:        domain.FormatAmount(newBalance),
		RewardTitle:    reward.Title,
		ValidationCode: entry.ValidationCode,
		EntryID:        entry.ID.String(),
	})
	if partner, err := s.rewards.GetPartner(ctx, reward.PartnerID); err != nil {
		s.log.Warn().Err(err).Str("partner_id", reward.PartnerID.String()).Msg("failed to load partner for redemption notice")
	} else if partner != nil {
		s.notifier.Notify(ctx, domain.Notification{
			Kind:            domain.NotificationPartnerRedemption,
			RecipientName:   partner.Name,
			RecipientEmail:  partner.Email,
			CounterpartName: student.OwnerName,
			Amount:          amount,
			RewardTitle:     reward.Title,
			ValidationCode:  entry.ValidationCode,
			EntryID:         entry.ID.String(),
		})
	}
	s.publish(ctx, domain.NewLedgerEvent(domain.EventEntryCreated, entry, entry.CreatedAt))

	return entry, nil
}

// insertCoupon writes entry with a fresh coupon code, retrying on code
// collisions inside a savepoint so the enclosing tx stays usable.
func (s *LedgerServiceImpl) insertCoupon(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	for attempt := 1; attempt <= maxCouponAttempts; attempt++ {
		code, err := s.codes.NewCouponCode()
		if err != nil {
			return err
		}
		entry.ValidationCode = code

		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin savepoint: %w", err)
		}
		err = s.ledger.Create(ctx, sp, entry)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return fmt.Errorf("release savepoint: %w", err)
			}
			return nil
		}
		_ = sp.Rollback(ctx)
		if !errors.Is(err, ports.ErrDuplicateValidationCode) {
			return fmt.Errorf("create entry: %w", err)
		}
		s.log.Warn().Int("attempt", attempt).Msg("coupon code collision, retrying")
	}
	return fmt.Errorf("create entry: no unique coupon code after %d attempts", maxCouponAttempts)
}

// ValidateCoupon consumes a coupon on behalf of the partner owning its reward.
// Ownership is checked before consumed state so a non-owner never learns
// whether the coupon was used.
func (s *LedgerServiceImpl) ValidateCoupon(ctx context.Context, code string, partnerID uuid.UUID) (entry *domain.LedgerEntry, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opValidateCoupon, start, err) }(time.Now())

	code = NormalizeCouponCode(code)
	if code == "" {
		return nil, apperror.ErrCouponNotFound()
	}

	if s.coupons != nil {
		used, err := s.coupons.IsUsed(ctx, code)
		if err != nil {
			s.log.Warn().Err(err).Msg("used-coupon marker check failed, falling through to DB")
		}
		if used {
			coupon, err := s.ledger.GetCoupon(ctx, code)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("get coupon: %w", err))
			}
			if err := checkCoupon(coupon, partnerID); err != nil {
				return nil, err
			}
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	coupon, err := s.ledger.GetCouponForUpdate(ctx, dbTx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock coupon: %w", err))
	}
	if err := checkCoupon(coupon, partnerID); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.ledger.MarkConsumed(ctx, dbTx, coupon.Entry.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark consumed: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	entry = &coupon.Entry
	entry.Consumed = true
	entry.ConsumedAt = &now

	if s.coupons != nil {
		if err := s.coupons.MarkUsed(ctx, code); err != nil {
			s.log.Warn().Err(err).Msg("failed to set used-coupon marker")
		}
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("kind", string(entry.Kind)).
		Str("amount", domain.FormatAmount(entry.Amount)).
		Str("partner_id", partnerID.String()).
		Msg("coupon validated")

	s.publish(ctx, domain.NewLedgerEvent(domain.EventCouponConsumed, entry, now))

	return entry, nil
}

// checkCoupon applies the validation rules in order: existence, ownership, consumed state.
func checkCoupon(coupon *domain.Coupon, partnerID uuid.UUID) error {
	if coupon == nil || !coupon.Entry.IsCoupon() {
		return apperror.ErrCouponNotFound()
	}
	if coupon.PartnerID != partnerID {
		return apperror.ErrCouponOwnershipMismatch()
	}
	if coupon.Entry.Consumed {
		return apperror.ErrCouponAlreadyUsed()
	}
	return nil
}

// NormalizeCouponCode trims and upper-cases a code typed by a partner.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// TopUpAllInstructors credits every instructor account with amount in one
// statement, together with its audit record. All or nothing.
func (s *LedgerServiceImpl) TopUpAllInstructors(ctx context.Context, amount decimal.Decimal) (result *ports.TopUpResult, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opTopUp, start, err) }(time.Now())

	if !domain.IsValidAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	credited, err := s.accounts.CreditAllInstructors(ctx, dbTx, amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit instructors: %w", err))
	}

	details, err := json.Marshal(map[string]any{
		"amount":            domain.FormatAmount(amount),
		"accounts_credited": credited,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal audit details: %w", err))
	}
	record := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionBulkTopUp,
		ResourceType: "account",
		ResourceID:   string(domain.AccountKindInstructor),
		Details:      string(details),
		CreatedAt:    s.now(),
	}
	if err := s.audit.Create(ctx, dbTx, record); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("write audit record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("accounts_credited", credited).
		Str("amount", domain.FormatAmount(amount)).
		Msg("instructor top-up committed")

	return &ports.TopUpResult{AccountsCredited: credited, Amount: amount}, nil
}

// cachedEntry returns a previously committed entry for key, or nil.
// A cache failure is logged and treated as a miss.
// replay returns the entry already committed under key: Redis first, then
// the durable idempotency record.
func (s *LedgerServiceImpl) replay(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	if cached := s.cachedEntry(ctx, key); cached != nil {
		return cached, nil
	}
	return s.storedEntry(ctx, key)
}

func (s *LedgerServiceImpl) storedEntry(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	if s.idempotency == nil {
		return nil, nil
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if record == nil {
		return nil, nil
	}
	entry, err := s.ledger.GetByID(ctx, record.EntryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load idempotent entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %q references missing entry %s", key, record.EntryID))
	}
	s.log.Info().Str("key", key).Str("entry_id", entry.ID.String()).Msg("idempotent replay from store")
	return entry, nil
}

// claimKey records key for entryID as the first write of tx. When a
// concurrent request committed the same key first, tx is rolled back and
// that request's entry is returned instead.
func (s *LedgerServiceImpl) claimKey(ctx context.Context, tx pgx.Tx, key string, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	if key == "" || s.idempotency == nil {
		return nil, nil
	}
	err := s.idempotency.Create(ctx, tx, &domain.IdempotencyRecord{
		Key:       key,
		EntryID:   entryID,
		CreatedAt: s.now(),
	})
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
		return nil, apperror.InternalError(fmt.Errorf("claim idempotency key: %w", err))
	}

	_ = tx.Rollback(ctx)
	prior, err := s.storedEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %q claimed but not readable", key))
	}
	return prior, nil
}

func (s *LedgerServiceImpl) cachedEntry(ctx context.Context, key string) *domain.LedgerEntry {
	if s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed")
		return nil
	}
	if cached == nil {
		return nil
	}
	var entry domain.LedgerEntry
	if err := json.Unmarshal(cached, &entry); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency entry")
		return nil
	}
	s.log.Info().Str("key", key).Str("entry_id", entry.ID.String()).Msg("idempotent replay")
	return &entry
}

func (s *LedgerServiceImpl) cacheEntry(ctx context.Context, key string, entry *domain.LedgerEntry) {
	if s.idempCache == nil || key == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal entry for idempotency cache")
		return
	}
	if err := s.idempCache.Set(ctx, key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func (s *LedgerServiceImpl) publish(ctx context.Context, event domain.LedgerEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("entry_id", event.EntryID).Str("type", event.Type).Msg("failed to publish ledger event")
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
func (nopPublisher) Close() error                                      { return nil }
