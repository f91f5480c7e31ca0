package transfer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/format"
)

// ErrVerificationSuperseded is returned by Verify when the recipient changed
// while the lookup was in flight and its result was discarded.
var ErrVerificationSuperseded = errors.New("verification superseded by a newer edit")

// defaultSubmissionFailure is shown when the backend gives no usable message
const defaultSubmissionFailure = "transfer failed, please try again"

// notFoundReason is reported when a lookup succeeds without a usable name
const notFoundReason = "account not found"

// Verifier resolves a canonical recipient identifier to a display name
type Verifier interface {
	Verify(ctx context.Context, identifier string, mode domain.TransferMode, routingCode string) (*domain.VerifiedRecipient, error)
}

// Submitter sends the confirmed transfer to the matching endpoint family
type Submitter interface {
	SameInstitutionTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRecord, error)
	InterInstitutionTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRecord, error)
}

// Config tunes a Machine
type Config struct {
	AccountNumberLength int           // Canonical identifier length; 0 means format.DefaultAccountNumberLength
	VerifyTimeout       time.Duration // Per-lookup timeout; 0 means none
	SubmitTimeout       time.Duration // Bound on an in-flight submission; 0 means none

	// OnChange is called outside the state lock after every state change,
	// including asynchronous verification results. Calls are serialized and
	// a snapshot older than one already delivered is dropped. OnChange may
	// read Snapshot but must not dispatch actions.
	OnChange func(Snapshot)
}

// Snapshot is a read-only copy of the intent for the presentation layer.
// The PIN itself is never exposed, only how many digits were entered.
type Snapshot struct {
	Mode                domain.TransferMode
	RecipientIdentifier string
	RoutingCode         string
	AmountText          string
	Amount              decimal.Decimal
	Description         string
	Verification        domain.Verification
	ConfirmationOpen    bool
	PinLength           int
	Submission          domain.Submission
	IdempotencyKey      uuid.UUID
	Closed              bool

	// Version increases with every snapshot taken; later state has a higher version
	Version uint64
}

// verifyKey identifies the inputs that produced a verification response
type verifyKey struct {
	mode        domain.TransferMode
	identifier  string
	routingCode string
}

// verifyOutcome records how a verification response was handled
type verifyOutcome string

const (
	outcomeApplied verifyOutcome = "applied"
	outcomeStale   verifyOutcome = "stale"
)

// inflightVerification is the cancellation token of one lookup
type inflightVerification struct {
	key    verifyKey
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Machine owns one TransferIntent for the lifetime of a single transfer attempt.
// The presentation layer only dispatches actions and reads snapshots.
// After a successful submission or Discard the machine is closed for good;
// callers construct a new Machine for the next transfer.
type Machine struct {
	verifier  Verifier
	submitter Submitter
	logger    *zap.Logger
	cfg       Config

	// ctx scopes background verifications; cancelled when the intent closes
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu               sync.Mutex
	mode             domain.TransferMode
	recipient        string
	routingCode      string
	amountText       string
	description      string
	verification     domain.Verification
	confirmationOpen bool
	pin              []byte
	submission       domain.Submission
	idempotencyKey   uuid.UUID
	closed           bool
	inflight         *inflightVerification
	version          uint64

	// notifyMu serializes OnChange delivery; delivered is the last version sent
	notifyMu  sync.Mutex
	delivered uint64
}

// NewMachine creates a fresh intent in the given mode
func NewMachine(mode domain.TransferMode, verifier Verifier, submitter Submitter, cfg Config, logger *zap.Logger) (*Machine, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AccountNumberLength <= 0 {
		cfg.AccountNumberLength = format.DefaultAccountNumberLength
	}

	ctx, cancel := context.WithCancel(context.Background())
	key := uuid.New()

	return &Machine{
		verifier:       verifier,
		submitter:      submitter,
		logger:         logger.With(zap.String("intent", key.String())),
		cfg:            cfg,
		ctx:            ctx,
		cancel:         cancel,
		mode:           mode,
		verification:   domain.Unverified(),
		submission:     domain.Submission{Phase: domain.SubmissionIdle},
		idempotencyKey: key,
	}, nil
}

// Snapshot returns the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Wait blocks until background verifications have finished
func (m *Machine) Wait() {
	m.wg.Wait()
}

// SetMode switches the endpoint family. Switching resets verification and,
// for same-institution transfers, drops the routing code.
func (m *Machine) SetMode(mode domain.TransferMode) error {
	if !mode.Valid() {
		return domain.ErrInvalidMode
	}
	return m.edit(func() bool {
		if mode == m.mode {
			return false
		}
		m.mode = mode
		if !mode.RequiresRoutingCode() {
			m.routingCode = ""
		}
		m.resetVerificationLocked()
		m.autoVerifyLocked()
		return true
	})
}

// EditRecipient updates the recipient identifier from raw input.
// The value is canonicalized; reaching the full length starts verification.
func (m *Machine) EditRecipient(raw string) error {
	canonical := format.CanonicalAccountNumber(raw, m.cfg.AccountNumberLength)
	return m.edit(func() bool {
		if canonical == m.recipient {
			return false
		}
		m.recipient = canonical
		m.resetVerificationLocked()
		m.autoVerifyLocked()
		return true
	})
}

// EditRoutingCode updates the counterparty routing code
func (m *Machine) EditRoutingCode(code string) error {
	code = strings.TrimSpace(code)
	return m.edit(func() bool {
		if code == m.routingCode {
			return false
		}
		m.routingCode = code
		m.resetVerificationLocked()
		m.autoVerifyLocked()
		return true
	})
}

// EditAmount stores the raw amount text; it is parsed on Continue
func (m *Machine) EditAmount(raw string) error {
	return m.edit(func() bool {
		if raw == m.amountText {
			return false
		}
		m.amountText = raw
		m.closeConfirmationLocked()
		return true
	})
}

// EditDescription stores the transfer narration
func (m *Machine) EditDescription(text string) error {
	return m.edit(func() bool {
		if text == m.description {
			return false
		}
		m.description = text
		m.closeConfirmationLocked()
		return true
	})
}

// edit runs fn under the lock once the intent is known to be editable
func (m *Machine) edit(fn func() bool) error {
	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	changed := fn()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
	return nil
}

// Verify explicitly verifies the current recipient and waits for the result.
// If a lookup for the same inputs is already in flight, it waits for that one
// instead of issuing a second request.
func (m *Machine) Verify(ctx context.Context) error {
	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if !format.IsCompleteAccountNumber(m.recipient, m.cfg.AccountNumberLength) {
		m.mu.Unlock()
		return domain.ErrIncompleteAccountNumber
	}
	if m.mode.RequiresRoutingCode() && m.routingCode == "" {
		m.mu.Unlock()
		return domain.ErrRoutingCodeRequired
	}

	f := m.inflight
	if f == nil || f.key != m.keyLocked() {
		f = m.startVerificationLocked()
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Continue checks the local preconditions and opens confirmation.
// Checks run in order and the first failure wins: verified recipient,
// amount > 0, amount <= availableBalance, non-empty description.
func (m *Machine) Continue(availableBalance decimal.Decimal) error {
	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.preconditionsLocked(availableBalance); err != nil {
		m.mu.Unlock()
		m.logger.Debug("continue rejected", zap.Error(err))
		return err
	}

	m.confirmationOpen = true
	m.wipePinLocked()
	if m.submission.Phase == domain.SubmissionFailed {
		m.submission = domain.Submission{Phase: domain.SubmissionIdle}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

func (m *Machine) preconditionsLocked(availableBalance decimal.Decimal) error {
	if !m.verification.IsVerified() {
		return domain.ErrVerifyRecipientFirst
	}
	amount := format.ParseAmount(m.amountText)
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	if amount.GreaterThan(availableBalance) {
		return domain.ErrInsufficientBalance
	}
	if strings.TrimSpace(m.description) == "" {
		return domain.ErrDescriptionRequired
	}
	return nil
}

// EnterPin replaces the PIN with the digits of raw, capped at four
func (m *Machine) EnterPin(raw string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrIntentClosed
	}
	if !m.confirmationOpen {
		m.mu.Unlock()
		return domain.ErrConfirmationNotOpen
	}
	m.wipePinLocked()
	m.pin = []byte(format.SanitizePin(raw))
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// CancelConfirmation closes the confirmation and clears the PIN.
// A submission already in flight is not cancelled; its outcome is still applied.
func (m *Machine) CancelConfirmation() {
	m.mu.Lock()
	m.closeConfirmationLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Discard closes the intent without submitting. In-flight verifications are
// cancelled; an in-flight submission is still awaited by its Confirm call.
func (m *Machine) Discard() {
	m.mu.Lock()
	m.closeLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Debug("transfer intent discarded")
	m.notify(snap)
}

// Confirm submits the transfer exactly once per confirmed intent.
// Logic:
//  1. Reject if closed, already submitting (double tap), confirmation not open, or PIN incomplete
//  2. Move to Submitting and wipe the PIN from state before the network call
//  3. Dispatch to the endpoint family selected by mode; caller cancellation does not abandon the request
//  4. Success closes the intent; failure returns to confirmation with the PIN cleared
func (m *Machine) Confirm(ctx context.Context) (*domain.TransactionRecord, error) {
	m.mu.Lock()
	if m.submission.Phase == domain.SubmissionSubmitting {
		m.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrIntentClosed
	}
	if !m.confirmationOpen {
		m.mu.Unlock()
		return nil, domain.ErrConfirmationNotOpen
	}
	if !format.IsCompletePin(string(m.pin)) {
		m.mu.Unlock()
		return nil, domain.ErrInvalidPin
	}
	if !m.verification.IsVerified() {
		m.mu.Unlock()
		return nil, domain.ErrVerifyRecipientFirst
	}

	req := domain.TransferRequest{
		Mode:                m.mode,
		RecipientIdentifier: m.recipient,
		Amount:              format.ParseAmount(m.amountText),
		Description:         strings.TrimSpace(m.description),
		Pin:                 string(m.pin),
		IdempotencyKey:      m.idempotencyKey,
	}
	if m.mode.RequiresRoutingCode() {
		req.RoutingCode = m.routingCode
	}
	m.wipePinLocked()
	m.submission = domain.Submission{Phase: domain.SubmissionSubmitting}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	logger := m.logger.With(
		zap.String("account", format.MaskAccountNumber(req.RecipientIdentifier)),
		zap.String("mode", string(req.Mode)),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	logger.Info("submitting transfer")

	record, err := m.submit(ctx, req)
	req.Pin = ""
	if err == nil && record == nil {
		err = &domain.APIError{Kind: domain.APIErrorMalformed, Message: "empty transfer response"}
	}

	m.mu.Lock()
	if err != nil {
		message := domain.UserMessage(err, defaultSubmissionFailure)
		m.submission = domain.Submission{Phase: domain.SubmissionFailed, Reason: message}
		m.wipePinLocked()
		snap = m.snapshotLocked()
		m.mu.Unlock()

		logger.Warn("transfer submission failed", zap.String("reason", message), zap.Error(err))
		m.notify(snap)
		return nil, &domain.SubmissionError{Message: message, Err: err}
	}

	m.wipePinLocked()
	m.confirmationOpen = false
	m.submission = domain.Submission{Phase: domain.SubmissionSucceeded, Record: record}
	m.closeLocked()
	snap = m.snapshotLocked()
	m.mu.Unlock()

	logger.Info("transfer submitted", zap.String("reference", record.Reference), zap.String("status", string(record.Status)))
	m.notify(snap)
	return record, nil
}

// submit runs the request detached from the caller's cancellation
func (m *Machine) submit(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRecord, error) {
	submitCtx := context.WithoutCancel(ctx)
	if m.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(submitCtx, m.cfg.SubmitTimeout)
		defer cancel()
	}

	if req.Mode == domain.TransferModeInterInstitution {
		return m.submitter.InterInstitutionTransfer(submitCtx, req)
	}
	return m.submitter.SameInstitutionTransfer(submitCtx, req)
}

// editableLocked rejects edits on a closed intent or during submission
func (m *Machine) editableLocked() error {
	if m.closed {
		return domain.ErrIntentClosed
	}
	if m.submission.Phase == domain.SubmissionSubmitting {
		return domain.ErrSubmissionInFlight
	}
	return nil
}

func (m *Machine) keyLocked() verifyKey {
	return verifyKey{mode: m.mode, identifier: m.recipient, routingCode: m.routingCode}
}

// resetVerificationLocked drops any verification and cancels a lookup in flight.
// A stale Verified/Failed result must never survive a recipient edit.
func (m *Machine) resetVerificationLocked() {
	if m.inflight != nil {
		m.inflight.cancel()
		m.inflight = nil
	}
	m.verification = domain.Unverified()
	m.closeConfirmationLocked()
	if m.submission.Phase == domain.SubmissionFailed {
		m.submission = domain.Submission{Phase: domain.SubmissionIdle}
	}
}

// autoVerifyLocked starts a lookup once the recipient reaches its full length
func (m *Machine) autoVerifyLocked() {
	if !format.IsCompleteAccountNumber(m.recipient, m.cfg.AccountNumberLength) {
		return
	}
	if m.mode.RequiresRoutingCode() && m.routingCode == "" {
		return
	}
	m.startVerificationLocked()
}

func (m *Machine) startVerificationLocked() *inflightVerification {
	if m.inflight != nil {
		m.inflight.cancel()
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.cfg.VerifyTimeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.cfg.VerifyTimeout)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}

	f := &inflightVerification{
		key:    m.keyLocked(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.inflight = f
	m.verification = domain.Verifying()

	m.wg.Add(1)
	go m.runVerification(f)
	return f
}

func (m *Machine) runVerification(f *inflightVerification) {
	defer m.wg.Done()
	defer close(f.done)
	defer f.cancel()

	recipient, err := m.verifier.Verify(f.ctx, f.key.identifier, f.key.mode, f.key.routingCode)

	m.mu.Lock()
	outcome := m.applyVerificationLocked(f, recipient, err)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Debug("verification response",
		zap.String("account", format.MaskAccountNumber(f.key.identifier)),
		zap.String("outcome", string(outcome)),
	)
	if outcome == outcomeApplied {
		m.notify(snap)
	}
}

// applyVerificationLocked applies a response only if it still matches the
// current inputs; otherwise it is discarded as stale.
func (m *Machine) applyVerificationLocked(f *inflightVerification, recipient *domain.VerifiedRecipient, err error) verifyOutcome {
	if m.inflight != f || m.closed || m.keyLocked() != f.key {
		f.err = ErrVerificationSuperseded
		return outcomeStale
	}
	m.inflight = nil

	if err != nil {
		var verr *domain.VerificationError
		if !errors.As(err, &verr) {
			verr = &domain.VerificationError{Reason: domain.UserMessage(err, "could not verify account"), Err: err}
		}
		m.verification = domain.VerificationFailedWith(verr.Reason)
		f.err = verr
		return outcomeApplied
	}

	if recipient == nil || strings.TrimSpace(recipient.DisplayName) == "" {
		m.verification = domain.VerificationFailedWith(notFoundReason)
		f.err = &domain.VerificationError{Reason: notFoundReason}
		return outcomeApplied
	}

	m.verification = domain.Verified(strings.TrimSpace(recipient.DisplayName))
	return outcomeApplied
}

func (m *Machine) closeConfirmationLocked() {
	m.confirmationOpen = false
	m.wipePinLocked()
}

func (m *Machine) closeLocked() {
	m.closed = true
	m.confirmationOpen = false
	m.wipePinLocked()
	if m.inflight != nil {
		m.inflight.cancel()
		m.inflight = nil
		m.verification = domain.Unverified()
	}
	m.cancel()
}

// wipePinLocked zeroes the PIN buffer before dropping it
func (m *Machine) wipePinLocked() {
	for i := range m.pin {
		m.pin[i] = 0
	}
	m.pin = nil
}

func (m *Machine) snapshotLocked() Snapshot {
	m.version++
	return Snapshot{
		Mode:                m.mode,
		RecipientIdentifier: m.recipient,
		RoutingCode:         m.routingCode,
		AmountText:          m.amountText,
		Amount:              format.ParseAmount(m.amountText),
		Description:         m.description,
		Verification:        m.verification,
		ConfirmationOpen:    m.confirmationOpen,
		PinLength:           len(m.pin),
		Submission:          m.submission,
		IdempotencyKey:      m.idempotencyKey,
		Closed:              m.closed,
		Version:             m.version,
	}
}

// notify delivers snap unless a newer snapshot has already been delivered.
// A result applied before a concurrent edit must not reach the observer after it.
func (m *Machine) notify(snap Snapshot) {
	if m.cfg.OnChange == nil {
		return
	}
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if snap.Version <= m.delivered {
		return
	}
	m.delivered = snap.Version
	m.cfg.OnChange(snap)
}
