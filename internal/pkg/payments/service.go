package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CourseCheckout/app/models"
	"github.com/ManuelReschke/CourseCheckout/app/repository"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

const (
	archiveTimeout      = 30 * time.Second
	reconcileBatchLimit = 100
)

// Store is the persistence the service needs: pool-bound repositories and
// transactional units of work. *repository.Factory implements it.
type Store interface {
	Repositories() *repository.Repositories
	Transaction(ctx context.Context, fn func(repos *repository.Repositories) error) error
}

// Options carries the checkout settings taken from config.
type Options struct {
	PublicKey          string
	IntegrityKey       string
	EventsSecret       string
	DefaultCurrency    string
	CourseID           string
	CoursePriceInCents int64
}

// OptionsFromConfig maps the validated config onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PublicKey:          cfg.Gateway.PublicKey,
		IntegrityKey:       cfg.Gateway.IntegrityKey,
		EventsSecret:       cfg.Gateway.EventsSecret,
		DefaultCurrency:    cfg.DefaultCurrency,
		CourseID:           cfg.CourseID,
		CoursePriceInCents: cfg.CoursePriceInCents,
	}
}

// Service implements checkout signing, webhook processing, reconciliation and
// the payment proxy on top of an injected store and gateway.
type Service struct {
	store    Store
	gateway  Gateway
	archiver Archiver
	opts     Options
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a payments service. archiver may be nil.
func NewService(store Store, gateway Gateway, archiver Archiver, opts Options) *Service {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = config.DefaultCurrency
	}
	if opts.CourseID == "" {
		opts.CourseID = config.DefaultCourseID
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		archiver: archiver,
		opts:     opts,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NewReference generates a server side payment reference.
func NewReference() string {
	return "order_" + uuid.NewString()
}

// Sign prepares the widget checkout data. Empty reference, amount or currency
// fall back to a generated reference, the course price and the default currency.
func (s *Service) Sign(reference, amount, currency, expirationTime string) (*Checkout, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = NewReference()
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}

	var cents int64
	if strings.TrimSpace(amount) == "" {
		if s.opts.CoursePriceInCents <= 0 {
			return nil, apperror.NewValidation("missing_amount", "amount is required")
		}
		cents = s.opts.CoursePriceInCents
	} else {
		var err error
		if cents, err = ParseAmountInCents(amount); err != nil {
			return nil, err
		}
	}
	amountStr := strconv.FormatInt(cents, 10)

	expirationTime = strings.TrimSpace(expirationTime)
	if expirationTime != "" {
		if _, err := time.Parse(time.RFC3339, expirationTime); err != nil {
			return nil, apperror.NewValidation("invalid_expiration_time", "expiration_time must be RFC3339")
		}
	}

	sig, err := IntegritySignatureWithExpiration(reference, amountStr, currency, expirationTime, s.opts.IntegrityKey)
	if err != nil {
		return nil, err
	}

	return &Checkout{
		Reference:      reference,
		Amount:         amountStr,
		Currency:       currency,
		Signature:      sig,
		PublicKey:      s.opts.PublicKey,
		ExpirationTime: expirationTime,
	}, nil
}

// ProcessWebhook handles one gateway delivery: validate, record, verify,
// re-fetch the transaction from the gateway and sync it locally. Redeliveries
// of an already settled event are acknowledged without work.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, headerChecksum string) (*WebhookResult, error) {
	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		return nil, err
	}

	verified := false
	if s.opts.EventsSecret != "" {
		verified = VerifyEventChecksum(payload, headerChecksum, s.opts.EventsSecret)
	}

	repos := s.store.Repositories()
	created, stored, err := repos.WebhookEvent.CreateIfNotExists(ctx, &models.WebhookEvent{
		Provider:        models.ProviderWompi,
		ProviderEventID: EventID(payload),
		EventType:       ev.Event,
		PayloadJSON:     string(payload),
		SignatureValid:  verified,
	})
	if err != nil {
		return nil, apperror.WrapInternal("webhook_persist_failed", "could not record webhook", err)
	}

	if !created && stored.Settled() {
		log.Infof("[Payments] Duplicate delivery for transaction %s ignored", ev.Transaction().ID)
		return &WebhookResult{
			Duplicate:  true,
			SyncResult: SyncResult{ExternalID: ev.Transaction().ID},
		}, nil
	}

	if s.opts.EventsSecret != "" && !verified {
		s.markProcessed(ctx, stored.ID, errors.New("invalid webhook checksum"))
		return nil, apperror.NewValidation("invalid_signature", "webhook checksum mismatch").
			WithStatus(fiber.StatusUnauthorized)
	}

	result, procErr := s.syncFromGateway(ctx, ev.Transaction().ID, ev.Transaction().CustomerEmail)
	s.markProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		return nil, procErr
	}

	s.archive(stored.ProviderEventID, payload)
	return &WebhookResult{SyncResult: *result}, nil
}

// syncFromGateway re-queries the gateway and applies its state.
func (s *Service) syncFromGateway(ctx context.Context, externalID, fallbackEmail string) (*SyncResult, error) {
	gt, err := s.gateway.GetTransaction(ctx, externalID)
	if err != nil {
		if apperror.KindOf(err) == apperror.Validation {
			// A 4xx from the lookup still means we could not confirm the
			// payment; let the gateway retry.
			return nil, apperror.WrapUpstream("gateway transaction lookup failed", err)
		}
		return nil, err
	}
	if gt.ID != externalID {
		return nil, apperror.WrapUpstream("gateway returned a different transaction",
			fmt.Errorf("asked for %s, got %s", externalID, gt.ID))
	}
	return s.SyncTransaction(ctx, gt, fallbackEmail)
}

// SyncTransaction upserts the buyer, the transaction and, only for approved
// transactions, the course enrollment in a single database transaction. Every
// write is conflict tolerant, so repeated or concurrent calls converge.
func (s *Service) SyncTransaction(ctx context.Context, gt *GatewayTransaction, fallbackEmail string) (*SyncResult, error) {
	if gt == nil || strings.TrimSpace(gt.ID) == "" {
		return nil, apperror.NewValidation("missing_transaction_id", "transaction id is required")
	}

	email := models.NormalizeEmail(gt.CustomerEmail)
	if email == "" {
		email = models.NormalizeEmail(fallbackEmail)
	}

	result := &SyncResult{
		ExternalID: gt.ID,
		Status:     strings.ToUpper(strings.TrimSpace(gt.Status)),
	}

	err := s.store.Transaction(ctx, func(repos *repository.Repositories) error {
		var userID *uint
		if email != "" {
			user := &models.User{Email: email}
			if _, err := repos.User.CreateIfNotExists(ctx, user); err != nil {
				return fmt.Errorf("upsert user: %w", err)
			}
			userID = &user.ID
		}

		tx := &models.Transaction{
			ExternalID:        gt.ID,
			Reference:         gt.Reference,
			Email:             email,
			AmountInCents:     gt.AmountInCents,
			Currency:          strings.ToUpper(gt.Currency),
			Status:            result.Status,
			StatusMessage:     gt.StatusMessage,
			PaymentMethodType: gt.PaymentMethodType,
		}
		if err := repos.Transaction.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("upsert transaction: %w", err)
		}
		result.TransactionID = tx.ID

		if !tx.IsApproved() {
			return nil
		}
		if email == "" {
			log.Warnf("[Payments] Approved transaction %s has no customer email, enrollment skipped", gt.ID)
			return nil
		}

		created, err := repos.Enrollment.CreateIfNotExists(ctx, &models.Enrollment{
			UserID:        userID,
			Email:         email,
			CourseID:      s.opts.CourseID,
			TransactionID: &tx.ID,
			Status:        models.EnrollmentStatusActive,
		})
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		result.Enrolled = true
		result.EnrollmentCreated = created
		return nil
	})
	if err != nil {
		return nil, apperror.WrapInternal("sync_failed", "could not store transaction", err)
	}

	if result.EnrollmentCreated {
		log.Infof("[Payments] Enrolled %s in %s (transaction %s)", email, s.opts.CourseID, gt.ID)
	}
	return result, nil
}

// ReconcilePending re-queries pending transactions untouched for olderThan and
// applies the gateway state. Individual failures are counted, not returned.
func (s *Service) ReconcilePending(ctx context.Context, olderThan time.Duration) (*ReconcileResult, error) {
	cutoff := s.now().Add(-olderThan)
	pending, err := s.store.Repositories().Transaction.ListByStatusBefore(ctx, models.TransactionStatusPending, cutoff, reconcileBatchLimit)
	if err != nil {
		return nil, apperror.WrapInternal("reconcile_failed", "could not list pending transactions", err)
	}

	out := &ReconcileResult{}
	for _, tx := range pending {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Checked++

		res, err := s.syncFromGateway(ctx, tx.ExternalID, tx.Email)
		if err != nil {
			out.Failed++
			log.Warnf("[Payments] Reconcile of %s failed: %v", tx.ExternalID, err)
			continue
		}
		if res.Status != tx.Status {
			out.Updated++
		}
		if res.EnrollmentCreated {
			out.Enrolled++
		}
		if !models.IsFinalTransactionStatus(res.Status) {
			out.StillOpen++
		}
	}

	if out.Checked > 0 {
		log.Infof("[Payments] Reconciled %d pending transactions (%d updated, %d enrolled, %d failed, %d still open)",
			out.Checked, out.Updated, out.Enrolled, out.Failed, out.StillOpen)
	}
	return out, nil
}

// CreatePayment signs and submits a charge to the gateway and mirrors the
// resulting transaction locally.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*GatewayTransaction, *SyncResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.PaymentMethod.Type = strings.ToUpper(strings.TrimSpace(in.PaymentMethod.Type))
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, apperror.Wrap(apperror.Validation, "invalid_request", validationMessage(err), err)
	}

	amount := ""
	if in.AmountInCents > 0 {
		amount = strconv.FormatInt(in.AmountInCents, 10)
	}
	checkout, err := s.Sign(in.Reference, amount, in.Currency, "")
	if err != nil {
		return nil, nil, err
	}
	cents, _ := strconv.ParseInt(checkout.Amount, 10, 64)

	token := strings.TrimSpace(in.AcceptanceToken)
	if token == "" {
		if token, err = s.gateway.AcceptanceToken(ctx); err != nil {
			return nil, nil, err
		}
	}

	if in.PaymentMethod.Type == "CARD" && in.PaymentMethod.Installments == 0 {
		in.PaymentMethod.Installments = 1
	}

	gt, err := s.gateway.CreateTransaction(ctx, CreateTransactionRequest{
		AcceptanceToken: token,
		AmountInCents:   cents,
		Currency:        checkout.Currency,
		Signature:       checkout.Signature,
		CustomerEmail:   in.Email,
		Reference:       checkout.Reference,
		PaymentMethod:   in.PaymentMethod,
	})
	if err != nil {
		return nil, nil, err
	}

	if in.Name != "" {
		if _, _, err := s.RegisterUser(ctx, in.Name, in.Email, ""); err != nil {
			log.Warnf("[Payments] Could not store buyer %s: %v", in.Email, err)
		}
	}

	if gt.ID == "" {
		return gt, nil, nil
	}
	if gt.Reference == "" {
		gt.Reference = checkout.Reference
	}
	if gt.AmountInCents == 0 {
		gt.AmountInCents = cents
	}
	if gt.Currency == "" {
		gt.Currency = checkout.Currency
	}
	if gt.Status == "" {
		gt.Status = models.TransactionStatusPending
	}

	synced, err := s.SyncTransaction(ctx, gt, in.Email)
	if err != nil {
		return gt, nil, err
	}
	return gt, synced, nil
}

// RegisterUser creates a user explicitly. An existing email is returned as is.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	user, err := models.NewUser(name, email, password)
	if err != nil {
		return nil, false, apperror.Wrap(apperror.Validation, "invalid_user", validationMessage(err), err)
	}

	created, err := s.store.Repositories().User.CreateIfNotExists(ctx, user)
	if err != nil {
		return nil, false, apperror.WrapInternal("user_persist_failed", "could not store user", err)
	}
	return user, created, nil
}

func (s *Service) markProcessed(ctx context.Context, id uint, procErr error) {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	// The request context may already be done; the bookkeeping must still land.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Repositories().WebhookEvent.MarkProcessed(markCtx, id, msg); err != nil {
		log.Errorf("[Payments] Could not mark webhook event %d processed: %v", id, err)
	}
}

func (s *Service) archive(eventID string, payload []byte) {
	if s.archiver == nil {
		return
	}
	key := ArchiveKey(s.now(), eventID)
	body := append([]byte(nil), payload...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archiver.Archive(ctx, key, body); err != nil {
			log.Warnf("[Payments] Archiving webhook %s failed: %v", eventID, err)
		}
	}()
}

// ArchiveKey lays out archived payloads by day.
func ArchiveKey(t time.Time, eventID string) string {
	id := strings.TrimPrefix(eventID, "hash:")
	return fmt.Sprintf("webhooks/%04d/%02d/%02d/%s.json", t.Year(), int(t.Month()), t.Day(), id)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
