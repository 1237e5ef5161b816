package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/payment/models"
	"cpgram-backend/internal/features/payment/repository"
	userservice "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/metrics"
)

// MinimumPurchase is the smallest CP Coin amount a user can buy.
const MinimumPurchase int64 = 100

const transactionHistoryLimit = 50

// PaymentGateway covers the Telegram calls the purchase flow needs.
type PaymentGateway interface {
	SendStarsInvoice(chatID int64, title, description, payload string, starsAmount int) (int, error)
	AnswerPreCheckout(queryID string, ok bool, errorMessage string) error
	SendText(chatID int64, text string) (int, error)
}

type PaymentService interface {
	GetRates() models.Rates

	// InitiatePurchase creates a pending transaction and sends a Stars
	// invoice to the user's chat.
	InitiatePurchase(ctx context.Context, userID, cpcAmount int64) (*models.Transaction, error)

	// HandleWebhookUpdate processes bot updates from Telegram: pre-checkout
	// approvals and successful payments. Redelivered payments are settled at
	// most once.
	HandleWebhookUpdate(ctx context.Context, update *tgbotapi.Update) error

	ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	GetTransaction(ctx context.Context, userID int64, transactionID string) (*models.Transaction, error)
}

type paymentService struct {
	repo        repository.TransactionRepository
	users       userservice.UserService
	gateway     PaymentGateway
	starsPerCPC int
	adminChatID int64
}

func NewPaymentService(repo repository.TransactionRepository, users userservice.UserService,
	gateway PaymentGateway, starsPerCPC int, adminChatID int64) PaymentService {
	if starsPerCPC <= 0 {
		starsPerCPC = 1
	}
	return &paymentService{
		repo:        repo,
		users:       users,
		gateway:     gateway,
		starsPerCPC: starsPerCPC,
		adminChatID: adminChatID,
	}
}

func (s *paymentService) GetRates() models.Rates {
	return models.Rates{
		StarsPerCPC:     s.starsPerCPC,
		CPCPerStar:      1,
		MinimumPurchase: MinimumPurchase,
	}
}

func (s *paymentService) InitiatePurchase(ctx context.Context, userID, cpcAmount int64) (*models.Transaction, error) {
	if cpcAmount < MinimumPurchase {
		return nil, apperrors.NewValidationError("cpc_amount",
			fmt.Sprintf("minimum purchase is %d CP Coins", MinimumPurchase))
	}

	now := time.Now().UTC()
	transaction := &models.Transaction{
		TransactionID: "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		TelegramID:    userID,
		CPCAmount:     cpcAmount,
		StarsCost:     int(cpcAmount) * s.starsPerCPC,
		Status:        models.TransactionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, transaction); err != nil {
		return nil, apperrors.NewDatabaseError("create transaction", err)
	}

	title := fmt.Sprintf("%d CP Coins", cpcAmount)
	description := fmt.Sprintf("Purchase %d CP Coins for your CP Gram balance", cpcAmount)
	if _, err := s.gateway.SendStarsInvoice(userID, title, description,
		transaction.TransactionID, transaction.StarsCost); err != nil {

		if markErr := s.repo.MarkFailed(ctx, transaction.TransactionID, "failed to generate invoice"); markErr != nil {
			logger.Error().Err(markErr).Str("transaction_id", transaction.TransactionID).Msg("Failed to mark transaction failed")
		}
		metrics.RecordPurchase("invoice_failed")
		return nil, apperrors.NewTelegramAPIError("send stars invoice", err)
	}

	metrics.RecordPurchase("initiated")
	logger.Info().
		Str("transaction_id", transaction.TransactionID).
		Int64("user_id", userID).
		Int64("cpc_amount", cpcAmount).
		Int("stars_cost", transaction.StarsCost).
		Msg("Purchase initiated")
	return transaction, nil
}

func (s *paymentService) HandleWebhookUpdate(ctx context.Context, update *tgbotapi.Update) error {
	if update.PreCheckoutQuery != nil {
		if err := s.gateway.AnswerPreCheckout(update.PreCheckoutQuery.ID, true, ""); err != nil {
			return apperrors.NewTelegramAPIError("answer pre-checkout", err)
		}
		return nil
	}

	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return nil
	}
	payment := update.Message.SuccessfulPayment

	transactionID := payment.InvoicePayload
	transaction, err := s.repo.GetByID(ctx, transactionID)
	if err == repository.ErrTransactionNotFound {
		logger.Warn().Str("transaction_id", transactionID).Msg("Payment for unknown transaction")
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseError("get transaction", err)
	}

	if update.Message.From == nil || update.Message.From.ID != transaction.TelegramID {
		logger.Warn().Str("transaction_id", transactionID).Msg("Payment sender does not match transaction owner")
		return nil
	}

	err = s.repo.MarkSuccessIfPending(ctx, transactionID,
		payment.TelegramPaymentChargeID, payment.ProviderPaymentChargeID)
	if err == repository.ErrPreconditionFailed {
		logger.Info().Str("transaction_id", transactionID).Msg("Payment already processed")
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseError("settle transaction", err)
	}

	if err := s.users.CreditCompletion(ctx, transaction.TelegramID, transaction.CPCAmount); err != nil {
		return apperrors.NewDatabaseError("credit purchase", err)
	}

	metrics.RecordPurchase("success")
	logger.Info().
		Str("transaction_id", transactionID).
		Int64("user_id", transaction.TelegramID).
		Int64("cpc_amount", transaction.CPCAmount).
		Msg("Payment processed")

	text := fmt.Sprintf(
		"✅ Payment Successful!\n\nYou have received %d CP Coins.\nTransaction ID: %s\n\nThank you for your purchase!",
		transaction.CPCAmount, transactionID,
	)
	if _, err := s.gateway.SendText(transaction.TelegramID, text); err != nil {
		logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("Failed to notify buyer")
	}

	if s.adminChatID != 0 {
		text := fmt.Sprintf(
			"💰 New Purchase\n\nUser: %d\nAmount: %d CP\nStars: %d\nTransaction: %s",
			transaction.TelegramID, transaction.CPCAmount, payment.TotalAmount, transactionID,
		)
		if _, err := s.gateway.SendText(s.adminChatID, text); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify admin about purchase")
		}
	}
	return nil
}

func (s *paymentService) ListTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	transactions, err := s.repo.ListByUser(ctx, userID, transactionHistoryLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list transactions", err)
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	return transactions, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, userID int64, transactionID string) (*models.Transaction, error) {
	transaction, err := s.repo.GetByIDForUser(ctx, transactionID, userID)
	if err == repository.ErrTransactionNotFound {
		return nil, apperrors.NewNotFoundError("Transaction", transactionID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get transaction", err)
	}
	return transaction, nil
}
