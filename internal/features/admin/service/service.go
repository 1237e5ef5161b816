package service

import (
	"context"

	apperrors "cpgram-backend/internal/common/errors"
	campaignrepo "cpgram-backend/internal/features/campaign/repository"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	crosspromorepo "cpgram-backend/internal/features/crosspromo/repository"
	paymentmodels "cpgram-backend/internal/features/payment/models"
	paymentrepo "cpgram-backend/internal/features/payment/repository"
	userrepo "cpgram-backend/internal/features/user/repository"
)

// ChannelStats breaks channel counts down by moderation status.
type ChannelStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// PurchaseStats breaks transaction counts down by settlement status.
type PurchaseStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Pending    int64 `json:"pending"`
	Failed     int64 `json:"failed"`
}

// PurchaseRevenue sums what settled purchases moved.
type PurchaseRevenue struct {
	TotalCPC   int64 `json:"total_cpc"`
	TotalStars int64 `json:"total_stars"`
}

// PurchaseReport is the purchases dashboard: counts by status plus revenue.
type PurchaseReport struct {
	Transactions PurchaseStats   `json:"transactions"`
	Revenue      PurchaseRevenue `json:"revenue"`
}

// PlatformStats is the admin dashboard snapshot.
type PlatformStats struct {
	Channels  ChannelStats  `json:"channels"`
	Users     int64         `json:"users"`
	Requests  int64         `json:"requests"`
	Campaigns int64         `json:"campaigns"`
	Purchases PurchaseStats `json:"purchases"`
}

type StatsService interface {
	GetStats(ctx context.Context) (*PlatformStats, error)

	// GetPurchaseStats reports Stars purchase counts and revenue totals.
	GetPurchaseStats(ctx context.Context) (*PurchaseReport, error)
}

type statsService struct {
	users        userrepo.UserRepository
	channels     channelrepo.ChannelRepository
	campaigns    campaignrepo.CampaignRepository
	requests     crosspromorepo.RequestRepository
	transactions paymentrepo.TransactionRepository
}

func NewStatsService(users userrepo.UserRepository, channels channelrepo.ChannelRepository,
	campaigns campaignrepo.CampaignRepository, requests crosspromorepo.RequestRepository,
	transactions paymentrepo.TransactionRepository) StatsService {
	return &statsService{
		users:        users,
		channels:     channels,
		campaigns:    campaigns,
		requests:     requests,
		transactions: transactions,
	}
}

func (s *statsService) GetStats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{}

	var err error
	if stats.Channels.Total, err = s.channels.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count channels", err)
	}
	if stats.Channels.Pending, err = s.channels.CountByStatus(ctx, channelmodels.ChannelStatusPending); err != nil {
		return nil, apperrors.NewDatabaseError("count pending channels", err)
	}
	if stats.Channels.Approved, err = s.channels.CountByStatus(ctx, channelmodels.ChannelStatusApproved); err != nil {
		return nil, apperrors.NewDatabaseError("count approved channels", err)
	}
	if stats.Channels.Rejected, err = s.channels.CountByStatus(ctx, channelmodels.ChannelStatusRejected); err != nil {
		return nil, apperrors.NewDatabaseError("count rejected channels", err)
	}

	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count users", err)
	}
	if stats.Requests, err = s.requests.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count requests", err)
	}
	if stats.Campaigns, err = s.campaigns.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count campaigns", err)
	}

	if stats.Purchases.Total, err = s.transactions.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count transactions", err)
	}
	if stats.Purchases.Successful, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionSuccess); err != nil {
		return nil, apperrors.NewDatabaseError("count successful transactions", err)
	}
	if stats.Purchases.Pending, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionPending); err != nil {
		return nil, apperrors.NewDatabaseError("count pending transactions", err)
	}
	if stats.Purchases.Failed, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionFailed); err != nil {
		return nil, apperrors.NewDatabaseError("count failed transactions", err)
	}

	return stats, nil
}

func (s *statsService) GetPurchaseStats(ctx context.Context) (*PurchaseReport, error) {
	report := &PurchaseReport{}

	var err error
	if report.Transactions.Total, err = s.transactions.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("count transactions", err)
	}
	if report.Transactions.Successful, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionSuccess); err != nil {
		return nil, apperrors.NewDatabaseError("count successful transactions", err)
	}
	if report.Transactions.Pending, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionPending); err != nil {
		return nil, apperrors.NewDatabaseError("count pending transactions", err)
	}
	if report.Transactions.Failed, err = s.transactions.CountByStatus(ctx, paymentmodels.TransactionFailed); err != nil {
		return nil, apperrors.NewDatabaseError("count failed transactions", err)
	}
	if report.Revenue.TotalCPC, report.Revenue.TotalStars, err = s.transactions.SuccessTotals(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("sum purchase revenue", err)
	}

	return report, nil
}
