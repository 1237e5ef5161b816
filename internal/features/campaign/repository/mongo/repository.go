package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cpgram-backend/internal/features/campaign/models"
	"cpgram-backend/internal/features/campaign/repository"
)

type campaignRepository struct {
	campaigns *mongo.Collection
}

func NewCampaignRepository(db *mongo.Database) repository.CampaignRepository {
	return &campaignRepository{
		campaigns: db.Collection("campaigns"),
	}
}

func partyField(role models.PartyRole) string {
	if role == models.RoleRequester {
		return "requester"
	}
	return "acceptor"
}

func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	_, err := r.campaigns.InsertOne(ctx, campaign)
	return err
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.campaigns.FindOne(ctx, bson.M{"id": id}).Decode(&campaign)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepository) ListByChannelIDs(ctx context.Context, channelIDs []string) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"fromChannelId": bson.M{"$in": channelIDs}},
			bson.M{"toChannelId": bson.M{"$in": channelIDs}},
		},
	})
}

func (r *campaignRepository) Count(ctx context.Context) (int64, error) {
	return r.campaigns.CountDocuments(ctx, bson.M{})
}

func (r *campaignRepository) find(ctx context.Context, filter bson.M) ([]*models.Campaign, error) {
	cursor, err := r.campaigns.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// casUpdate runs a filtered update and translates a zero match count into
// ErrPreconditionFailed.
func (r *campaignRepository) casUpdate(ctx context.Context, filter, update bson.M) error {
	res, err := r.campaigns.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

func (r *campaignRepository) SetPartyPosted(ctx context.Context, id string, role models.PartyRole, postLink string, now time.Time) error {
	party := partyField(role)
	return r.casUpdate(ctx,
		bson.M{
			"id":              id,
			party + ".status": bson.M{"$in": bson.A{models.PartyPendingPosting, models.PartyActive}},
		},
		bson.M{"$set": bson.M{
			party + ".status":    models.PartyActive,
			party + ".post_link": postLink,
			party + ".posted_at": now,
			"updated_at":         now,
		}},
	)
}

func (r *campaignRepository) CompletePartyReward(ctx context.Context, id string, role models.PartyRole, now time.Time) error {
	party := partyField(role)
	return r.casUpdate(ctx,
		bson.M{
			"id":                    id,
			party + ".status":       models.PartyActive,
			party + ".reward_given": false,
		},
		bson.M{"$set": bson.M{
			party + ".status":       models.PartyCompleted,
			party + ".ended_at":     now,
			party + ".reward_given": true,
			"updated_at":            now,
		}},
	)
}

func (r *campaignRepository) IncrementStats(ctx context.Context, id string, impressions, clicks int64) error {
	_, err := r.campaigns.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$inc": bson.M{"impressions": impressions, "clicks": clicks},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func (r *campaignRepository) ListCompletedByToChannels(ctx context.Context, channelIDs []string) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"kind":            models.KindManual,
		"toChannelId":     bson.M{"$in": channelIDs},
		"acceptor.status": models.PartyCompleted,
	})
}

func (r *campaignRepository) CountCompletedByFromChannels(ctx context.Context, channelIDs []string) (int64, error) {
	return r.campaigns.CountDocuments(ctx, bson.M{
		"kind":             models.KindManual,
		"fromChannelId":    bson.M{"$in": channelIDs},
		"requester.status": models.PartyCompleted,
	})
}

func (r *campaignRepository) ListPastPostingDeadline(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"kind":             models.KindManual,
		"posting_deadline": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"requester.status": models.PartyPendingPosting, "requester.deadline_notified": false},
			bson.M{"acceptor.status": models.PartyPendingPosting, "acceptor.deadline_notified": false},
		},
	})
}

func (r *campaignRepository) ExpireParty(ctx context.Context, id string, role models.PartyRole, now time.Time) error {
	party := partyField(role)
	return r.casUpdate(ctx,
		bson.M{
			"id":                         id,
			party + ".status":            models.PartyPendingPosting,
			party + ".deadline_notified": false,
		},
		bson.M{"$set": bson.M{
			party + ".status":            models.PartyExpired,
			party + ".deadline_notified": true,
			"updated_at":                 now,
		}},
	)
}

func (r *campaignRepository) ListActivePartiesUnnotified(ctx context.Context) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"kind": models.KindManual,
		"$or": bson.A{
			bson.M{"requester.status": models.PartyActive, "requester.notified_expiry": false},
			bson.M{"acceptor.status": models.PartyActive, "acceptor.notified_expiry": false},
		},
	})
}

func (r *campaignRepository) MarkPartyExpiryNotified(ctx context.Context, id string, role models.PartyRole) error {
	party := partyField(role)
	return r.casUpdate(ctx,
		bson.M{
			"id":                       id,
			party + ".status":          models.PartyActive,
			party + ".notified_expiry": false,
		},
		bson.M{"$set": bson.M{
			party + ".notified_expiry": true,
			"updated_at":               time.Now().UTC(),
		}},
	)
}

func (r *campaignRepository) ListDueScheduled(ctx context.Context, window time.Time) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"status":   models.LegacyScheduled,
		"start_at": bson.M{"$lte": window},
	})
}

func (r *campaignRepository) MarkRunning(ctx context.Context, id string, messageID int, postedAt, endAt time.Time) error {
	return r.casUpdate(ctx,
		bson.M{"id": id, "status": models.LegacyScheduled},
		bson.M{"$set": bson.M{
			"status":     models.LegacyRunning,
			"message_id": messageID,
			"posted_at":  postedAt,
			"end_at":     endAt,
			"updated_at": postedAt,
		}},
	)
}

func (r *campaignRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.casUpdate(ctx,
		bson.M{"id": id, "status": models.LegacyScheduled},
		bson.M{"$set": bson.M{
			"status":     models.LegacyFailed,
			"error":      reason,
			"updated_at": time.Now().UTC(),
		}},
	)
}

func (r *campaignRepository) ListFinishedRunning(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"status": models.LegacyRunning,
		"end_at": bson.M{"$lte": now},
	})
}

func (r *campaignRepository) MarkEnded(ctx context.Context, id string, now time.Time) error {
	return r.casUpdate(ctx,
		bson.M{"id": id, "status": models.LegacyRunning},
		bson.M{"$set": bson.M{
			"status":     models.LegacyEnded,
			"ended_at":   now,
			"updated_at": now,
		}},
	)
}

func (r *campaignRepository) ListRunningUnnotifiedInviteTasks(ctx context.Context) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{
		"kind":            models.KindInviteTask,
		"status":          models.LegacyRunning,
		"expiry_notified": bson.M{"$ne": true},
	})
}

func (r *campaignRepository) MarkExpiryNotified(ctx context.Context, id string) error {
	return r.casUpdate(ctx,
		bson.M{"id": id, "expiry_notified": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"expiry_notified": true,
			"updated_at":      time.Now().UTC(),
		}},
	)
}
