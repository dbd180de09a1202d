package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/events"
	"github.com/studyhub/adserver/internal/linkmeta"
	"github.com/studyhub/adserver/internal/models"
	"github.com/studyhub/adserver/internal/repositories"
	"go.uber.org/zap"
)

type CampaignService struct {
	campaignRepo   *repositories.CampaignRepo
	creativeRepo   *repositories.CreativeRepo
	advertiserRepo *repositories.AdvertiserRepo
	auditRepo      *repositories.AuditRepo
	linkFetcher    *linkmeta.Fetcher
	publisher      events.Publisher
	defaultCPC     int64
	log            *zap.Logger
}

func NewCampaignService(
	campaignRepo *repositories.CampaignRepo,
	creativeRepo *repositories.CreativeRepo,
	advertiserRepo *repositories.AdvertiserRepo,
	auditRepo *repositories.AuditRepo,
	linkFetcher *linkmeta.Fetcher,
	publisher events.Publisher,
	defaultCPC int64,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaignRepo:   campaignRepo,
		creativeRepo:   creativeRepo,
		advertiserRepo: advertiserRepo,
		auditRepo:      auditRepo,
		linkFetcher:    linkFetcher,
		publisher:      publisher,
		defaultCPC:     defaultCPC,
		log:            log,
	}
}

// advertiserFor resolves the caller's advertiser profile; campaigns cannot
// exist without one.
func (s *CampaignService) advertiserFor(ctx context.Context, userID uuid.UUID) (*models.AdvertiserProfile, error) {
	profile, err := s.advertiserRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no advertiser profile; make a deposit first")
	}
	return profile, nil
}

func (s *CampaignService) Create(ctx context.Context, userID uuid.UUID, c *models.AdCampaign) error {
	profile, err := s.advertiserFor(ctx, userID)
	if err != nil {
		return err
	}
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.BudgetCents <= 0 {
		return fmt.Errorf("budget must be positive")
	}
	if c.CPCCents <= 0 {
		c.CPCCents = s.defaultCPC
	}

	c.AdvertiserID = profile.ID
	c.Status = models.CampaignStatusPendingReview

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "campaign_created",
		EntityType:  "ad_campaign",
		EntityID:    &c.ID,
	})
	return nil
}

func (s *CampaignService) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.AdCampaign, error) {
	profile, err := s.advertiserFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.AdvertiserID != profile.ID {
		return nil, fmt.Errorf("campaign not found")
	}
	return c, nil
}

func (s *CampaignService) List(ctx context.Context, userID uuid.UUID, f repositories.CampaignFilter) ([]models.AdCampaign, error) {
	profile, err := s.advertiserFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	f.AdvertiserID = &profile.ID
	return s.campaignRepo.List(ctx, f)
}

// Update changes title/subjects/budget/cpc. Spend and status are never set
// directly by the advertiser; raising the budget of a depleted campaign
// re-activates it.
func (s *CampaignService) Update(ctx context.Context, id, userID uuid.UUID, c *models.AdCampaign) (*models.AdCampaign, error) {
	existing, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c.BudgetCents <= 0 {
		return nil, fmt.Errorf("budget must be positive")
	}
	if c.BudgetCents < existing.SpentCents {
		return nil, fmt.Errorf("budget cannot be lowered below spend (%d cents)", existing.SpentCents)
	}

	existing.Title = c.Title
	existing.Subjects = c.Subjects
	existing.BudgetCents = c.BudgetCents
	if c.CPCCents > 0 {
		existing.CPCCents = c.CPCCents
	}
	if err := s.campaignRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	if existing.Status == models.CampaignStatusDepleted && existing.SpentCents < existing.BudgetCents {
		if err := s.transition(ctx, existing, models.CampaignStatusActive, &userID, "user"); err != nil {
			s.log.Warn("failed to reactivate campaign after budget raise", zap.Error(err))
		}
	}
	return existing, nil
}

func (s *CampaignService) Pause(ctx context.Context, id, userID uuid.UUID) error {
	c, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.transition(ctx, c, models.CampaignStatusPaused, &userID, "user")
}

func (s *CampaignService) Resume(ctx context.Context, id, userID uuid.UUID) error {
	c, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if c.RemainingCents() == 0 {
		return fmt.Errorf("campaign budget is exhausted; raise the budget instead")
	}
	return s.transition(ctx, c, models.CampaignStatusActive, &userID, "user")
}

// Approve moves a campaign out of review. Admin only; the handler gates it.
func (s *CampaignService) Approve(ctx context.Context, id, adminUserID uuid.UUID) error {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("campaign not found")
	}
	return s.transition(ctx, c, models.CampaignStatusActive, &adminUserID, "admin")
}

func (s *CampaignService) Reject(ctx context.Context, id, adminUserID uuid.UUID) error {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("campaign not found")
	}
	return s.transition(ctx, c, models.CampaignStatusRejected, &adminUserID, "admin")
}

// transition validates and performs a status change with audit + event.
func (s *CampaignService) transition(ctx context.Context, c *models.AdCampaign, newStatus string, actorID *uuid.UUID, actorType string) error {
	if !models.IsValidTransition(c.Status, newStatus) {
		return fmt.Errorf("invalid transition from %s to %s", c.Status, newStatus)
	}

	oldStatus := c.Status
	if err := s.campaignRepo.UpdateStatus(ctx, c.ID, oldStatus, newStatus); err != nil {
		return err
	}
	c.Status = newStatus

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("campaign_status_%s_to_%s", oldStatus, newStatus),
		EntityType:  "ad_campaign",
		EntityID:    &c.ID,
		Meta:        map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})
	_ = s.publisher.Publish(ctx, events.StreamAds, events.Event{
		Type: events.EventCampaignStatusChanged,
		Payload: map[string]any{
			"campaign_id": c.ID.String(),
			"old_status":  oldStatus,
			"new_status":  newStatus,
		},
	})
	return nil
}

// CreateCreative validates the destination URL and, when headline or
// description are missing, prefills them from the landing page metadata.
func (s *CampaignService) CreateCreative(ctx context.Context, campaignID, userID uuid.UUID, cr *models.AdCreative) error {
	if _, err := s.GetByID(ctx, campaignID, userID); err != nil {
		return err
	}
	if err := linkmeta.ValidateDestination(cr.DestinationURL); err != nil {
		return err
	}

	if cr.Headline == "" || cr.Description == nil {
		meta, err := s.linkFetcher.Fetch(ctx, cr.DestinationURL)
		if err != nil {
			s.log.Debug("destination metadata fetch failed",
				zap.String("url", cr.DestinationURL), zap.Error(err))
		} else {
			if cr.Headline == "" {
				cr.Headline = meta.Title
			}
			if cr.Description == nil && meta.Description != "" {
				desc := meta.Description
				cr.Description = &desc
			}
		}
	}
	if cr.Headline == "" {
		return fmt.Errorf("headline is required")
	}

	cr.CampaignID = campaignID
	if err := s.creativeRepo.Create(ctx, cr); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "creative_created",
		EntityType:  "ad_creative",
		EntityID:    &cr.ID,
	})
	return nil
}

func (s *CampaignService) ListCreatives(ctx context.Context, campaignID, userID uuid.UUID) ([]models.AdCreative, error) {
	if _, err := s.GetByID(ctx, campaignID, userID); err != nil {
		return nil, err
	}
	return s.creativeRepo.ListByCampaign(ctx, campaignID)
}

func (s *CampaignService) DeleteCreative(ctx context.Context, campaignID, creativeID, userID uuid.UUID) error {
	if _, err := s.GetByID(ctx, campaignID, userID); err != nil {
		return err
	}
	cr, err := s.creativeRepo.GetByID(ctx, creativeID)
	if err != nil {
		return err
	}
	if cr == nil || cr.CampaignID != campaignID {
		return fmt.Errorf("creative not found")
	}
	return s.creativeRepo.Delete(ctx, creativeID)
}
