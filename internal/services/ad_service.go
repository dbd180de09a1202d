package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultFeedAdCount = 3
	MaxFeedAdCount     = 10
)

// CreativeSelector is the creative repository surface the selector needs.
type CreativeSelector interface {
	SelectEligible(ctx context.Context, subject string, count int) ([]models.AdWithCampaign, error)
	MarkServed(ctx context.Context, ids []uuid.UUID) error
}

// AdService picks creatives for ad slots. Only active campaigns with
// remaining budget are eligible; rotation is least-recently-served. An
// empty result is normal — no slot is mandatory and callers render nothing.
type AdService struct {
	creatives CreativeSelector
	tracker   *TrackerService
	log       *zap.Logger
}

func NewAdService(creatives CreativeSelector, tracker *TrackerService, log *zap.Logger) *AdService {
	return &AdService{creatives: creatives, tracker: tracker, log: log}
}

func (s *AdService) SelectForFeed(ctx context.Context, count int) ([]models.AdWithCampaign, error) {
	return s.selectAds(ctx, "", count)
}

func (s *AdService) SelectForSidebar(ctx context.Context) ([]models.AdWithCampaign, error) {
	return s.selectAds(ctx, "", 1)
}

func (s *AdService) SelectForSubject(ctx context.Context, subject string, count int) ([]models.AdWithCampaign, error) {
	return s.selectAds(ctx, subject, count)
}

func (s *AdService) selectAds(ctx context.Context, subject string, count int) ([]models.AdWithCampaign, error) {
	if count <= 0 {
		count = DefaultFeedAdCount
	}
	if count > MaxFeedAdCount {
		count = MaxFeedAdCount
	}

	ads, err := s.creatives.SelectEligible(ctx, subject, count)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		return []models.AdWithCampaign{}, nil
	}

	ids := make([]uuid.UUID, 0, len(ads))
	for _, ad := range ads {
		ids = append(ids, ad.ID)
	}
	if err := s.creatives.MarkServed(ctx, ids); err != nil {
		s.log.Warn("failed to mark creatives served", zap.Error(err))
	}

	// Serving counts as an impression; accounting is best-effort.
	for _, ad := range ads {
		_ = s.tracker.TrackView(ctx, ad.ID, ad.CampaignID)
	}

	return ads, nil
}
