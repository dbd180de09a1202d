package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/events"
	"go.uber.org/zap"
)

// ClickRecorder is the tracker repository surface.
type ClickRecorder interface {
	RecordView(ctx context.Context, creativeID, campaignID uuid.UUID) error
	RecordClick(ctx context.Context, creativeID, campaignID uuid.UUID) (billed bool, err error)
}

// TrackerService records impressions and clicks. Both operations are
// best-effort side effects: they return their outcome, but callers on the
// user-facing path are expected to discard it — advertiser accounting must
// never break a redirect or a page render. The service logs its own
// failures so discarded errors are still visible.
type TrackerService struct {
	tracker   ClickRecorder
	publisher events.Publisher
	log       *zap.Logger
}

func NewTrackerService(tracker ClickRecorder, publisher events.Publisher, log *zap.Logger) *TrackerService {
	return &TrackerService{tracker: tracker, publisher: publisher, log: log}
}

func (s *TrackerService) TrackView(ctx context.Context, creativeID, campaignID uuid.UUID) error {
	if err := s.tracker.RecordView(ctx, creativeID, campaignID); err != nil {
		s.log.Warn("view tracking failed",
			zap.String("creative_id", creativeID.String()),
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("track view: %w", err)
	}

	_ = s.publisher.Publish(ctx, events.StreamAds, events.Event{
		Type: events.EventAdImpression,
		Payload: map[string]any{
			"creative_id": creativeID.String(),
			"campaign_id": campaignID.String(),
		},
	})
	return nil
}

func (s *TrackerService) TrackClick(ctx context.Context, creativeID, campaignID uuid.UUID) error {
	billed, err := s.tracker.RecordClick(ctx, creativeID, campaignID)
	if err != nil {
		s.log.Warn("click tracking failed",
			zap.String("creative_id", creativeID.String()),
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("track click: %w", err)
	}

	_ = s.publisher.Publish(ctx, events.StreamAds, events.Event{
		Type: events.EventAdClick,
		Payload: map[string]any{
			"creative_id": creativeID.String(),
			"campaign_id": campaignID.String(),
			"billed":      billed,
		},
	})
	return nil
}
