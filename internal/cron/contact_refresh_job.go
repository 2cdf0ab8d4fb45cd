package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sonaskin/storefront-backend/internal/settings"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const contactRefreshEvery = 6 * time.Hour

type contactRefresher interface {
	RefreshContact(ctx context.Context) (settings.ContactInfo, error)
}

// NewContactRefreshJob rebuilds the long-lived contact snapshot so storefront
// reads rarely hit an expired entry.
func NewContactRefreshJob(logg *logger.Logger, refresher contactRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("settings service required")
	}
	return &contactRefreshJob{logg: logg, settings: refresher}, nil
}

type contactRefreshJob struct {
	logg     *logger.Logger
	settings contactRefresher
}

func (j *contactRefreshJob) Name() string         { return "contact-refresh" }
func (j *contactRefreshJob) Every() time.Duration { return contactRefreshEvery }

func (j *contactRefreshJob) Run(ctx context.Context) error {
	info, err := j.settings.RefreshContact(ctx)
	if err != nil {
		return fmt.Errorf("refresh contact info: %w", err)
	}
	ctx = j.logg.WithField(ctx, "extra_fields", len(info.Extra))
	j.logg.Info(ctx, "contact info refreshed")
	return nil
}
