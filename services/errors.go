package services

import "errors"

var (
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrForbidden               = errors.New("forbidden")
	ErrNoImageAvailable        = errors.New("no image available for post")
	ErrCampaignAlreadyExpanded = errors.New("campaign already expanded")
	ErrCampaignInactive        = errors.New("campaign is inactive")
	ErrImageRequired           = errors.New("an image is required")
	ErrValidation              = errors.New("invalid request")
)
