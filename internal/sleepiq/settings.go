package sleepiq

import (
	"context"
	"net/url"
)

// GetPrivacyMode returns whether the bed is paused.
func (c *Client) GetPrivacyMode(ctx context.Context, bedID string) (*PrivacyMode, error) {
	var p PrivacyMode
	if err := c.getInto(ctx, bedEndpoint(bedID, "pauseMode"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetResponsiveAir returns the responsive air settings.
func (c *Client) GetResponsiveAir(ctx context.Context, bedID string) (*ResponsiveAir, error) {
	var r ResponsiveAir
	if err := c.getInto(ctx, bedEndpoint(bedID, "responsiveAir"), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetFootWarming returns the foot warmer state.
func (c *Client) GetFootWarming(ctx context.Context, bedID string) (*FootWarming, error) {
	var f FootWarming
	if err := c.getInto(ctx, bedEndpoint(bedID, "foundation/footwarming"), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFavorite returns the favorite sleep number of both sides.
func (c *Client) GetFavorite(ctx context.Context, bedID string) (*SleepNumberFavorite, error) {
	var f SleepNumberFavorite
	if err := c.getInto(ctx, bedEndpoint(bedID, "sleepNumberFavorite"), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetSleepNumber returns the current setting of one side.
func (c *Client) GetSleepNumber(ctx context.Context, bedID string, side BedSide) (int, error) {
	var v struct {
		SleepNumber int `json:"sleepNumber"`
	}
	query := url.Values{"side": {side.code()}}
	if err := c.getInto(ctx, bedEndpoint(bedID, "sleepNumber"), query, &v); err != nil {
		return 0, err
	}
	return v.SleepNumber, nil
}

func (c *Client) getInto(ctx context.Context, endpoint string, query url.Values, v any) error {
	data, err := c.get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	return decodeStrict(endpoint, data, v)
}
