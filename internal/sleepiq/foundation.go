package sleepiq

import (
	"context"
	"net/url"
	"strconv"
)

func bedEndpoint(bedID, resource string) string {
	return "bed/" + url.PathEscape(bedID) + "/" + resource
}

// GetFoundation returns the foundation system info of a bed.
func (c *Client) GetFoundation(ctx context.Context, bedID string) (*Foundation, error) {
	endpoint := bedEndpoint(bedID, "foundation/system")
	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var f Foundation
	if err := decodeStrict(endpoint, data, &f); err != nil {
		return nil, err
	}
	f.BedID = bedID
	return &f, nil
}

// GetFoundationStatus returns actuator positions and motor state.
func (c *Client) GetFoundationStatus(ctx context.Context, bedID string) (*FoundationStatus, error) {
	endpoint := bedEndpoint(bedID, "foundation/status")
	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var s FoundationStatus
	if err := decodeStrict(endpoint, data, &s); err != nil {
		return nil, err
	}
	s.BedID = bedID
	return &s, nil
}

// GetLight returns one outlet, or nil when the bed has no such outlet.
func (c *Client) GetLight(ctx context.Context, bedID string, outlet Outlet) (*Light, error) {
	endpoint := bedEndpoint(bedID, outletEndpoint)
	data, err := c.get(ctx, endpoint, url.Values{"outletId": {strconv.Itoa(int(outlet))}})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var l Light
	if err := decodeStrict(endpoint, data, &l); err != nil {
		return nil, err
	}
	l.Name = l.Outlet.Name()
	return &l, nil
}

// GetLights queries every outlet in Outlets order and returns those present.
func (c *Client) GetLights(ctx context.Context, bedID string) ([]*Light, error) {
	lights := make([]*Light, 0, len(Outlets))
	for _, outlet := range Outlets {
		l, err := c.GetLight(ctx, bedID, outlet)
		if err != nil {
			return nil, err
		}
		if l != nil {
			lights = append(lights, l)
		}
	}
	return lights, nil
}
