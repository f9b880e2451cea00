package sleepiq

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetBeds returns every bed registered to the account.
func (c *Client) GetBeds(ctx context.Context) ([]*Bed, error) {
	data, err := c.get(ctx, "bed", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Bed]("bed", data, "beds")
}

// GetBed returns the first bed of the account.
func (c *Client) GetBed(ctx context.Context) (*Bed, error) {
	beds, err := c.GetBeds(ctx)
	if err != nil {
		return nil, err
	}
	if len(beds) == 0 {
		return nil, &MalformedResponseError{Endpoint: "bed", Err: fmt.Errorf("account has no beds")}
	}
	return beds[0], nil
}

type familyStatusEntry struct {
	BedID     *string         `json:"bedId,omitempty" sleepiq:"optional"`
	LeftSide  json.RawMessage `json:"leftSide"`
	RightSide json.RawMessage `json:"rightSide"`
}

// GetFamilyStatus returns the left and right side state of the given bed.
// Sides are tagged with bedID. A bed absent from the family status yields no sides.
func (c *Client) GetFamilyStatus(ctx context.Context, bedID string) ([]*Side, error) {
	const endpoint = "bed/familyStatus"

	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeList[familyStatusEntry](endpoint, data, "beds")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.BedID != nil && *entry.BedID != bedID {
			continue
		}

		left, err := decodeSide(endpoint, entry.LeftSide, Left, bedID)
		if err != nil {
			return nil, err
		}
		right, err := decodeSide(endpoint, entry.RightSide, Right, bedID)
		if err != nil {
			return nil, err
		}
		return []*Side{left, right}, nil
	}
	return nil, nil
}

func decodeSide(endpoint string, data json.RawMessage, side BedSide, bedID string) (*Side, error) {
	var s Side
	if err := decodeStrict(endpoint, data, &s); err != nil {
		return nil, err
	}
	s.Side = side
	s.BedID = bedID
	return &s, nil
}

// GetSleepers returns all sleeper profiles of the account.
func (c *Client) GetSleepers(ctx context.Context) ([]*Sleeper, error) {
	data, err := c.get(ctx, "sleeper", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Sleeper]("sleeper", data, "sleepers")
}
