package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/sleepiq_100/left_pressure/config"
	Payload []byte
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
	SerialNumber string   `json:"serial_number,omitempty"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
	Min               *int     `json:"min,omitempty"`
	Max               *int     `json:"max,omitempty"`
	Step              int      `json:"step,omitempty"`
	Options           []string `json:"options,omitempty"`
	Device            haDevice `json:"device"`
}

// topics derives every topic of one bed.
type topics struct {
	prefix          string
	discoveryPrefix string
}

func (t topics) availability() string { return t.prefix + "/status" }

func (t topics) state(bedID string) string { return t.prefix + "/" + bedID + "/state" }

func (t topics) command(bedID, entity string) string {
	return t.prefix + "/" + bedID + "/" + entity + "/set"
}

// commandFilter matches the command topics of every bed.
func (t topics) commandFilter() string { return t.prefix + "/+/+/set" }

// parseCommand splits "{prefix}/{bedId}/{entity}/set".
func (t topics) parseCommand(topic string) (bedID, entity string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func nodeID(bed *sleepiq.Bed) string {
	return "sleepiq_" + bed.BedID
}

func outletEntity(o sleepiq.Outlet) string {
	return fmt.Sprintf("outlet_%d", int(o))
}

func intPtr(v int) *int { return &v }

// buildDiscovery generates HA discovery messages for the entities the bed supports.
func buildDiscovery(bed *sleepiq.Bed, t topics) []discoveryMsg {
	node := nodeID(bed)
	dev := haDevice{
		Identifiers:  []string{node},
		Manufacturer: "Sleep Number",
		Model:        bed.Model,
		Name:         bed.Name,
		SerialNumber: bed.Serial,
	}
	state := t.state(bed.BedID)

	entity := func(component, id string, d haDiscovery) discoveryMsg {
		d.UniqueID = node + "_" + id
		d.StateTopic = state
		d.AvailabilityTopic = t.availability()
		d.Device = dev
		return discoveryMsg{
			Topic:   fmt.Sprintf("%s/%s/%s/%s/config", t.discoveryPrefix, component, node, id),
			Payload: mustJSON(d),
		}
	}

	var msgs []discoveryMsg
	for _, side := range []sleepiq.BedSide{sleepiq.Left, sleepiq.Right} {
		s := string(side)
		label := strings.ToUpper(s[:1]) + s[1:]

		msgs = append(msgs,
			entity("binary_sensor", s+"_in_bed", haDiscovery{
				Name:          label + " In Bed",
				DeviceClass:   "occupancy",
				ValueTemplate: fmt.Sprintf("{{ value_json.%s.in_bed }}", s),
				PayloadOn:     "ON",
				PayloadOff:    "OFF",
			}),
			entity("sensor", s+"_pressure", haDiscovery{
				Name:          label + " Pressure",
				StateClass:    "measurement",
				Icon:          "mdi:gauge",
				ValueTemplate: fmt.Sprintf("{{ value_json.%s.pressure }}", s),
			}),
			entity("sensor", s+"_sleep_number", haDiscovery{
				Name:          label + " Sleep Number",
				StateClass:    "measurement",
				Icon:          "mdi:bed",
				ValueTemplate: fmt.Sprintf("{{ value_json.%s.sleep_number }}", s),
			}),
			entity("number", s+"_sleep_number_target", haDiscovery{
				Name:          label + " Sleep Number Target",
				CommandTopic:  t.command(bed.BedID, s+"_sleep_number"),
				ValueTemplate: fmt.Sprintf("{{ value_json.%s.sleep_number }}", s),
				Min:           intPtr(0),
				Max:           intPtr(100),
				Step:          5,
			}),
		)

		if bed.Foundation != nil {
			msgs = append(msgs, entity("select", s+"_preset", haDiscovery{
				Name:          label + " Preset",
				CommandTopic:  t.command(bed.BedID, s+"_preset"),
				ValueTemplate: fmt.Sprintf("{{ value_json.%s.preset }}", s),
				Options:       sleepiq.PresetNames(),
			}))
		}
	}

	for _, l := range bed.Lights {
		id := outletEntity(l.Outlet)
		msgs = append(msgs, entity("switch", id, haDiscovery{
			Name:          l.Name,
			CommandTopic:  t.command(bed.BedID, id),
			ValueTemplate: fmt.Sprintf("{{ value_json.outlets.%s }}", id),
			PayloadOn:     "ON",
			PayloadOff:    "OFF",
			Icon:          "mdi:lightbulb",
		}))
	}

	// Privacy state is only known when extras are fetched.
	if bed.PrivacyMode != nil {
		msgs = append(msgs, entity("switch", "privacy_mode", haDiscovery{
			Name:          "Privacy Mode",
			CommandTopic:  t.command(bed.BedID, "privacy_mode"),
			ValueTemplate: "{{ value_json.privacy_mode }}",
			PayloadOn:     "ON",
			PayloadOff:    "OFF",
			Icon:          "mdi:incognito",
		}))
	}

	return msgs
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// presetName maps the vendor's display string ("Zero G", "Watch TV") to a select option.
func presetName(vendor string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(vendor)), " ", "_")
}

// buildState flattens a bed snapshot into the JSON published on the state topic.
func buildState(bed *sleepiq.Bed) map[string]any {
	state := map[string]any{"bed_id": bed.BedID}

	sides := map[sleepiq.BedSide]*sleepiq.Side{sleepiq.Left: bed.LeftSide, sleepiq.Right: bed.RightSide}
	for side, s := range sides {
		if s == nil {
			continue
		}
		entry := map[string]any{
			"in_bed":       onOff(s.IsInBed),
			"sleep_number": s.SleepNumber,
			"pressure":     s.Pressure,
		}
		if s.Sleeper != nil {
			entry["sleeper"] = s.Sleeper.FirstName
			if s.Sleeper.Favorite != nil {
				entry["favorite"] = *s.Sleeper.Favorite
			}
		}
		if bed.Foundation != nil && bed.Foundation.Status != nil {
			preset := bed.Foundation.Status.CurrentPositionPresetLeft
			if side == sleepiq.Right {
				preset = bed.Foundation.Status.CurrentPositionPresetRight
			}
			entry["preset"] = presetName(preset)
		}
		state[string(side)] = entry
	}

	outlets := make(map[string]any, len(bed.Lights))
	for _, l := range bed.Lights {
		outlets[outletEntity(l.Outlet)] = onOff(l.On())
	}
	state["outlets"] = outlets

	if bed.PrivacyMode != nil {
		state["privacy_mode"] = onOff(bed.PrivacyMode.Enabled())
	}
	return state
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
