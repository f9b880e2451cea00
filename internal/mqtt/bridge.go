// Package mqtt exposes bed snapshots and commands to Home Assistant over MQTT.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/sleepiqd/internal/actions"
	"github.com/dokzlo13/sleepiqd/internal/eventbus"
	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	DiscoveryPrefix string
}

// Commander runs bed commands. *actions.Invoker implements it.
type Commander interface {
	InvokeWithSource(ctx context.Context, name string, args map[string]any, idempotencyKey, source string) error
}

// publisher is the part of pahomqtt.Client the bridge publishes through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// subscriber is the part of pahomqtt.Client the bridge subscribes through.
type subscriber interface {
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
}

const (
	commandTimeout   = 30 * time.Second
	subscribeTimeout = 10 * time.Second
)

// Bridge publishes HA discovery and state for each snapshot and turns
// command topic messages into bed commands.
type Bridge struct {
	client    pahomqtt.Client
	pub       publisher
	commander Commander
	topics    topics

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	latest    *sleepiq.Bed
	announced map[string]string // bed id -> discovery signature
}

func newBridge(cfg Config, commander Commander) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		commander: commander,
		topics:    topics{prefix: cfg.TopicPrefix, discoveryPrefix: cfg.DiscoveryPrefix},
		ctx:       ctx,
		cancel:    cancel,
		announced: make(map[string]string),
	}
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(cfg Config, commander Commander) (*Bridge, error) {
	b := newBridge(cfg, commander)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(b.topics.availability(), "offline", 1, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
			b.onConnect(c)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.client = client
	b.pub = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		b.cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		b.cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return b, nil
}

func (b *Bridge) onConnect(c pahomqtt.Client) {
	b.publish(b.topics.availability(), []byte("online"), true)

	// Broker may have lost retained discovery; announce again.
	b.mu.Lock()
	b.announced = make(map[string]string)
	latest := b.latest
	b.mu.Unlock()
	if latest != nil {
		b.HandleSnapshot(latest)
	}

	if err := b.subscribe(c, subscribeTimeout); err != nil {
		log.Error().Err(err).Msg("MQTT commands unavailable until the next reconnect")
	}
}

// subscribe registers the command topic handler and waits for the broker to confirm it.
func (b *Bridge) subscribe(s subscriber, timeout time.Duration) error {
	filter := b.topics.commandFilter()
	token := s.Subscribe(filter, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		go b.handleCommand(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", filter, err)
	}
	log.Debug().Str("filter", filter).Msg("Subscribed to MQTT command topics")
	return nil
}

// Start subscribes the bridge to snapshot events.
func (b *Bridge) Start(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeSnapshot, func(e eventbus.Event) {
		if e.Bed != nil {
			b.HandleSnapshot(e.Bed)
		}
	})
	log.Info().Str("prefix", b.topics.prefix).Msg("MQTT bridge started")
}

// Stop publishes offline state and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	b.publish(b.topics.availability(), []byte("offline"), true)
	if b.client != nil {
		b.client.Disconnect(1000)
	}
	log.Info().Msg("MQTT bridge stopped")
}

// HandleSnapshot announces entities not yet known to HA and publishes the bed state.
func (b *Bridge) HandleSnapshot(bed *sleepiq.Bed) {
	msgs := buildDiscovery(bed, b.topics)
	signature := discoverySignature(msgs)

	b.mu.Lock()
	b.latest = bed
	fresh := b.announced[bed.BedID] != signature
	b.announced[bed.BedID] = signature
	b.mu.Unlock()

	if fresh {
		for _, msg := range msgs {
			b.publish(msg.Topic, msg.Payload, true)
		}
		log.Info().Str("bed_id", bed.BedID).Int("entities", len(msgs)).Msg("Published HA discovery")
	}

	b.publish(b.topics.state(bed.BedID), mustJSON(buildState(bed)), true)
}

func discoverySignature(msgs []discoveryMsg) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Topic)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	bedID, entity, ok := b.topics.parseCommand(topic)
	if !ok {
		log.Warn().Str("topic", topic).Msg("Ignoring malformed command topic")
		return
	}

	name, args, err := commandFor(entity, payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Invalid MQTT command")
		return
	}
	args["bed_id"] = bedID

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	// Every message is a new command.
	if err := b.commander.InvokeWithSource(ctx, name, args, uuid.NewString(), "mqtt"); err != nil {
		log.Error().Err(err).Str("command", name).Str("bed_id", bedID).Msg("MQTT command failed")
	}
}

var errUnknownEntity = errors.New("unknown command entity")

// commandFor maps a command entity and its payload to a bed command.
// The "command" entity takes a JSON body {"command": name, "args": {...}}.
func commandFor(entity string, payload []byte) (string, map[string]any, error) {
	value := strings.TrimSpace(string(payload))

	if entity == "command" {
		var body struct {
			Command string         `json:"command"`
			Args    map[string]any `json:"args"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", nil, fmt.Errorf("invalid command JSON: %w", err)
		}
		if body.Command == "" {
			return "", nil, errors.New("command JSON has no command")
		}
		if body.Args == nil {
			body.Args = make(map[string]any)
		}
		return body.Command, body.Args, nil
	}

	if entity == "privacy_mode" {
		return actions.CommandPrivacyMode, map[string]any{"on": value}, nil
	}

	if n, found := strings.CutPrefix(entity, "outlet_"); found {
		outlet, err := strconv.Atoi(n)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s", errUnknownEntity, entity)
		}
		return actions.CommandLight, map[string]any{"outlet": outlet, "on": value}, nil
	}

	side, rest, found := strings.Cut(entity, "_")
	if !found || (side != string(sleepiq.Left) && side != string(sleepiq.Right)) {
		return "", nil, fmt.Errorf("%w: %s", errUnknownEntity, entity)
	}
	switch rest {
	case "sleep_number":
		return actions.CommandSleepNumber, map[string]any{"side": side, "value": value}, nil
	case "preset":
		return actions.CommandPreset, map[string]any{"side": side, "preset": value}, nil
	case "responsive_air":
		return actions.CommandResponsiveAir, map[string]any{"side": side, "on": value}, nil
	case "foot_warming":
		return actions.CommandFootWarming, map[string]any{"side": side, "level": value}, nil
	}
	return "", nil, fmt.Errorf("%w: %s", errUnknownEntity, entity)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	if b.pub == nil {
		return
	}
	token := b.pub.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timeout")
		} else if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish error")
		}
	}()
}
