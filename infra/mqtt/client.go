package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	corechat "github.com/kilianp07/carfuel/core/chat"
	coremon "github.com/kilianp07/carfuel/core/monitoring"
	"github.com/kilianp07/carfuel/infra/logger"
)

// Default topics used when none are configured.
const (
	DefaultInTopic   = "carfuel/chat/in"
	DefaultOutPrefix = "carfuel/chat/out"
	DefaultRoom      = "default"
)

// Config defines the connection parameters for the MQTT chat adapter.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	InTopic    string          `json:"in_topic"`
	OutPrefix  string          `json:"out_prefix"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

// SetDefaults fills topics and retry settings.
func (c *Config) SetDefaults() {
	if c.InTopic == "" {
		c.InTopic = DefaultInTopic
	}
	if c.OutPrefix == "" {
		c.OutPrefix = DefaultOutPrefix
	}
	c.OutPrefix = strings.TrimSuffix(c.OutPrefix, "/")
	if c.ClientID == "" {
		c.ClientID = "carfuel-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("unknown auth_method %s", c.AuthMethod)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Reply is the payload published for every bot reply.
type Reply struct {
	ID        string `json:"id"`
	InReplyTo string `json:"in_reply_to,omitempty"`
	Room      string `json:"room"`
	User      string `json:"user,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatAdapter receives chat messages on an MQTT topic and publishes replies
// to a per-room topic.
type ChatAdapter struct {
	cli       pahoClient
	recv      corechat.Receiver
	inTopic   string
	outPrefix string
	qos       map[string]byte
	logger    logger.Logger

	maxRetries int
	backoff    time.Duration
}

// NewChatAdapter connects to the broker and subscribes to the inbound topic.
// Messages are dispatched to recv.
func NewChatAdapter(cfg Config, recv corechat.Receiver) (*ChatAdapter, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_chat")
	a := &ChatAdapter{
		recv:       recv,
		inTopic:    cfg.InTopic,
		outPrefix:  cfg.OutPrefix,
		qos:        cfg.QoS,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		if token := c.Subscribe(a.inTopic, a.qosFor("in"), a.onMessage); token.Wait() && token.Error() != nil {
			logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	// Messages can be delivered from OnConnect before Connect returns.
	a.cli = newMQTTClient(opts)
	if token := a.cli.Connect(); token.Wait() && token.Error() != nil {
		a.cli = nil
		return nil, token.Error()
	}
	return a, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Replies are published from inside message callbacks.
	opts.SetOrderMatters(false)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (a *ChatAdapter) qosFor(kind string) byte {
	if q, ok := a.qos[kind]; ok {
		return q
	}
	return 0
}

func (a *ChatAdapter) onMessage(_ paho.Client, msg paho.Message) {
	var in corechat.Incoming
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		a.logger.Errorf("failed to decode chat message: %v", err)
		return
	}
	if room := roomName(in.Room); room != in.Room {
		if in.Room != "" {
			a.logger.Warnf("invalid room %q, replying to %s", in.Room, room)
		}
		in.Room = room
	}
	a.recv.Receive(in, &roomMessage{adapter: a, in: in})
}

// Send publishes text to room.
func (a *ChatAdapter) Send(room, text string) error {
	return a.publish(Reply{Room: room, Text: text})
}

// roomName returns room when it can be used as a single topic level and
// DefaultRoom otherwise.
func roomName(room string) string {
	if room == "" || strings.ContainsAny(room, "+#/\x00") {
		return DefaultRoom
	}
	return room
}

func (a *ChatAdapter) publish(r Reply) error {
	r.Room = roomName(r.Room)
	r.ID = uuid.NewString()
	r.Timestamp = time.Now().UnixMilli()
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", a.outPrefix, r.Room)
	qos := a.qosFor("out")

	var publishErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		token := a.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			a.logger.Debugf("sent reply %s to %s", r.ID, topic)
			return nil
		}
		a.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < a.maxRetries {
			time.Sleep(a.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "room": r.Room})
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (a *ChatAdapter) Disconnect() {
	if a.cli != nil && a.cli.IsConnected() {
		a.cli.Disconnect(250)
	}
}

// roomMessage replies to the room an incoming message came from.
type roomMessage struct {
	adapter *ChatAdapter
	in      corechat.Incoming
}

func (m *roomMessage) Send(text string) error {
	return m.adapter.publish(Reply{InReplyTo: m.in.ID, Room: m.in.Room, User: m.in.User, Text: text})
}
