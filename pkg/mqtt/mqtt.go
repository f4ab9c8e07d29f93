package mqtt

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mikesmitty/aqi-gauge/pkg/monitor"
)

// ConnectWait is how long Connect waits for the broker before leaving the
// client to retry in the background.
const ConnectWait = 5 * time.Second

type Client struct {
	client      paho.Client
	clientID    string
	topicPrefix string
	qos         byte
	retained    bool
	sampleRate  int
	connectWait time.Duration
	hassSensors map[string]HassSensor
	mu          sync.Mutex
}

func NewClient(broker *url.URL, sampleRate int) *Client {
	c := &Client{}

	hostname, _ := os.Hostname()
	hostname = strings.Split(hostname, ".")[0]
	clientID := hostname
	if clientID == "" {
		now := time.Now().UnixNano()
		sum := md5.Sum([]byte(strconv.FormatInt(now, 10)))
		clientID = fmt.Sprintf("aqi-gauge-%x", sum[:4])
	}
	if sampleRate < 1 {
		sampleRate = 1
	}

	c.qos = 1
	c.connectWait = ConnectWait
	c.topicPrefix = "aqi-gauge/" + clientID
	c.clientID = clientID
	c.hassSensors = make(map[string]HassSensor)

	slog.Info("connecting to mqtt", "url", broker, "clientid", clientID)
	opts := paho.NewClientOptions().
		AddBroker(broker.String()).
		SetClientID(clientID).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second).
		SetConnectTimeout(30 * time.Second)
	c.client = paho.NewClient(opts)

	c.sampleRate = sampleRate

	return c
}

func (c *Client) TopicPrefix() string {
	return c.topicPrefix
}

func (c *Client) SetConnectWait(d time.Duration) {
	c.connectWait = d
}

// Connect starts connecting to the broker. If the broker hasn't answered
// within the connect wait the client keeps retrying in the background and
// Connect returns nil; use WaitConnected before subscribing.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.connectWait) {
		slog.Warn("mqtt broker unreachable, retrying in background", "wait", c.connectWait, "module", "mqtt")
		return nil
	}
	if err := token.Error(); err != nil {
		slog.Error("mqtt connection failed", "error", err)
		return err
	}
	return nil
}

func (c *Client) Connected() bool {
	return c.client.IsConnectionOpen()
}

// WaitConnected blocks until the broker connection is up or ctx is done.
func (c *Client) WaitConnected(ctx context.Context) error {
	if c.Connected() {
		return nil
	}
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if c.Connected() {
				return nil
			}
		}
	}
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	if token := c.client.Subscribe(topic, c.qos, handler); token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscription failed", "error", token.Error())
		return token.Error()
	}
	return nil
}

// GetPublisher publishes every sampleRate-th reading until readings is closed.
func (c *Client) GetPublisher(readings <-chan monitor.Reading) func() error {
	pm25Sensor := c.RegisterHassSensor(c.NewHassSensor("PM2.5", HassSensorPM25))
	averageSensor := c.RegisterHassSensor(c.NewHassSensor("PM2.5 Average", HassSensorPM25))
	aqiSensor := c.RegisterHassSensor(c.NewHassSensor("Air Quality Index", HassSensorAQI))
	categorySensor := c.RegisterHassSensor(c.NewHassSensor("AQI Category", HassSensorGeneric))
	dutySensor := c.RegisterHassSensor(c.NewHassSensor("Gauge Duty Cycle", HassSensorPercent))
	readingsSensor := c.RegisterHassSensor(c.NewHassSensor("Feed Readings", HassSensorGeneric))

	sample := NewSample(c.sampleRate)

	return func() error {
		for r := range readings {
			if !sample.Ready() {
				continue
			}
			slog.Debug("mqtt publishing", "field", "reading", "aqi", r.AQI, "module", "mqtt")
			c.HassPublishSensor(pm25Sensor, strconv.FormatFloat(r.PM25, 'f', 2, 64))
			c.HassPublishSensor(averageSensor, strconv.FormatFloat(r.Average, 'f', 2, 64))
			c.HassPublishSensor(aqiSensor, strconv.FormatFloat(r.AQI, 'f', 0, 64))
			c.HassPublishSensor(categorySensor, r.Category)
			c.HassPublishSensor(dutySensor, strconv.FormatFloat(r.Duty, 'f', 2, 64))
			c.HassPublishSensor(readingsSensor, strconv.Itoa(r.Readings))
		}
		slog.Debug("mqtt publisher stopped", "module", "mqtt")
		return nil
	}
}

func (p *Client) Publish(topic string, msg string) {
	t := p.client.Publish(topic, p.qos, p.retained, msg)
	go func() {
		_ = t.WaitTimeout(5 * time.Second)
		if t.Error() != nil {
			slog.Error("mqtt message publish failed", "error", t.Error())
		}
	}()
}
