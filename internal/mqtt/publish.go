package mqtt

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"coop-door-backend/internal/model"
)

// statusMessage is the retained payload on the status topic.
type statusMessage struct {
	model.DoorStatus
	State model.DoorState `json:"state"`
}

// Publish sends payload to topic.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishStatus publishes status retained on the status topic.
func (c *Client) PublishStatus(status model.DoorStatus) error {
	payload, err := json.Marshal(statusMessage{DoorStatus: status, State: status.State()})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return c.Publish(c.topics.Status(), payload, byte(c.cfg.QoS), true)
}

// OnStatus is a write listener for the status gateway. Failures are logged.
func (c *Client) OnStatus(status model.DoorStatus) {
	if err := c.PublishStatus(status); err != nil {
		c.log.Warn("Failed to publish door status", zap.Error(err))
	}
}

// Dispatch publishes alert on the alert topic. Failures are logged.
func (c *Client) Dispatch(alert model.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		c.log.Error("Failed to marshal alert", zap.Error(err))
		return
	}
	if err := c.Publish(c.topics.Alert(), payload, byte(c.cfg.QoS), false); err != nil {
		c.log.Warn("Failed to publish alert", zap.String("kind", string(alert.Kind)), zap.Error(err))
	}
}
