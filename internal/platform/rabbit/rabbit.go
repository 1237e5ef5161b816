package rabbit

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/ratelimit"

	"cpgram-backend/internal/platform/metrics"
)

// MessageBag is one queued outbound Telegram message. Broadcast delivery goes
// through the queue so the sender can pace against Bot API limits.
type MessageBag struct {
	BroadcastID string `json:"broadcast_id"`
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	PhotoURL    string `json:"photo_url,omitempty"`
	ButtonText  string `json:"button_text,omitempty"`
	ButtonURL   string `json:"button_url,omitempty"`
	Priority    uint8  `json:"priority"` // 0..10
}

type Handler func(data []byte, headers amqp.Table)

type Client struct {
	url        string
	queueName  string
	connection *amqp.Connection
	channel    *amqp.Channel
	logger     *log.Logger
}

func NewClient(url, queueName string) *Client {
	client := &Client{
		url:       url,
		queueName: queueName,
		logger:    log.New(os.Stdout, "[Rabbit] ", log.LstdFlags),
	}

	if err := client.connect(); err != nil {
		client.logger.Printf("Initial connection failed: %v. Will retry...", err)
	}

	return client
}

func (c *Client) connect() error {
	if c.connection != nil && !c.connection.IsClosed() {
		c.connection.Close()
	}
	if c.channel != nil {
		c.channel.Close()
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	c.connection = conn

	ch, err := c.connection.Channel()
	if err != nil {
		c.connection.Close()
		return err
	}
	c.channel = ch

	args := amqp.Table{
		"x-max-priority": int32(10),
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		c.channel.Close()
		c.connection.Close()
		return err
	}

	c.logger.Printf("Connected to queue: %s", c.queueName)
	return nil
}

func (c *Client) isConnectionOpen() bool {
	if c.connection == nil || c.connection.IsClosed() {
		return false
	}
	if c.channel == nil {
		return false
	}

	_, err := c.channel.QueueDeclarePassive(c.queueName, true, false, false, false, nil)
	return err == nil
}

func (c *Client) ensureConnection() error {
	if !c.isConnectionOpen() {
		c.logger.Printf("Connection is closed, reconnecting...")
		return c.connect()
	}
	return nil
}

// PublishMessage enqueues one outbound message.
func (c *Client) PublishMessage(bag MessageBag) error {
	if err := c.ensureConnection(); err != nil {
		metrics.RecordQueueMessage("published", c.queueName, false)
		return err
	}

	body, err := json.Marshal(bag)
	if err != nil {
		return err
	}

	err = c.channel.Publish(
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Priority:     bag.Priority,
			Headers: amqp.Table{
				"broadcast_id": bag.BroadcastID,
			},
		},
	)
	if err != nil {
		c.logger.Printf("Failed to publish message: %v", err)
		// Reset so the next call reconnects
		c.channel = nil
		c.connection = nil
		metrics.RecordQueueMessage("published", c.queueName, false)
		return err
	}

	metrics.RecordQueueMessage("published", c.queueName, true)
	return nil
}

// RegisterHandler starts a consumer goroutine. Delivery is paced at
// messagesPerSecond against Bot API limits, and the consumer reconnects on
// channel loss.
func (c *Client) RegisterHandler(messagesPerSecond int, handler Handler) {
	c.logger.Printf("Registering handler for queue: %s", c.queueName)

	rl := ratelimit.New(messagesPerSecond)

	go func() {
		for {
			if err := c.ensureConnection(); err != nil {
				c.logger.Printf("Reconnection failed: %v. Retrying in 5 seconds...", err)
				time.Sleep(5 * time.Second)
				continue
			}

			msgs, err := c.channel.Consume(
				c.queueName,
				"",    // consumer tag
				false, // auto-ack
				false, // exclusive
				false, // no-local
				false, // no-wait
				nil,
			)
			if err != nil {
				c.logger.Printf("Failed to register consumer: %v", err)
				c.channel = nil
				c.connection = nil
				time.Sleep(5 * time.Second)
				continue
			}

			for msg := range msgs {
				rl.Take()

				handler(msg.Body, msg.Headers)

				if err := msg.Ack(false); err != nil {
					c.logger.Printf("Failed to acknowledge message: %v", err)
					metrics.RecordQueueMessage("consumed", c.queueName, false)
				} else {
					metrics.RecordQueueMessage("consumed", c.queueName, true)
				}
			}

			c.logger.Printf("Consumer channel closed, reconnecting...")
			c.channel = nil
			c.connection = nil
		}
	}()
}

func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.connection != nil {
		c.connection.Close()
	}
}
