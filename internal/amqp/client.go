package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "conti/internal/log"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	log          *slog.Logger
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		log:          applog.ForComponent("amqp"),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name on a direct exchange
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishExpenseSync asks the worker to mirror the expense with the given ID.
func (c *Client) PublishExpenseSync(ctx context.Context, id int64) error {
	env, err := NewSyncEnvelope(id)
	if err != nil {
		return fmt.Errorf("build sync envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}

	c.log.InfoContext(ctx, "Published expense sync message",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishExpenseDelete asks the worker to remove the expense row from the
// backup sheet.
func (c *Client) PublishExpenseDelete(ctx context.Context, msg ExpenseDeleteMessage) error {
	env, err := NewDeleteEnvelope(msg)
	if err != nil {
		return fmt.Errorf("build delete envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}

	c.log.InfoContext(ctx, "Published expense delete message",
		"id", msg.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeMessages consumes the sync queue and dispatches to the handlers by
// envelope type. Handler errors requeue the delivery; malformed messages are
// dropped.
func (c *Client) ConsumeMessages(
	ctx context.Context,
	syncHandler func(context.Context, *ExpenseSyncMessage) error,
	deleteHandler func(context.Context, *ExpenseDeleteMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log.InfoContext(ctx, "Started consuming sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				c.log.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			var handlerErr error
			switch env.Type {
			case TypeExpenseSync:
				msg, err := env.SyncMessage()
				if err != nil {
					c.log.ErrorContext(ctx, "Malformed sync payload, dropping", "error", err)
					delivery.Nack(false, false)
					continue
				}
				c.log.InfoContext(ctx, "Processing expense sync message", "id", msg.ID)
				handlerErr = syncHandler(ctx, msg)
			case TypeExpenseDelete:
				msg, err := env.DeleteMessage()
				if err != nil {
					c.log.ErrorContext(ctx, "Malformed delete payload, dropping", "error", err)
					delivery.Nack(false, false)
					continue
				}
				c.log.InfoContext(ctx, "Processing expense delete message", "id", msg.ID)
				handlerErr = deleteHandler(ctx, msg)
			default:
				c.log.ErrorContext(ctx, "Unknown message type, dropping", "type", env.Type)
				delivery.Nack(false, false)
				continue
			}

			if handlerErr != nil {
				c.log.ErrorContext(ctx, "Failed to handle message",
					"error", handlerErr,
					"type", env.Type)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
