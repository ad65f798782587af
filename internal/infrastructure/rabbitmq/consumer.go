package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"location-tracking-core/internal/config"
	"location-tracking-core/internal/domain/group"
	"location-tracking-core/internal/infrastructure/redis"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
)

// Consumer applies backend control-plane messages: plan changes from the
// billing service and group membership changes from the account service.
type Consumer struct {
	client *Client
	config *config.RabbitMQConfig
	plans  *redis.PlanStore
	groups storage.GroupRepository

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(ctx context.Context, client *Client, config *config.RabbitMQConfig, plans *redis.PlanStore, groups storage.GroupRepository) *Consumer {
	cctx, cancel := context.WithCancel(ctx)
	return &Consumer{
		client: client,
		config: config,
		plans:  plans,
		groups: groups,
		ctx:    cctx,
		cancel: cancel,
	}
}

type PlanUpdateMessage struct {
	MessageID string `json:"message_id"`
	TenantID  string `json:"tenant_id"`
	Plan      string `json:"plan"`
}

type GroupAssignmentMessage struct {
	MessageID string `json:"message_id"`
	GroupID   string `json:"group_id"`
	OwnerID   string `json:"owner_id"`
	GroupName string `json:"group_name"`
	DeviceID  string `json:"device_id"`
	Name      string `json:"name"`
	Action    string `json:"action"`
}

func (c *Consumer) Start() error {
	msgs, err := c.client.Consume(
		c.config.UpdateQueue,
		c.config.ConsumerTag,
	)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.consume(msgs); err != nil {
			log.Printf("Error consuming messages: %v", err)
		}
	}()

	log.Printf("RabbitMQ consumer started on queue: %s", c.config.UpdateQueue)
	return nil
}

func (c *Consumer) consume(msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				log.Println("Delivery channel closed, waiting for reconnect")
				return nil
			}
			c.handleMessage(msg)
		}
	}
}

func (c *Consumer) handleMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
			_ = msg.Nack(false, true)
		}
	}()

	switch msg.RoutingKey {
	case "backend.plan.update":
		c.handlePlanUpdate(msg)
	case "backend.group.assignment":
		c.handleGroupAssignment(msg)
	default:
		log.Printf("Unknown routing key: %s", msg.RoutingKey)
		_ = msg.Ack(false)
	}
}

func (c *Consumer) handlePlanUpdate(msg amqp.Delivery) {
	var update PlanUpdateMessage
	if err := json.Unmarshal(msg.Body, &update); err != nil {
		log.Printf("Invalid plan update message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	if c.plans == nil {
		_ = msg.Ack(false)
		return
	}

	if err := c.plans.SetPlan(c.ctx, update.TenantID, plan.ID(update.Plan)); err != nil {
		log.Printf("Failed to store plan update for tenant %s: %v", update.TenantID, err)
		_ = msg.Nack(false, true) // requeue
		return
	}

	_ = msg.Ack(false)
	log.Printf("Applied plan update: tenant %s is now on %s", update.TenantID, update.Plan)
}

func (c *Consumer) handleGroupAssignment(msg amqp.Delivery) {
	var assignment GroupAssignmentMessage
	if err := json.Unmarshal(msg.Body, &assignment); err != nil {
		log.Printf("Failed to unmarshal group assignment: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	switch assignment.Action {
	case "add":
		if existing, err := c.groups.Get(c.ctx, assignment.GroupID); err == nil && existing == nil {
			_ = c.groups.Create(c.ctx, &group.Group{
				ID:        assignment.GroupID,
				OwnerID:   assignment.OwnerID,
				Name:      assignment.GroupName,
				CreatedAt: time.Now(),
			})
		}

		if err := c.groups.AddMember(c.ctx, &group.Member{
			GroupID:  assignment.GroupID,
			DeviceID: assignment.DeviceID,
			Name:     assignment.Name,
			JoinedAt: time.Now(),
		}); err != nil {
			log.Printf("Failed to add device %s to group %s: %v", assignment.DeviceID, assignment.GroupID, err)
			_ = msg.Nack(false, true)
			return
		}

	case "remove":
		if err := c.groups.RemoveMember(c.ctx, assignment.GroupID, assignment.DeviceID); err != nil {
			log.Printf("Failed to remove device %s from group %s: %v", assignment.DeviceID, assignment.GroupID, err)
			// Not requeued: a missing membership means the removal already happened.
		}

	default:
		log.Printf("Unknown group action: %s", assignment.Action)
		_ = msg.Nack(false, false)
		return
	}

	_ = msg.Ack(false)
}

func (c *Consumer) Stop() {
	log.Println("Stopping RabbitMQ consumer...")
	c.cancel()
	c.wg.Wait()
	log.Println("RabbitMQ consumer stopped")
}
