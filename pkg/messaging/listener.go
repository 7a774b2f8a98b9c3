package messaging

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/common"
	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	if err := DefineTopic(ch, prefix, topic); err != nil {
		return nil, err
	}
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	if err = ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

// ListenToTopic consumes topic until the channel closes. A delivery whose
// handler fails is rejected without requeue; the rest are acked.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, log *zap.Logger, handle func(amqp.Delivery) error) error {
	msgs, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}
	go func() {
		defer ch.Close()
		for d := range msgs {
			if err := handle(d); err != nil {
				log.Warn("error processing message", zap.String("topic", string(topic)), zap.Error(err))
				_ = d.Reject(false)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

// Invalidator refreshes state after category changes arrive.
type Invalidator func(changes []CategoryChange)

// CategoryListener batches category_changed messages so a burst of edits
// triggers a single invalidation.
type CategoryListener struct {
	queue *common.QueueHandler[CategoryChange]
	log   *zap.Logger
}

func NewCategoryListener(invalidate Invalidator, interval time.Duration, log *zap.Logger) *CategoryListener {
	return &CategoryListener{
		queue: common.NewQueueHandler(func(changes []CategoryChange) {
			log.Info("category change batch", zap.Int("changes", len(changes)))
			invalidate(changes)
		}, 1000, interval),
		log: log,
	}
}

// Handle decodes one delivery body and queues it.
func (l *CategoryListener) Handle(d amqp.Delivery) error {
	var change CategoryChange
	if err := jsoncompat.Unmarshal(d.Body, &change); err != nil {
		return err
	}
	l.log.Debug("category change received", zap.Strings("category_ids", change.CategoryIds))
	l.queue.Add(change)
	return nil
}

func (l *CategoryListener) Listen(conn *amqp.Connection, prefix string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	return ListenToTopic(ch, prefix, CategoryChanged, l.log, l.Handle)
}

// Close flushes pending changes.
func (l *CategoryListener) Close() {
	l.queue.Close()
}
