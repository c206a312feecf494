package kafka

import "time"

// Config содержит конфигурацию подключения к Kafka и публикации событий через outbox
type Config struct {
	// Enabled включает outbox dispatcher; без него события в outbox не пишутся
	Enabled bool `env:"KAFKA_ENABLED" envDefault:"false"`
	// Brokers - список брокеров через запятую:
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:19092"`
	// OrderEventsTopic - топик для событий оформленных заказов
	OrderEventsTopic string `env:"ORDER_EVENTS_TOPIC" envDefault:"bookstore.order.placed"`

	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxInterval   time.Duration `env:"OUTBOX_INTERVAL" envDefault:"2s"`
	OutboxMaxRetries int           `env:"OUTBOX_MAX_RETRIES" envDefault:"3"`
	OutboxBackoff    time.Duration `env:"OUTBOX_BACKOFF" envDefault:"500ms"`
}
