package config

import "time"

// StorageDriver selects the persistence adapter for rooms and messages
type StorageDriver string

const (
	// StorageMongo rooms and messages in MongoDB
	StorageMongo StorageDriver = "mongo"
	// StoragePostgres rooms and messages in PostgreSQL through gorm
	StoragePostgres StorageDriver = "postgres"
	// StorageMemory in-process store, local development only
	StorageMemory StorageDriver = "memory"
)

// EventDriver selects the outbound chat event stream
type EventDriver string

const (
	// EventNone events are not exported
	EventNone EventDriver = ""
	// EventKafka export to a kafka topic
	EventKafka EventDriver = "kafka"
	// EventRabbitMQ export to a rabbitmq exchange
	EventRabbitMQ EventDriver = "rabbitmq"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string `mapstructure:"port"`
	GRPCPort string `mapstructure:"grpc_port"`

	Storage   StorageDriver  `mapstructure:"storage"`
	MongoSQL  DatabaseConfig `mapstructure:"mongo"`
	Postgres  DatabaseConfig `mapstructure:"pg"`
	Directory DatabaseConfig `mapstructure:"directory"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Events    EventsConfig   `mapstructure:"events"`
	JWT       JWTConfig      `mapstructure:"jwt"`
	Room      RoomConfig     `mapstructure:"chat"`
}

// RoomConfig chat tunables
type RoomConfig struct {
	PageSize         int           `mapstructure:"page_size"`
	MaxPageSize      int           `mapstructure:"max_page_size"`
	MaxMessageLength int           `mapstructure:"max_message_length"`
	SendBuffer       int           `mapstructure:"send_buffer"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	SymmetricFanout  bool          `mapstructure:"symmetric_fanout"`
}

// JWTConfig definition bearer credential setting
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Enable  bool   `mapstructure:"enable"`
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
	Channel string `mapstructure:"channel"`
}

// EventsConfig definition chat event stream setting
type EventsConfig struct {
	Driver        EventDriver `mapstructure:"driver"`
	Brokers       []string    `mapstructure:"brokers"`
	Topic         string      `mapstructure:"topic"`
	URL           string      `mapstructure:"url"`
	Exchange      string      `mapstructure:"exchange"`
	RetryInterval int         `mapstructure:"retry_interval"`
	RetryCount    int         `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Defaults fill zero values with the service defaults
func (c *Chat) Defaults() {
	if c.Port == "" {
		c.Port = "8084"
	}
	if c.GRPCPort == "" {
		c.GRPCPort = "50054"
	}
	if c.Storage == "" {
		c.Storage = StorageMongo
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "chat:deliveries"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "chat-events"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "chat.events"
	}
	c.Room.Defaults()
}

// Defaults fill zero values of the chat tunables
func (r *RoomConfig) Defaults() {
	if r.PageSize <= 0 {
		r.PageSize = 50
	}
	if r.MaxPageSize <= 0 {
		r.MaxPageSize = 100
	}
	if r.MaxMessageLength <= 0 {
		r.MaxMessageLength = 1000
	}
	if r.SendBuffer <= 0 {
		r.SendBuffer = 64
	}
	if r.PingInterval <= 0 {
		r.PingInterval = 30 * time.Second
	}
}
