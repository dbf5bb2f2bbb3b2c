package config

import "time"

// MessagingConfig configures the RabbitMQ event publisher, the audit
// consumer and the PubNub realtime channel.  An empty AMQPURL or PubNub
// publish key disables the corresponding component.
type MessagingConfig struct {
	AMQPURL            string
	AMQPDialTimeout    time.Duration
	AuditLogPath       string
	AuditConsumer      bool
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
}

// LoadMessagingConfig reads AMQP_* and PUBNUB_* variables.
func LoadMessagingConfig() MessagingConfig {
	return MessagingConfig{
		AMQPURL:            envStr("AMQP_URL", ""),
		AMQPDialTimeout:    envDur("AMQP_DIAL_TIMEOUT", 3*time.Second),
		AuditLogPath:       envStr("AUDIT_LOG_PATH", "logs/events.log"),
		AuditConsumer:      envBool("AUDIT_CONSUMER_ENABLED", true),
		PubNubPublishKey:   envStr("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: envStr("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    envStr("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       envStr("PUBNUB_USER_ID", "venuex-api"),
	}
}
