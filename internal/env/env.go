package env

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	AgentSecretKey   = "AGENT_SECRET"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	EventsAMQPURL    = "EVENTS_AMQP_URL"
	EventsExchange   = "EVENTS_EXCHANGE"
	EventsBuffer     = "EVENTS_BUFFER"
	LogLevel         = "LOG_LEVEL"
	HTTPAddr         = "HTTP_ADDR"
	WSAddr           = "WS_ADDR"
	CORSOrigins      = "CORS_ALLOWED_ORIGINS"
	QueueSize        = "QUEUE_SIZE"
	QueueWorkers     = "QUEUE_WORKERS"

	LivechatAcceptChatsWithNoAgents    = "LIVECHAT_ACCEPT_CHATS_WITH_NO_AGENTS"
	LivechatAssignNewConversationToBot = "LIVECHAT_ASSIGN_NEW_CONVERSATION_TO_BOT"
	LivechatShowAgentInfo              = "LIVECHAT_SHOW_AGENT_INFO"

	BusinessHoursEnabled  = "BUSINESS_HOURS_ENABLED"
	BusinessHoursTimezone = "BUSINESS_HOURS_TIMEZONE"
	BusinessHoursStart    = "BUSINESS_HOURS_START"
	BusinessHoursEnd      = "BUSINESS_HOURS_END"
	BusinessHoursHolidays = "BUSINESS_HOURS_HOLIDAYS"
	BusinessHoursWorkdays = "BUSINESS_HOURS_WORKDAYS"
)

var v = viper.New()

func init() {
	v.AutomaticEnv()
	v.SetDefault(EventsExchange, "livechat")
	v.SetDefault(EventsBuffer, 256)
	v.SetDefault(LogLevel, "info")
	v.SetDefault(HTTPAddr, ":8080")
	v.SetDefault(WSAddr, ":8083")
	v.SetDefault(CORSOrigins, "http://localhost:3000")
	v.SetDefault(QueueSize, 100)
	v.SetDefault(QueueWorkers, 10)
	v.SetDefault(BusinessHoursTimezone, "UTC")
	v.SetDefault(BusinessHoursStart, "09:00")
	v.SetDefault(BusinessHoursEnd, "17:00")
	v.SetDefault(BusinessHoursHolidays, "us")
	v.SetDefault(BusinessHoursWorkdays, "mon,tue,wed,thu,fri")
}

// Require fails when any of the given keys has no value.
func Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Get(key string) string {
	return v.GetString(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := v.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(key string) []string {
	var out []string
	for _, part := range strings.Split(v.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetBool(key string) bool {
	return v.GetBool(key)
}

func GetInt(key string) int {
	return v.GetInt(key)
}

func MustGet(key string) string {
	val := v.GetString(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}

// Set overrides a value for the running process. Intended for tests and CLI flags.
func Set(key string, value any) {
	v.Set(key, value)
}
