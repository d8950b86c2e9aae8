package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"carmarket/api/internal/config"
)

const mockMailTTL = 5 * time.Minute

// MockMail is what RedisSender stores for each message.
type MockMail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// RedisSender stores messages in Redis so integration tests can read them back.
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, cfg *config.Config) *RedisSender {
	return &RedisSender{client: client, from: cfg.SmtpFromAddress}
}

func mockMailKey(to, topic string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), topic)
}

// Send stores the message under the first recipient and its topic.
func (s *RedisSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	data, err := json.Marshal(MockMail{
		To:      strings.Join(msg.To, ", "),
		From:    s.from,
		Subject: msg.Subject,
		Topic:   msg.Topic,
		Body:    msg.Body,
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := mockMailKey(msg.To[0], msg.Topic)
	if err := s.client.Set(ctx, key, data, mockMailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	log.Printf("Mock email stored in Redis key '%s' (Subject: %s)", key, msg.Subject)
	return nil
}

// Fetch returns the last stored message for a recipient and topic, or
// redis.Nil when there is none.
func (s *RedisSender) Fetch(ctx context.Context, to, topic string) (*MockMail, error) {
	raw, err := s.client.Get(ctx, mockMailKey(to, topic)).Bytes()
	if err != nil {
		return nil, err
	}
	var mail MockMail
	if err := json.Unmarshal(raw, &mail); err != nil {
		return nil, fmt.Errorf("failed to decode stored email: %w", err)
	}
	return &mail, nil
}
