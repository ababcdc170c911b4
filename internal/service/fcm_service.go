package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"salun/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// FCMService sends device pushes via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService returns nil when Firebase is not configured or fails to
// initialise; a nil service sends nothing.
func NewFCMService(credentialsFile string) *FCMService {
	if credentialsFile == "" {
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.Error().Err(err).Msg("fcm: init firebase app")
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Error().Err(err).Msg("fcm: messaging client")
		return nil
	}
	return &FCMService{client: client}
}

const pushTitle = "Salun"

// Undelivered pushes are dropped after pushTTL; the notification list is
// still there when the app next opens.
var pushTTL = 24 * time.Hour

// notificationMessage builds the device push for a stored notification.
// Redirect fields travel as "redirect_<key>" data entries since FCM data
// values must be strings. Android collapses pushes of one event kind.
func notificationMessage(token, event string, n *models.Notification) *messaging.Message {
	data := map[string]string{
		"event":          event,
		"notificationId": strconv.FormatUint(uint64(n.ID), 10),
	}
	for k, v := range n.RedirectData {
		data["redirect_"+k] = fmt.Sprint(v)
	}
	return &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: pushTitle, Body: n.Message},
		Data:         data,
		Android: &messaging.AndroidConfig{
			Priority:    "high",
			CollapseKey: event,
			TTL:         &pushTTL,
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
}

// SendNotification pushes n to one device. A nil service or an empty token
// sends nothing.
func (s *FCMService) SendNotification(ctx context.Context, token, event string, n *models.Notification) error {
	if s == nil || token == "" {
		return nil
	}
	if _, err := s.client.Send(ctx, notificationMessage(token, event, n)); err != nil {
		log.Warn().Err(err).Str("event", event).Uint("notification_id", n.ID).Msg("fcm: send")
		return err
	}
	return nil
}
