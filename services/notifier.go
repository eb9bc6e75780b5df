package services

import (
	"fmt"
	"log"

	pubnub "github.com/pubnub/go"
)

// Notifier pushes booking lifecycle messages to users and admins.
type Notifier interface {
	NotifyUser(userID string, message map[string]any)
	NotifyAdmins(message map[string]any)
}

// PubNubNotifier publishes to per-user channels and a shared admin
// channel, the same channel naming the frontend subscribes to.
type PubNubNotifier struct {
	pubnub *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pubnub: pn}
}

func (n *PubNubNotifier) NotifyUser(userID string, message map[string]any) {
	channel := fmt.Sprintf("user-%s", userID)
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		log.Printf("Error publishing to %s: %v", channel, err)
	}
}

func (n *PubNubNotifier) NotifyAdmins(message map[string]any) {
	_, _, err := n.pubnub.Publish().
		Channel("admin-bookings").
		Message(message).
		Execute()
	if err != nil {
		log.Printf("Error publishing to admin-bookings: %v", err)
	}
}

// NopNotifier is used when PubNub keys are not configured.
type NopNotifier struct{}

func (NopNotifier) NotifyUser(string, map[string]any) {}
func (NopNotifier) NotifyAdmins(map[string]any)       {}
