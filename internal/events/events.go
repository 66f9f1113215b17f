// Package events carries domain events from the booking and match core to an
// external pub/sub collaborator that fans out notifications. Delivery is best
// effort: publishing happens after commit and a failure never undoes a change.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	BookingCreated   Type = "booking.created"
	BookingCancelled Type = "booking.cancelled"
	BookingConfirmed Type = "booking.confirmed"
	BookingCheckedIn Type = "booking.checked_in"
	BookingNoShow    Type = "booking.no_show"
	UserBlocked      Type = "user.blocked"

	MatchCreated            Type = "match.created"
	MatchPlayerInvited      Type = "match.player_invited"
	MatchInvitationAnswered Type = "match.invitation_answered"
	MatchJoinRequested      Type = "match.join_requested"
	MatchJoinAnswered       Type = "match.join_answered"
	MatchPlayerCheckedIn    Type = "match.player_checked_in"
	MatchTeamAssigned       Type = "match.team_assigned"
	MatchStarted            Type = "match.started"
	MatchCancelled          Type = "match.cancelled"
	MatchCompleted          Type = "match.completed"

	RatingRecorded Type = "rating.recorded"
)

// Event identifies what happened and who is involved; consumers look up
// anything else they need.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	ActorID    int64          `json:"actorId,omitempty"`
	UserID     int64          `json:"userId,omitempty"`
	BookingID  int64          `json:"bookingId,omitempty"`
	MatchID    int64          `json:"matchId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit stamps and publishes event, logging instead of returning failures.
func Emit(ctx context.Context, publisher Publisher, event Event) {
	if publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("event_id", event.ID).
			Msg("Failed to publish event")
	}
}

// LogPublisher writes events to the context logger. It is used when no broker
// is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Ctx(ctx).Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("actor_id", event.ActorID).
		Int64("user_id", event.UserID).
		Int64("booking_id", event.BookingID).
		Int64("match_id", event.MatchID).
		Time("occurred_at", event.OccurredAt).
		Msg("Domain event")
	return nil
}
