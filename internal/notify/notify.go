package notify

import (
	"go.uber.org/zap"

	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
)

// LogSink is the default booking.Sink: it writes structured lifecycle events
// to the application log. Downstream deployments swap in email/push senders
// behind the same interface.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(event booking.Event) {
	fields := []zap.Field{
		zap.String("booking_id", event.Booking.ID),
		zap.String("guide_id", event.Booking.GuideID),
		zap.String("traveler_id", event.Booking.TravelerID),
		zap.Time("start_at", event.Booking.StartAt),
		zap.Time("end_at", event.Booking.EndAt),
		zap.String("status", string(event.Booking.Status)),
	}
	if st := event.Settlement; st != nil {
		fields = append(fields,
			zap.String("actor_role", string(st.ActorRole)),
			zap.Int("hours_before", st.HoursBefore),
			zap.Int("refund_percent", st.RefundPercent),
			zap.Int64("refund_to_traveler", st.RefundToTraveler),
			zap.Int64("keep_by_guide", st.KeepByGuide),
		)
	}
	s.logger.Info(event.Type, fields...)
}

// NopSink discards events (tests, one-off tooling).
type NopSink struct{}

func (NopSink) Emit(booking.Event) {}
