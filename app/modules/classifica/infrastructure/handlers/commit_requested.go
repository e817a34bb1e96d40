package classificahandlers

import (
	"context"
	"log/slog"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// HandleCommitRequested commits the classifica named by a CommitRequestedV1
// event. Transient errors are returned so the router retries the message.
// Requests that can never succeed are acknowledged and answered with a
// CommitFailedV1 message.
func (h *ClassificaHandlers) HandleCommitRequested(msg *message.Message) ([]*message.Message, error) {
	ctx := observability.WithCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
	ctx, span := h.tracer.Start(ctx, "ClassificaHandlers.HandleCommitRequested")
	defer span.End()

	h.logger.InfoContext(ctx, "HandleCommitRequested triggered",
		observability.CorrelationAttr(ctx),
		slog.String("message_id", msg.UUID),
	)

	payload, err := classificaevents.Decode[classificaevents.CommitRequestedPayloadV1](msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Dropping undecodable commit request",
			observability.CorrelationAttr(ctx),
			observability.ErrorAttr(err),
		)
		return h.commitFailed(ctx, classificaevents.CommitFailedPayloadV1{Reason: err.Error()})
	}

	result, err := h.service.Commit(ctx, classificaservice.CommitRequest{
		Source:       payload.Source,
		TournamentID: payload.TournamentID,
		Overrides:    payload.Overrides,
	})
	if err != nil {
		if !classificaservice.IsPermanent(err) {
			h.logger.ErrorContext(ctx, "Commit request failed, will retry",
				observability.CorrelationAttr(ctx),
				slog.String("tournament_id", payload.TournamentID),
				observability.ErrorAttr(err),
			)
			return nil, err
		}

		h.logger.WarnContext(ctx, "Commit request rejected",
			observability.CorrelationAttr(ctx),
			slog.String("tournament_id", payload.TournamentID),
			observability.ErrorAttr(err),
		)
		return h.commitFailed(ctx, classificaevents.CommitFailedPayloadV1{
			TournamentID: payload.TournamentID,
			Source:       payload.Source.Describe(),
			Reason:       err.Error(),
		})
	}

	h.logger.InfoContext(ctx, "Commit request completed",
		observability.CorrelationAttr(ctx),
		slog.String("tournament_id", result.TournamentID),
		slog.Int("saved", result.Saved),
	)
	return nil, nil
}

func (h *ClassificaHandlers) commitFailed(ctx context.Context, payload classificaevents.CommitFailedPayloadV1) ([]*message.Message, error) {
	out, err := classificaevents.NewMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	out.Metadata.Set("topic", classificaevents.CommitFailedV1)
	return []*message.Message{out}, nil
}
