package httphandler

import (
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

type getSyncStatusResult struct {
	Network         common.Network `json:"network"`
	Contract        string         `json:"contract"`
	CheckpointBlock *uint64        `json:"checkpointBlock"`
	CheckpointAt    *time.Time     `json:"checkpointAt"`
	State           string         `json:"state"`
	EventsInFlight  int            `json:"eventsInFlight"`
	PendingEvents   int            `json:"pendingEvents"`
	Subscribed      bool           `json:"subscribed"`
	NextRunAt       *time.Time     `json:"nextRunAt"`
}

type getSyncStatusResponse = HttpResponse[getSyncStatusResult]

func (h *HttpHandler) GetSyncStatus(ctx *fiber.Ctx) (err error) {
	status, err := h.usecase.GetSyncStatus(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetSyncStatus")
	}

	result := getSyncStatusResult{
		Network:        status.Network,
		Contract:       status.Contract,
		State:          status.State,
		EventsInFlight: status.EventsInFlight,
		PendingEvents:  status.PendingEvents,
		Subscribed:     status.Subscribed,
	}
	if status.Checkpoint != nil {
		result.CheckpointBlock = &status.Checkpoint.BlockNumber
		if !status.Checkpoint.UpdatedAt.IsZero() {
			result.CheckpointAt = &status.Checkpoint.UpdatedAt
		}
	}
	if !status.NextRunAt.IsZero() {
		result.NextRunAt = &status.NextRunAt
	}

	return errors.WithStack(ctx.JSON(getSyncStatusResponse{
		Result: &result,
	}))
}
