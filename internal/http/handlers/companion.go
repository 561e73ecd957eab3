package handlers

import (
	"context"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// GetCompanionInput is the input for the companion status.
type GetCompanionInput struct{}

// GetCompanionOutput is the output for the companion status.
type GetCompanionOutput struct {
	Body CompanionResponse
}

// CompanionCommandInput is the input for a companion command.
type CompanionCommandInput struct {
	Command string `path:"command" enum:"play-pause,play,pause,stop,next,previous,cycle-input,input,status" doc:"Command to run"`
	Body    *struct {
		Input string `json:"input,omitempty" enum:"wifi,bluetooth,optical,line-in" doc:"Input to select, required for the input command"`
	} `required:"false"`
}

// CompanionCommandOutput is the output for a companion command.
type CompanionCommandOutput struct {
	Body CompanionResponse
}

// CompanionHandler implements the companion streamer HTTP handlers.
type CompanionHandler struct {
	Control Controller
}

// GetCompanion returns the companion status from the last loop iteration.
func (h *CompanionHandler) GetCompanion(_ context.Context, _ *GetCompanionInput) (*GetCompanionOutput, error) {
	snap := h.Control.Snapshot()
	if snap.Companion == nil {
		return nil, apiError(errors.NotFoundf("no companion device configured"))
	}
	return &GetCompanionOutput{Body: CompanionFromStatus(*snap.Companion)}, nil
}

// RunCommand runs a transport or input command on the companion.
func (h *CompanionHandler) RunCommand(ctx context.Context, input *CompanionCommandInput) (*CompanionCommandOutput, error) {
	arg := ""
	if input.Body != nil {
		arg = input.Body.Input
	}
	st, err := h.Control.Companion(ctx, input.Command, arg)
	if err != nil {
		return nil, apiError(err)
	}
	return &CompanionCommandOutput{Body: CompanionFromStatus(st)}, nil
}

// Ensure CompanionHandler implements the interface at compile time.
var _ CompanionHandlers = (*CompanionHandler)(nil)

// CompanionHandlers defines the interface for companion operations.
type CompanionHandlers interface {
	GetCompanion(ctx context.Context, input *GetCompanionInput) (*GetCompanionOutput, error)
	RunCommand(ctx context.Context, input *CompanionCommandInput) (*CompanionCommandOutput, error)
}
