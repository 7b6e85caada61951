package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/trackerctl/internal/client/services"
	"github.com/dmitrijs2005/trackerctl/internal/common"
)

// Image submits the image at path for detection and reports where the
// annotated copy was written.
func (a *App) Image(ctx context.Context, path string) error {
	if _, err := a.sessionService.RequireSession(ctx); err != nil {
		if errors.Is(err, common.ErrNoSession) {
			printlnFn("Please login first")
			return nil
		}
		return err
	}

	out, err := a.detectService.ProcessImage(ctx, path, a.settings())
	if err != nil {
		a.reportDetectError(ctx, err)
		return err
	}

	printlnFn("Annotated image saved to", out)
	return nil
}

// Video submits the video at path for whole-file analysis and reports the
// downloaded artifacts and the analysis summary.
func (a *App) Video(ctx context.Context, path string) error {
	if _, err := a.sessionService.RequireSession(ctx); err != nil {
		if errors.Is(err, common.ErrNoSession) {
			printlnFn("Please login first")
			return nil
		}
		return err
	}

	printlnFn("Uploading video, this may take a while...")

	out, err := a.detectService.ProcessVideo(ctx, path, a.settings())
	if err != nil {
		a.reportDetectError(ctx, err)
		return err
	}

	printlnFn("Annotated video saved to", out.VideoPath)
	if out.PlotPath != "" {
		printlnFn("Analysis plot saved to", out.PlotPath)
	}
	if out.Stats != "" {
		printlnFn("Statistics:")
		printlnFn(out.Stats)
	}
	return nil
}

func (a *App) reportDetectError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBusy):
		printlnFn("Another request of this kind is still in progress")
	case errors.Is(err, common.ErrValidation):
		printlnFn("Cannot read input file:", err.Error())
	default:
		a.log.Error(ctx, "detection request failed", "error", err)
		printlnFn("Request failed:", err.Error())
	}
}
