package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinktok/thinktok/internal/config"
	"github.com/thinktok/thinktok/internal/media"
)

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check media tools and API credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := a.mediaRunner().ProbeTools(cmd.Context())
			printTool(a, "ffmpeg", caps.FFmpeg)
			printTool(a, "ffprobe", caps.FFprobe)

			if err := config.RequireCredentials(a.cfg, true, false); err != nil {
				fmt.Fprintf(a.out, "narration:    %v\n", err)
			} else {
				fmt.Fprintln(a.out, "narration:    ok")
			}
			if err := config.RequireCredentials(a.cfg, false, true); err != nil {
				fmt.Fprintf(a.out, "illustration: %v\n", err)
			} else {
				fmt.Fprintf(a.out, "illustration: ok (%s)\n", a.cfg.ImageProvider())
			}

			if !caps.Ready() {
				return errors.New("media tools are not ready")
			}
			return nil
		},
	}
}

func printTool(a *app, name string, info media.ToolInfo) {
	if info.Available {
		fmt.Fprintf(a.out, "%-13s %s\n", name+":", info.Version)
		return
	}
	fmt.Fprintf(a.out, "%-13s missing (%s)\n", name+":", info.Error)
}
