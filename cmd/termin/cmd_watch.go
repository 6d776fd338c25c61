package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Affiche les mises à jour en direct (WebSocket)",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := "ws" + strings.TrimPrefix(strings.TrimRight(serverURL, "/"), "http") + "/api/v1/ws"

	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	out := cmd.OutOrStdout()
	for {
		var env app.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || ws.CloseStatus(err) == ws.StatusNormalClosure {
				return nil
			}
			return err
		}
		d := env.Data
		if d.Status != 200 {
			msg := ""
			if d.Message != nil {
				msg = *d.Message
			}
			fmt.Fprintf(out, "%s  %-8s  %s\n", d.Time, d.ResourceID, msg)
			continue
		}
		if len(d.AppointmentDates) == 0 {
			fmt.Fprintf(out, "%s  %-8s  no appointments\n", d.Time, d.ResourceID)
			continue
		}
		fmt.Fprintf(out, "%s  %-8s  %d appointments: %s\n", d.Time, d.ResourceID, len(d.AppointmentDates), strings.Join(d.AppointmentDates, ", "))
	}
}
