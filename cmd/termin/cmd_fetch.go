package main

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/termin-watch/internal/adapters/berlinzms"
	"github.com/Guilhem-Bonnet/termin-watch/internal/app"
	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

var reDigits = regexp.MustCompile(`^\d+$`)

var fetchCmd = &cobra.Command{
	Use:   "fetch <service-id|service-url>",
	Short: "Fait un cycle unique et affiche le payload tel qu'envoyé aux clients",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	id := args[0]
	if !reDigits.MatchString(id) {
		if id, err = app.ServiceIDFromURL(args[0]); err != nil {
			return err
		}
	}

	client := berlinzms.New(berlinzms.Options{BaseURL: cfg.BaseURL, Email: cfg.Email, ScriptID: cfg.ScriptID})
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
	defer cancel()

	p := domain.StatusPayload{ResourceID: id, Seq: 1, Slots: domain.SlotSet{}}
	slots, err := client.Fetch(ctx, client.AppointmentsURL(id))
	p.ObservedAt = time.Now().UTC()
	if err != nil {
		p.Failure = "Error: " + err.Error()
	} else {
		p.Slots = slots
		if !slots.Empty() {
			p.LastNonEmptyAt = p.ObservedAt
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(app.ToStatusDTO(p))
}
