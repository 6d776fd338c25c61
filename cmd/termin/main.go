package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/termin-watch/internal/config"
)

var (
	serverURL  string
	timeout    time.Duration
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "termin",
	Short:         "termin-watch - surveille les créneaux de service.berlin.de",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "État du serveur et des watchers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON(cmd.OutOrStdout(), serverURL+"/api/v1/health")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version du serveur",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON(cmd.OutOrStdout(), serverURL+"/api/v1/version")
	},
}

func init() {
	def := config.Default()
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TERMIN_SERVER_URL", "http://"+def.Addr), "URL du serveur (ex: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout HTTP")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", def.DBPath, "Chemin SQLite du registre")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "Fichier YAML (ex: termin.yaml)")

	rootCmd.AddCommand(healthCmd, versionCmd, resourcesCmd, fetchCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
}

// loadConfig applique le fichier de config et les flags sur les valeurs d'env.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		if err := config.LoadFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getJSON(out io.Writer, url string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
	} else {
		out.Write(b)
		out.Write([]byte("\n"))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
