// schoolctl is a small operator CLI over the school backend: sessions,
// student roster, discipline records and parent visits from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godeps/schoolsdk-go/pkg/catalog"
	"github.com/godeps/schoolsdk-go/pkg/client"
	"github.com/godeps/schoolsdk-go/pkg/config"
	"github.com/godeps/schoolsdk-go/pkg/school"
	"github.com/godeps/schoolsdk-go/pkg/session"
	"github.com/godeps/schoolsdk-go/pkg/telemetry"
)

type rootOptions struct {
	JSON bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	var tel *telemetry.Manager
	cmd := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Administer the school backend from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tel, err = setupTelemetry(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if tel == nil {
				return nil
			}
			telemetry.SetDefault(nil)
			return tel.Shutdown(cmd.Context())
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "emit JSON instead of tables")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newStudentsCommand(opts))
	cmd.AddCommand(newDisciplineCommand(opts))
	cmd.AddCommand(newVisitsCommand(opts))
	cmd.AddCommand(newYearsCommand(opts))
	cmd.AddCommand(newClassesCommand(opts))
	cmd.AddCommand(newDossierCommand(opts))
	return cmd
}

// setupTelemetry stands up OTLP trace export and registers the manager as
// the process default. An empty endpoint leaves telemetry off and returns
// nil.
func setupTelemetry(ctx context.Context, cfg config.Config) (*telemetry.Manager, error) {
	if strings.TrimSpace(cfg.TelemetryEndpoint) == "" {
		return nil, nil
	}
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ExporterConfig{
		Endpoint: cfg.TelemetryEndpoint,
		Insecure: cfg.TelemetryInsecure,
	}, nil)
	if err != nil {
		return nil, err
	}
	mgr, err := telemetry.NewManager(telemetry.Config{
		ServiceName:    "schoolctl",
		TracerProvider: tp,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	telemetry.SetDefault(mgr)
	return mgr, nil
}

// buildSchool stands up the full client stack from configuration. Every
// subcommand goes through here.
func buildSchool() (*school.School, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	sess := session.NewManager(session.NewFileStore(cfg.TokenFile))
	if err := sess.Initialize(); err != nil {
		return nil, err
	}
	copts := []client.Option{
		client.WithTimeouts(cfg.ReadTimeout, cfg.UploadTimeout),
	}
	if tel := telemetry.Default(); tel != nil {
		copts = append(copts, client.WithTelemetry(tel))
	}
	c, err := client.New(cfg.BaseURL, sess, copts...)
	if err != nil {
		return nil, err
	}
	opts := []school.Option{}
	if cfg.CatalogFile != "" {
		cat, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, school.WithCatalog(cat))
	}
	return school.New(c, opts...)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "schoolctl:", err)
		os.Exit(1)
	}
}
