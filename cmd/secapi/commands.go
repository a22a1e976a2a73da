package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/sec-api-client/internal/server"
	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/report"
	"github.com/Sternrassler/sec-api-client/pkg/retriever"
)

// reportFlags are shared by html and latest.
type reportFlags struct {
	sections []string
	workers  int
	format   string
	output   string
	refresh  bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.sections, "sections", "s", nil, "Section ids to fetch, in order (default: all sections of the form)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Parallel extractor requests (default: workers from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "html", "Output format (html, markdown)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "Ignore cached sections and fetch them again")
}

func (f *reportFlags) options(defaultWorkers int) (retriever.Options, error) {
	if f.format != "html" && f.format != "markdown" {
		return retriever.Options{}, fmt.Errorf("unknown format %q (want html or markdown)", f.format)
	}

	sections, err := edgar.ParseSections(f.sections)
	if err != nil {
		return retriever.Options{}, err
	}

	workers := f.workers
	if workers == 0 {
		workers = defaultWorkers
	}
	return retriever.Options{
		Sections: sections,
		Parallel: workers > 1,
		Workers:  workers,
		Refresh:  f.refresh,
	}, nil
}

func (f *reportFlags) write(cmd *cobra.Command, rep *report.Report) error {
	body := rep.HTML()
	if f.format == "markdown" {
		var err error
		if body, err = rep.Markdown(); err != nil {
			return err
		}
	}

	if f.output == "" || f.output == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(f.output, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("path", f.output).Int("bytes", len(body)).Msg("Report written")
	return nil
}

func htmlCmd(a *app) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "html <form> <url>",
		Short: "Fetch a filing as one marked-up document",
		Example: `  secapi html 10-K https://www.sec.gov/Archives/edgar/data/1090872/000109087222000108/a-20221031.htm
  secapi html 10-Q <url> --sections part1item1,part1item2 --workers 4 --format markdown`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := edgar.ParseDocumentType(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options(a.cfg.Workers)
			if err != nil {
				return err
			}

			r, cleanup, err := a.newRetriever(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := r.GetReport(cmd.Context(), doc, args[1], opts)
			if err != nil {
				return err
			}
			return flags.write(cmd, rep)
		},
	}
	flags.register(cmd)
	return cmd
}

func latestCmd(a *app) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "latest <form> <ticker>",
		Short: "Fetch the most recent filing of a company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := edgar.ParseDocumentType(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options(a.cfg.Workers)
			if err != nil {
				return err
			}

			r, cleanup, err := a.newRetriever(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := r.GetLatestReport(cmd.Context(), doc, args[1], opts)
			if err != nil {
				return err
			}
			return flags.write(cmd, rep)
		},
	}
	flags.register(cmd)
	return cmd
}

func metadataCmd(a *app) *cobra.Command {
	var lookup retriever.Lookup
	cmd := &cobra.Command{
		Use:   "metadata <form>",
		Short: "Print filing metadata as JSON",
		Example: `  secapi metadata 10-K --ticker AAPL
  secapi metadata 10-Q --accession 0001090872-22-000108`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := edgar.ParseDocumentType(args[0])
			if err != nil {
				return err
			}

			r, cleanup, err := a.newRetriever(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			filing, err := r.RetrieveReportMetadata(cmd.Context(), doc, lookup)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(filing)
		},
	}
	cmd.Flags().StringVar(&lookup.Ticker, "ticker", "", "Latest filing of this ticker")
	cmd.Flags().StringVar(&lookup.AccessionNumber, "accession", "", "Filing with this accession number")
	cmd.MarkFlagsOneRequired("ticker", "accession")
	cmd.MarkFlagsMutuallyExclusive("ticker", "accession")
	return cmd
}

func sectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sections <form>",
		Short: "List the section ids of a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := edgar.ParseDocumentType(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE")
			for _, section := range edgar.FormSections(doc) {
				fmt.Fprintf(tw, "%s\t%s\n", section, section.Title())
			}
			return tw.Flush()
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve report retrieval over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, cleanup, err := a.newRetriever(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if port == 0 {
				port = a.cfg.Server.Port
			}
			srv := server.New(server.Config{
				Port:           port,
				Log:            log.Logger,
				Retriever:      r,
				DefaultWorkers: a.cfg.Workers,
				RequestTimeout: a.cfg.Server.RequestTimeout,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default: PORT or server.port)")
	return cmd
}

// newRetriever builds the client stack from the loaded configuration. The
// returned cleanup closes the client and the Redis connection.
func (a *app) newRetriever(ctx context.Context) (*retriever.Retriever, func(), error) {
	var redisClient *redis.Client
	opts, err := a.cfg.RedisOptions()
	if err != nil {
		return nil, nil, err
	}
	if opts != nil {
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
		}
		a.log.Info().Str("addr", opts.Addr).Msg("Connected to Redis, response cache enabled")
	}

	c, err := client.New(a.cfg.ClientConfig(redisClient))
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		if errors.Is(err, client.ErrAPIKeyNotSet) {
			return nil, nil, fmt.Errorf("%w (set %s or api_key in the config file)", err, client.APIKeyEnvVar)
		}
		return nil, nil, err
	}

	cleanup := func() {
		c.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return retriever.New(c, retriever.WithSectionTimeout(a.cfg.SectionTimeout)), cleanup, nil
}
