package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/listener"
	"github.com/vietdv277/nimbus/internal/metrics"
	"github.com/vietdv277/nimbus/pkg/types"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Deploy builds announced on a NATS subject",
	Long: `Subscribe to build events and deploy each one as it arrives.

An event is a JSON object:
  {"subdomain": "web", "project_path": "/builds/web/dist"}

Events are handled one at a time. Requests that carry a reply subject get
{"status":"received"} as soon as the event is read.

Examples:
  nmb listen
  nmb listen --url nats://ci.internal:4222 --subject builds.web
  nmb listen --metrics-addr :9102`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

var (
	listenURL         string
	listenSubject     string
	listenMetricsAddr string
)

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&listenURL, "url", "", "NATS server URL (default from context, then "+nats.DefaultURL+")")
	listenCmd.Flags().StringVar(&listenSubject, "subject", "", "subject to subscribe to (default from context)")
	listenCmd.Flags().StringVar(&listenMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.NewRegistry())
	s, err := openSession(ctx, m)
	if err != nil {
		return err
	}
	defer s.Close()

	url := firstNonEmpty(listenURL, s.cfg.Listener.URL, nats.DefaultURL)
	subject := firstNonEmpty(listenSubject, s.cfg.Listener.Subject)

	if listenMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: listenMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			level.Info(s.logger).Log("msg", "serving metrics", "addr", listenMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(s.logger).Log("msg", "metrics server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	nc, err := listener.Connect(url, s.logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	l := listener.New(listener.DeployerFunc(func(ctx context.Context, event *types.BuildEvent) error {
		report, err := s.deploy(ctx, event.Subdomain, event.BuildPath, event.LifecycleScripts)
		if report != nil {
			level.Info(s.logger).Log("msg", "deployment finished", "run_id", report.RunID, "subdomain", event.Subdomain, "final", report.Final)
		}
		return err
	}), s.logger)

	return l.Listen(ctx, nc, subject)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
