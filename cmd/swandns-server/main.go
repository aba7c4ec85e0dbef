// Command swandns-server runs the DNS resolution engine: the Zone
// Catalog + DNS Listener (C6) and the RPC Surface (C7) over a shared
// Record Store (C1). Wiring mirrors the teacher's main.go (one goroutine
// per transport joined on a sync.WaitGroup, signal-triggered graceful
// shutdown) generalised to a cobra-driven CLI and a cancelable context.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swandns/internal/authority"
	"swandns/internal/config"
	"swandns/internal/dnsserver"
	"swandns/internal/errs"
	"swandns/internal/metrics"
	"swandns/internal/rpcproto"
	"swandns/internal/store"
	"swandns/internal/telemetry"
	"swandns/internal/workerpool"
)

// drainWindow is the bounded shutdown window spec.md §5 specifies
// ("≈1 second").
const drainWindow = time.Second

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "swandns-server",
		Short: "Serve DNS queries and the dynamic-record RPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to server config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := telemetry.Named(logger, "server")

	recordStore, err := store.Open(filepath.Join(cfg.DataDir, cfg.DBFile))
	if err != nil {
		return err
	}
	defer recordStore.Close()

	recordStore.SetLogger(telemetry.Named(logger, "store"))

	catalog, err := buildCatalog(cfg, recordStore, telemetry.Named(logger, "authority"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dnsPool := workerpool.New(64, 256)
	dnsPool.Start()
	defer dnsPool.Stop()

	rpcPool := workerpool.New(32, 128)
	rpcPool.Start()
	defer rpcPool.Stop()

	dnsAddr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.DNSPort)
	dnsSrv := dnsserver.New(catalog, dnsPool, telemetry.Named(logger, "dnsserver"))

	rpcAddr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.APIPort)
	rpcSrv := rpcproto.NewServer(recordStore, telemetry.Named(logger, "rpcproto"), rpcPool)

	metricsAddr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.APIPort+1)
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}

	errCh := make(chan error, 3)
	go func() { errCh <- dnsSrv.ListenAndServe(dnsAddr) }()
	go func() { errCh <- rpcSrv.Serve(rpcAddr) }()
	go func() { errCh <- metricsSrv.ListenAndServe() }()

	go observeStoreStats(ctx, recordStore)

	log.Infow("swandns-server started", "dns_addr", dnsAddr, "rpc_addr", rpcAddr, "metrics_addr", metricsAddr)

	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received")
	case err := <-errCh:
		log.Errorw("fatal server error", "err", err)
		return errs.Wrap(errs.KindBindFailed, "server failed", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainWindow)
	defer cancel()

	dnsSrv.Shutdown(drainCtx)
	rpcSrv.Close()
	metricsSrv.Shutdown(drainCtx)

	return nil
}

// observeStoreStats periodically translates the store's own Stats shape
// into the metrics package's decoupled Stats shape (metrics does not
// import internal/store).
func observeStoreStats(ctx context.Context, s *store.Store) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.Stats()
			age := 0.0
			if st.HasData {
				age = time.Since(st.Oldest).Seconds()
			}
			metrics.ObserveStoreStats(metrics.Stats{Count: st.Count, OldestAgeS: age, HasData: st.HasData})
		}
	}
}

func buildCatalog(cfg *config.ServerConfig, recordStore *store.Store, log *zap.SugaredLogger) (*authority.Catalog, error) {
	forward := authority.NewForward(cfg.Nameservers, 5*time.Second)
	forward.SetLogger(log)
	dynamic := authority.NewDynamic(recordStore)
	dynamic.SetLogger(log)

	catalog := authority.NewCatalog()
	catalog.SetLogger(log)
	for _, zoneCfg := range cfg.Zones {
		var recs []authority.StaticRecord
		for _, r := range zoneCfg.Records {
			recs = append(recs, authority.StaticRecord{Key: r.Key, Value: r.Value})
		}
		static, err := authority.NewStatic(zoneCfg.Name, recs)
		if err != nil {
			return nil, err
		}
		static.SetLogger(log)

		split := &authority.Split{
			Origin:  zoneCfg.Name,
			Static:  static,
			Dynamic: dynamic,
			Forward: forward,
			Log:     log,
		}
		catalog.Add(zoneCfg.Name, split)
	}
	return catalog, nil
}
