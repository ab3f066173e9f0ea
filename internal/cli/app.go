package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"

	"github.com/mvillareal/cobraruta/internal/api"
	"github.com/mvillareal/cobraruta/internal/config"
	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/printer"
	"github.com/mvillareal/cobraruta/internal/repositories"
	"github.com/mvillareal/cobraruta/internal/services"
)

// App wires store, services, and printer together and carries the
// interactive session state.
type App struct {
	config     *config.Config
	store      *repositories.Store
	collection *services.CollectionService
	sync       *services.SyncService
	printer    *printer.Printer
	log        logging.Logger
	reader     *bufio.Reader
}

// newLogger builds the Logger implementation the config asks for:
// slog text on stderr for interactive use, zap production JSON when
// the console output is shipped somewhere.
func newLogger(backend string) (logging.Logger, error) {
	switch backend {
	case "", "slog":
		return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))), nil
	case "zap":
		zl, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("building zap logger: %w", err)
		}
		return logging.NewZapLogger(zl), nil
	}
	return nil, fmt.Errorf("unknown log backend %q (want slog or zap)", backend)
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.CollectorID == "" {
		return nil, fmt.Errorf("collector id is required (flag -k or collector_id in the config file)")
	}

	log, err := newLogger(cfg.LogBackend)
	if err != nil {
		return nil, err
	}

	store, err := repositories.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	apiClient := api.NewHTTPClient(cfg.ServerAddr, cfg.HTTPTimeout, log)

	prn := printer.NewPrinter(printer.NewBLETransport(), store, cfg.CollectorID, printer.Config{
		Merchant:      cfg.Merchant,
		CollectorName: cfg.CollectorName,
		ChunkSize:     cfg.PrinterChunkSize,
		ChunkDelay:    cfg.PrinterChunkDelay,
	}, log)

	return &App{
		config:     cfg,
		store:      store,
		collection: services.NewCollectionService(store, cfg.CollectorID, log),
		sync:       services.NewSyncService(store, apiClient, cfg.CollectorID, log),
		printer:    prn,
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
	}, nil
}

// Run recovers interrupted uploads, starts the periodic sync timer,
// and enters the REPL until EOF or exit.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	if err := a.sync.Recover(ctx); err != nil {
		return fmt.Errorf("recovering interrupted uploads: %w", err)
	}

	if a.config.AutoSyncInterval > 0 {
		go a.sync.StartAutoSync(ctx, a.config.AutoSyncInterval)
	}

	printlnFn("Collector console (type 'help' for commands)")
	runREPL(ctx, a, a.promptStatus, bufio.NewScanner(os.Stdin))
	return nil
}

// promptStatus summarizes the queue for the prompt, so pending work is
// always in front of the collector.
func (a *App) promptStatus() string {
	st, err := a.sync.Status(context.Background())
	if err != nil {
		return "(?)"
	}
	if st.Queue.Empty() {
		return "(al dia)"
	}
	return fmt.Sprintf("(%d pendientes, %d fallidos)", st.Queue.Pending, st.Queue.Failed)
}
