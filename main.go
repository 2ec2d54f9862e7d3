package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gregLibert/felica-pcsc/internal/config"
	"github.com/gregLibert/felica-pcsc/pkg/felica"
	"github.com/gregLibert/felica-pcsc/pkg/pcsc"
	"github.com/gregLibert/felica-pcsc/pkg/reader"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "", "log format: text or json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	setupLogging(cfg, *verbose, *logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := pcsc.NewScardTransport()
	transport.EscapeCode = cfg.Reader.EscapeControlCode
	transport.ExchangeViaEscape = cfg.Reader.ExchangeViaEscape

	err = reader.Run(transport, cfg.Reader.Name, func(s *reader.Session) error {
		return runDemo(ctx, s, cfg)
	},
		reader.WithLogger(slog.Default()),
		reader.WithPolling(cfg.PollingCommand()),
		reader.WithReadLayout(cfg.ReadLayout()),
	)

	switch {
	case err == nil:
		fmt.Println("\n>> Demo Finished Successfully")
	case errors.Is(err, context.Canceled):
		fmt.Println("\n>> Interrupted")
	default:
		slog.Error("Fatal", "err", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler. Flags win over the config.
func setupLogging(cfg *config.Config, verbose bool, format string) {
	level, _ := cfg.Log.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	if format == "" {
		format = cfg.Log.Format
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}
}

// runDemo polls until a card shows up, then optionally writes one block and
// reads the configured blocks.
func runDemo(ctx context.Context, s *reader.Session, cfg *config.Config) error {
	fmt.Println("=============================================")
	fmt.Printf(" Reader: %s\n", s.Reader())
	fmt.Printf(" Escape control code: %08X\n", s.EscapeControlCode())
	fmt.Println(" Waiting for a FeliCa card...")
	fmt.Println("=============================================")

	if err := waitForCard(ctx, s, cfg.Polling.Interval); err != nil {
		return err
	}

	fmt.Printf("\n>> IDm: %s\n", s.IDm())
	fmt.Printf("   Raw reply: %s\n", hexDump(s.RecvBuf()))
	fmt.Println(s.LastPolling().Describe())

	if cfg.Write != nil {
		if err := writeBlock(s, cfg.Write); err != nil {
			return err
		}
	}

	return readBlocks(ctx, s, cfg.Read)
}

func waitForCard(ctx context.Context, s *reader.Session, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		found, err := s.NFCFPolling()
		if err != nil {
			return fmt.Errorf("polling: %w", err)
		}
		if found {
			return nil
		}
	}
}

func writeBlock(s *reader.Session, w *config.WriteConfig) error {
	data, err := w.BlockData()
	if err != nil {
		return err
	}
	block := byte(*w.Block)

	fmt.Println("\n=============================================")
	fmt.Printf(" WRITE WITHOUT ENCRYPTION (block %02X)\n", block)
	fmt.Println("=============================================")

	if err := s.NFCFWriteWithoutEncryption(block, data); err != nil {
		fmt.Println(s.LastTrace().Describe())
		return fmt.Errorf("write: %w", err)
	}
	fmt.Printf(">> Written: %s\n", hexDump(data[:]))
	return nil
}

func readBlocks(ctx context.Context, s *reader.Session, r config.ReadConfig) error {
	block1, block2 := r.Blocks()

	fmt.Println("\n=============================================")
	fmt.Printf(" READ WITHOUT ENCRYPTION (blocks %02X, %02X) x%d\n", block1, block2, *r.Count)
	fmt.Println("=============================================")

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for i := 1; i <= *r.Count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		resp, err := s.NFCFReadWithoutEncryption(block1, block2)
		if err != nil {
			var cse *felica.CardStatusError
			if errors.As(err, &cse) {
				fmt.Printf("\n[Read #%d] (!) Card refused: %s\n", i, cse.Description())
				continue
			}
			fmt.Println(s.LastTrace().Describe())
			return fmt.Errorf("read #%d: %w", i, err)
		}

		fmt.Printf("\n[Read #%d] Raw reply: %s\n", i, hexDump(s.RecvBuf()))
		fmt.Println(resp.Describe())
	}

	return nil
}

func hexDump(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
