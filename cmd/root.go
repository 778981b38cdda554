// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pihamlab/morselink/internal/config"
	"github.com/pihamlab/morselink/internal/feedback"
	"github.com/pihamlab/morselink/internal/gpio"
	"github.com/pihamlab/morselink/internal/history"
	"github.com/pihamlab/morselink/internal/morse"
	"github.com/pihamlab/morselink/internal/web"
)

var rootCmd = &cobra.Command{
	Use:   "morselink",
	Short: "Bidirectional Morse messaging over a GPIO signal line",
	Long: `Morselink exchanges short text messages over a single GPIO line by
encoding characters as Morse pulses, and decodes the remote side's pulses
back into text. A JSON API exposes send/receive to the UI.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runService()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().BoolP("simulation", "s", false, "run without GPIO hardware")
	rootCmd.PersistentFlags().IntP("port", "p", 5000, "web API port")
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "web API listen address")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	// Bind flags to viper
	viper.BindPFlag("simulation", rootCmd.PersistentFlags().Lookup("simulation"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

func runService() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	cfg, err := config.Get()
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	line := openLine(cfg)
	defer line.Close()

	mgr, err := morse.NewManager(line, cfg.Profile(), morse.SystemClock(), log.Logger)
	if err != nil {
		return fmt.Errorf("create communication manager: %w", err)
	}

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warn().Err(err).Msg("history disabled: failed to open store")
			hist = nil
		} else {
			defer hist.Close()
			mgr.OnWord(func(word string, at time.Time) {
				if err := hist.Append(history.Received, word, at); err != nil {
					log.Warn().Err(err).Msg("failed to record received word")
				}
			})
		}
	}

	sidetone := feedback.New(feedback.Config{
		Enabled:    cfg.SidetoneEnabled,
		Frequency:  cfg.ToneFrequency,
		SampleRate: cfg.SampleRate,
	}, log.Logger)
	if err := sidetone.Start(); err != nil {
		log.Warn().Err(err).Msg("sidetone disabled: audio unavailable")
	} else {
		defer sidetone.Close()
		mgr.OnPulse(sidetone.Gate)
	}

	mgr.Start()
	defer mgr.Stop()

	server := web.NewServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), mgr, hist, cfg.HistoryLimit, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		select {
		case sig := <-sigChan:
			log.Info().Stringer("signal", sig).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		return server.Run(ctx)
	})

	return eg.Wait()
}

// openLine selects the line driver: explicit simulation, real hardware, or a
// simulation fallback when the hardware cannot be opened. Everything above
// the driver is unaware of the difference.
func openLine(cfg *config.Settings) gpio.Line {
	if cfg.Simulation {
		log.Info().Msg("simulation mode: using simulated line")
		return gpio.NewSimulated()
	}
	line, err := gpio.OpenRPi(cfg.Pins())
	if err != nil {
		log.Warn().Err(err).Msg("gpio unavailable, falling back to simulated line")
		return gpio.NewSimulated()
	}
	log.Info().
		Uint8("transmit_pin", cfg.TransmitPin).
		Uint8("receive_pin", cfg.ReceivePin).
		Msg("gpio line opened")
	return line
}
