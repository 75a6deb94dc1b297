package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/itohio/gobioreactor/pkg/config"
	"github.com/itohio/gobioreactor/pkg/control"
	"github.com/itohio/gobioreactor/pkg/device"
	"github.com/itohio/gobioreactor/pkg/display"
	"github.com/itohio/gobioreactor/pkg/logging"
	"github.com/itohio/gobioreactor/pkg/metrics"
	"github.com/itohio/gobioreactor/pkg/sensor"
	"github.com/itohio/gobioreactor/pkg/trend"
)

type runOptions struct {
	configPath string
	port       string
	mock       bool
	headless   bool
	powerOn    bool
	duration   time.Duration
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the control loop.",
		Long: "Run the control loop against the bridge MCU (or a simulated reactor with --mock). " +
			"The loop starts idle; the power button, the panel button or SIGUSR1 toggles it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if opts.port != "" {
				cfg.Serial.Port = opts.port
			}

			log := logging.New(cfg.Logging, cmd.ErrOrStderr())
			return runReactor(cmd.Context(), cfg, opts, cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Configuration file path")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "Use a simulated reactor instead of the serial bridge")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Print the display lines instead of opening a window")
	cmd.Flags().BoolVar(&opts.powerOn, "power-on", false, "Request power on at start")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

// reactor holds the running components.
type reactor struct {
	cfg     *config.Config
	log     zerolog.Logger
	dev     device.Device
	metrics *metrics.Metrics
	loop    *control.Loop
	history trend.History

	statuses chan control.Status
}

func openDevice(cfg *config.Config, mock bool, log zerolog.Logger) device.Device {
	if mock {
		log.Info().Msg("using simulated reactor")
		return device.NewMock(&cfg.Mock)
	}
	return device.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Sensors.StaleAfter, log)
}

func newReactor(cfg *config.Config, dev device.Device, disp device.Display, log zerolog.Logger) *reactor {
	m := metrics.New()
	hw := control.Hardware{
		Sensors:   sensor.NewAdapter(dev, cfg.Sensors),
		Actuators: dev,
		Display:   disp,
	}

	r := &reactor{
		cfg:      cfg,
		log:      log,
		dev:      dev,
		metrics:  m,
		loop:     control.New(cfg, hw, m, log),
		history:  trend.New(cfg.Trend.Window),
		statuses: make(chan control.Status, 100),
	}

	dev.OnPowerToggle(r.loop.RequestToggle)
	r.loop.OnStatus(func(s control.Status) {
		// The loop must never wait on the history.
		select {
		case r.statuses <- s:
		default:
		}
	})
	return r
}

// run drives the loop and the history until ctx is done.
func (r *reactor) run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.history.ProcessStatuses(r.statuses)
	}()

	err := r.loop.Run(ctx)
	close(r.statuses)
	wg.Wait()

	r.log.Info().
		Int("episodes", len(r.history.Episodes())).
		Float64("faults", r.metrics.FaultCount()).
		Msg("control loop stopped")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// releaser returns a function that commands every actuator to zero and then
// closes the device. Only the first call does anything.
func releaser(dev device.Device, log zerolog.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, c := range device.Off() {
				if err := c.Apply(dev); err != nil {
					log.Error().Err(err).Stringer("target", c.Target).Msg("failed to zero actuator")
				}
			}
			if err := dev.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close device")
			}
		})
	}
}

func runReactor(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dev := openDevice(cfg, opts.mock, log)
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	// Zero the actuators before the link closes, on return or on atexit.Exit.
	release := releaser(dev, log)
	atexit.Register(release)
	defer release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if opts.headless {
		r := newReactor(cfg, dev, display.NewConsole(out), log)
		toggleOnSignal(ctx, r.loop, log)
		if opts.powerOn {
			r.loop.RequestToggle()
		}
		return r.run(ctx)
	}

	return runPanel(ctx, cfg, dev, opts, log)
}
