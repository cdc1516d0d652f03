//go:build linux

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/battlesnake/iplink/internal/config"
	"github.com/battlesnake/iplink/internal/link"
	"github.com/battlesnake/iplink/internal/logging"
	"github.com/battlesnake/iplink/internal/osfacade"
)

func main() {
	logging.ConfigureRuntime()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "iplink: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	configPath, action, rest := parseFrontFlags(args)

	cfg, err := config.Load(configPath, rest)
	if action == actionDump || action == actionHelp {
		// --dump prints the loaded config (file plus CLI overrides) and
		// fails if it does not load or validate. --help prints the defaults
		// and ignores any load error.
		if err != nil && action != actionHelp {
			return err
		}
	} else if err != nil {
		return err
	}

	switch action {
	case actionHelp:
		fmt.Print(config.Describe(config.Default(), true))
		return nil
	case actionDump:
		fmt.Print(config.Describe(cfg, false))
		return nil
	}

	return runEngine(cfg)
}

type action int

const (
	actionRun action = iota
	actionHelp
	actionDump
)

// parseFrontFlags pulls --config, --help and --dump out of the argument
// list (they are handled by the CLI layer, not internal/config.Load) and
// returns whatever remains for Load's --key value / --key=value parsing.
func parseFrontFlags(args []string) (configPath string, act action, rest []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help":
			act = actionHelp
		case "--dump":
			act = actionDump
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return configPath, act, rest
}

func runEngine(cfg config.Config) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("iplink must run with network-admin privileges (try sudo)")
	}

	sigSrc, err := osfacade.NewSignalfd(unix.SIGINT, unix.SIGTERM, unix.SIGQUIT, unix.SIGUSR1)
	if err != nil {
		return err
	}

	uart, err := osfacade.OpenUART(cfg.UARTPath, cfg.Baud)
	if err != nil {
		return err
	}

	tun, err := osfacade.OpenTun(cfg.IfName)
	if err != nil {
		return err
	}
	if err := configureTun(tun, cfg); err != nil {
		return err
	}

	sendKA, err := osfacade.NewTimerfd()
	if err != nil {
		return err
	}
	recvKA, err := osfacade.NewTimerfd()
	if err != nil {
		return err
	}

	var meterTimer osfacade.Timer
	if cfg.Meter {
		meterTimer, err = osfacade.NewTimerfd()
		if err != nil {
			return err
		}
	}

	mux, err := osfacade.NewEpoll()
	if err != nil {
		return err
	}

	engine := link.New(cfg, mux, uart, tun, sigSrc, sendKA, recvKA, meterTimer)
	return engine.Run()
}

func configureTun(tun *osfacade.TunDevice, cfg config.Config) error {
	ip, network, err := config.ParseAddr(cfg.Addr)
	if err != nil {
		return err
	}
	var addr, mask [4]byte
	copy(addr[:], ip.To4())
	copy(mask[:], network.Mask)

	if err := tun.SetMTU(cfg.MTU); err != nil {
		return err
	}
	if err := tun.SetAddr(addr, mask); err != nil {
		return err
	}
	if err := tun.SetPointToPoint(true); err != nil {
		return err
	}
	return nil
}
