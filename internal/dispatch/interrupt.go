package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	interruptedStatus = 1

	interruptExitMessage      = "interrupt received, exiting"
	interruptForwardedMessage = "interrupt forwarded to command"
)

var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalNotifier delivers process signals. It matches os/signal.
type SignalNotifier interface {
	Notify(channel chan<- os.Signal, signals ...os.Signal)
	Stop(channel chan<- os.Signal)
}

type processSignals struct{}

func (processSignals) Notify(channel chan<- os.Signal, signals ...os.Signal) {
	signal.Notify(channel, signals...)
}

func (processSignals) Stop(channel chan<- os.Signal) {
	signal.Stop(channel)
}

// interruptScope holds the interrupt policy for one command invocation.
type interruptScope struct {
	commandContext context.Context
	observed       <-chan os.Signal
	release        func()
}

// installInterruptPolicy routes interrupts for the duration of one command.
// Commands that do not honor interrupts end the process with status 1 after
// a newline on stdout. Honoring commands see their context cancelled and the
// signal on their observation channel; the process keeps running.
func (dispatcher *Dispatcher) installInterruptPolicy(parent context.Context, honorsInterrupt bool) interruptScope {
	if parent == nil {
		parent = context.Background()
	}
	commandContext, cancelCommand := context.WithCancel(parent)
	received := make(chan os.Signal, 1)
	dispatcher.notifier.Notify(received, interruptSignals...)

	var observed chan os.Signal
	if honorsInterrupt {
		observed = make(chan os.Signal, 1)
	}

	watcherContext, stopWatching := context.WithCancel(context.Background())
	group, _ := errgroup.WithContext(watcherContext)
	group.Go(func() error {
		for {
			select {
			case <-watcherContext.Done():
				return nil
			case delivered := <-received:
				if !honorsInterrupt {
					fmt.Fprintln(dispatcher.stdout)
					dispatcher.logger.Debug(interruptExitMessage, zap.Stringer("signal", delivered))
					dispatcher.exit(interruptedStatus)
					return nil
				}
				dispatcher.logger.Debug(interruptForwardedMessage, zap.Stringer("signal", delivered))
				cancelCommand()
				select {
				case observed <- delivered:
				default:
				}
			}
		}
	})

	return interruptScope{
		commandContext: commandContext,
		observed:       observed,
		release: func() {
			dispatcher.notifier.Stop(received)
			stopWatching()
			cancelCommand()
			_ = group.Wait()
		},
	}
}
