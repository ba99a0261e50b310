package util

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/config"
	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/service"
)

// Mocked for unit testing.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

// HandleFatalError handles errors that are severe enough to terminate the
// program.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs the stack trace of a panic before re-panicking.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Error("Panic")
		panic(r)
	}
}

// PromptYesOrNo asks the user a yes or no question. Anything other than a
// yes is treated as a no.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s (y/N) ", prompt)
	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ProgressPrinter prints dots while a long running operation is in
// progress.
type ProgressPrinter struct {
	out     io.Writer
	msg     string
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewProgressPrinter creates a ProgressPrinter that writes to `out`.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	pp := &ProgressPrinter{out: out, msg: msg, stop: make(chan struct{})}
	pp.stopped.Add(1)
	return pp
}

// Run prints the progress until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer pp.stopped.Done()

	fmt.Fprint(pp.out, pp.msg)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		}
	}
}

// Stop stops the printer and waits for it to finish writing.
func (pp *ProgressPrinter) Stop() {
	close(pp.stop)
	pp.stopped.Wait()
}

// NewService creates the synchronization service backed by the user's
// config file.
func NewService() (*service.Service, error) {
	svc, err := service.New(service.Deps{Persist: config.NewFileStore(config.DefaultPath)})
	if err != nil {
		return nil, errors.WithContext(err, "create service")
	}
	return svc, nil
}

// readyTimeout bounds how long commands wait for the project list.
const readyTimeout = 30 * time.Second

// StartService starts a service and waits for the first project
// reconcile. The returned function stops the service.
func StartService(ctx context.Context) (*service.Service, func(), error) {
	svc, err := NewService()
	if err != nil {
		return nil, nil, err
	}

	svc.Start(ctx)
	pp := NewProgressPrinter(os.Stderr, "Waiting for the devmirror agent")
	go pp.Run()
	err = svc.WaitReady(ctx, readyTimeout)
	pp.Stop()
	if err != nil {
		svc.Stop()
		return nil, nil, err
	}
	return svc, svc.Stop, nil
}
