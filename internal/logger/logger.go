package logger

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

const format = `%{time:2006-01-02 15:04:05} %{level:.5s} %{module:-9s} %{message}`

// Init installs the process-wide log backend at the given level (DEBUG, INFO, WARNING, ERROR).
func Init(logLevel string) error {
	return InitWriter(os.Stdout, logLevel)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, logLevel string) error {
	baseBackend := logging.NewLogBackend(w, "", 0)
	backendFormatter := logging.NewBackendFormatter(baseBackend, logging.MustStringFormatter(format))

	backendLeveled := logging.AddModuleLevel(backendFormatter)
	logLevelCode, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	backendLeveled.SetLevel(logLevelCode, "")

	logging.SetBackend(backendLeveled)
	return nil
}
