package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/cadence/pkg/logger"
)

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "sim_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}
