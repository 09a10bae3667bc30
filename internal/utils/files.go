package utils

import (
	"io"

	"github.com/m333rl1n/cdnx/internal/log"
)

func CloseOrWarn(file io.Closer) {
	if err := file.Close(); err != nil {
		log.Warnf("Failed to close file: %v", err)
	}
}
