package processor

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"datalint/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips starts libvips for the decode fallback. Call once before a scan
// that enables it; later calls are no-ops.
func InitVips(workers int) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup.
	vipsLogLevel, logHandler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(logHandler, vipsLogLevel)

	if workers < 1 {
		workers = 1
	}
	vips.Startup(&vips.Config{
		// Parallelism comes from the worker pool, not from libvips threads.
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     workers * 4,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// vipsLogging maps the application level to a libvips verbosity and handler.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		return vips.LogLevelWarning, func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	default:
		return vips.LogLevelError, func(domain string, l vips.LogLevel, msg string) {
			if l == vips.LogLevelError || l == vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	}
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Debug("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// decodeVips loads data through libvips. The band count is the channel
// count, except grey+alpha which counts as grey.
func decodeVips(data []byte) (ImageInfo, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if w <= 0 || h <= 0 {
		return ImageInfo{}, fmt.Errorf("vips reported empty image %dx%d", w, h)
	}

	return ImageInfo{
		Width:    w,
		Height:   h,
		Channels: bandsToChannels(ref.Bands()),
		Format:   vips.ImageTypes[ref.Format()],
		Decoder:  "vips",
	}, nil
}

func bandsToChannels(bands int) int {
	switch bands {
	case 1, 2:
		return 1
	case 4:
		return 4
	default:
		return 3
	}
}
