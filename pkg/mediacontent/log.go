package mediacontent

import "log/slog"

// LevelCritical is used for failures that abort an operation or drop an item
// from a synchronization run.
const LevelCritical = slog.LevelError + 4
