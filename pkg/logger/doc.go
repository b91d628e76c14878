// Package logger provides the structured logging interface used across
// hdexport.
//
// It wraps zerolog with a small interface so components can take a Logger
// in their constructor and tests can pass a TestLogger or NewNopLogger.
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	logger.Info("Export started")
//	logger.WithField("invoice", "0101234567/2").Info("Invoice saved")
//
// Components usually hold a scoped logger:
//
//	log := logger.GetLogger().WithField("component", "downloader")
//	log.InfoWithFields("Batch completed", map[string]interface{}{
//	    "total":  12,
//	    "failed": 1,
//	})
//
// Console output is colored when stdout is a terminal and NoColor is unset.
// When File is set, entries are also appended to that file as JSON.
package logger
