// Package logger wraps zerolog behind a small interface.
//
// Commands initialize the global logger once from config.LoggingConfig;
// library packages take a Logger in their constructors so tests can pass
// NewNopLogger or NewTestLogger instead.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "fetcher")
//	log.InfoWithFields("page loaded", map[string]interface{}{"count": 25})
package logger
