// Package log is a small wrapper around the standard library logger that
// gives each service in manasearch a named logger with level helpers.
//
//	l := log.ForService("searcher")
//	l.Infof("search started")
//	l.Warnf("translation slow")
//	l.Debugf("raw payload: %s", body) // only with debug enabled
//
// Debug output can be enabled globally (SetGlobalDebug) or per service
// (EnableDebugFor). Tests redirect output with SetOutput and a bytes.Buffer.
// All exported functions are safe for concurrent use.
package log
