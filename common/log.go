package common

import "github.com/sirupsen/logrus"

// Log is the single package-level logger every subsystem logs through,
// keeping a single place to configure level and formatter.
var Log = logrus.New()

func init() {
	Log.SetLevel(logrus.InfoLevel)
}

// SetDebug flips both the EnableDebug flag call sites gate on and the
// logger's level, so turning on debugging also surfaces debug-level logs.
func SetDebug(on bool) {
	EnableDebug = on
	if on {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}
