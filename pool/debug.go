//go:build debug

package pool

import "github.com/sirupsen/logrus"

// defaultLogLevel is lowered when built with -tags debug.
const defaultLogLevel = logrus.DebugLevel
