// Package logrus routes tablecodec's diagnostic side channel to a logrus entry.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/tablecodec"
)

var _ tablecodec.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f tablecodec.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f tablecodec.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f tablecodec.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f tablecodec.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
