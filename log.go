package fsview

import (
	stdlog "log"
	"os"
)

// treeLogger wraps the standard logger the way the rest of this codebase's
// ancestry does: a single prefixed *log.Logger shared package-wide, with a
// thin method set so call sites don't depend on stdlog directly.
type treeLogger struct {
	logger *stdlog.Logger
}

func (l *treeLogger) Info(v ...interface{}) {
	l.logger.Println(append([]interface{}{"[info]"}, v...)...)
}

func (l *treeLogger) Warn(v ...interface{}) {
	l.logger.Println(append([]interface{}{"[warn]"}, v...)...)
}

var log = &treeLogger{
	logger: stdlog.New(os.Stderr, "[fsview] ", stdlog.LstdFlags|stdlog.Lmsgprefix),
}

// SetLoggerFlags adjusts the flags of the package's shared logger, mainly
// useful for tests that want to strip timestamps from captured output.
func SetLoggerFlags(flag int) {
	log.logger.SetFlags(flag)
}
