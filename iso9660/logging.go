package iso9660

import (
	"context"

	"github.com/dsoprea/go-logging"
)

var pkgLog = log.NewLogger("iso9660")

func warningf(format string, args ...interface{}) {
	pkgLog.Warningf(context.Background(), format, args...)
}
