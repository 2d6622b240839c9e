package vector

import "github.com/draco28/pulsedb/internal/logging"

var log = logging.GetLogger("vector")
