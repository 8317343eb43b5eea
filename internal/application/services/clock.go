package services

import "time"

// nowFunc is swapped in tests to pin timestamps.
var nowFunc = time.Now
