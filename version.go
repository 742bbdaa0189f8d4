package assessor

import (
	"fmt"
	"runtime"
)

// build metadata, overridden at link time
var (
	CurrentCommit  = ""
	CurrentBranch  = ""
	CurrentVersion = "0.1.0"
	BuildDate      = ""
	GoVersion      = runtime.Version()
	Platform       = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)
