package logger

import "os"

// exit is swapped out in tests.
var exit = os.Exit
