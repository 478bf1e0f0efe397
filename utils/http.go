// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the forum and image search clients. Retries are
// left to the next polling tick.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
