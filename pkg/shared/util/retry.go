package util

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

var DefaultRetryBackoff = wait.Backoff{
	Steps:    5,
	Duration: 200 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}
